package transcription

import (
	"testing"
	"time"
)

func TestParseVTT(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name: "basic vtt",
			content: `WEBVTT

00:00:01.000 --> 00:00:04.000
Hello, this is the first subtitle

00:00:04.100 --> 00:00:08.000
This is the second subtitle`,
			want:    2,
			wantErr: false,
		},
		{
			name: "multi-line subtitle",
			content: `WEBVTT

00:00:01.000 --> 00:00:04.000
Hello, this is
a multi-line subtitle

00:00:04.100 --> 00:00:08.000
Second entry`,
			want:    2,
			wantErr: false,
		},
		{
			name: "cue identifiers",
			content: `WEBVTT

1
00:00:01.000 --> 00:00:04.000
First entry

2
00:00:04.100 --> 00:00:08.000
Second entry`,
			want:    2,
			wantErr: false,
		},
		{
			name:    "invalid header",
			content: "NOT A VTT FILE",
			want:    0,
			wantErr: true,
		},
		{
			name: "empty lines between entries",
			content: `WEBVTT


00:00:01.000 --> 00:00:04.000
First entry


00:00:04.100 --> 00:00:08.000
Second entry`,
			want:    2,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := parseVTT(tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVTT() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(segments) != tt.want {
				t.Errorf("parseVTT() got %d segments, want %d", len(segments), tt.want)
			}
		})
	}
}

func TestParseVTTTiming(t *testing.T) {
	content := `WEBVTT

00:00:01.500 --> 00:00:04.250
Hello there`

	segments, err := parseVTT(content)
	if err != nil {
		t.Fatalf("parseVTT() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("parseVTT() got %d segments, want 1", len(segments))
	}
	if segments[0].Start != 1500*time.Millisecond {
		t.Errorf("start = %v, want 1.5s", segments[0].Start)
	}
	if segments[0].End != 4250*time.Millisecond {
		t.Errorf("end = %v, want 4.25s", segments[0].End)
	}
	if segments[0].Text != "Hello there" {
		t.Errorf("text = %q", segments[0].Text)
	}
}

func TestParseVTTTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		want      time.Duration
		wantErr   bool
	}{
		{
			name:      "zero timestamp",
			timestamp: "00:00:00.000",
			want:      0,
			wantErr:   false,
		},
		{
			name:      "one second",
			timestamp: "00:00:01.000",
			want:      time.Second,
			wantErr:   false,
		},
		{
			name:      "with hours",
			timestamp: "01:00:00.000",
			want:      time.Hour,
			wantErr:   false,
		},
		{
			name:      "with milliseconds",
			timestamp: "00:00:00.500",
			want:      500 * time.Millisecond,
			wantErr:   false,
		},
		{
			name:      "complex time",
			timestamp: "01:23:45.678",
			want:      1*time.Hour + 23*time.Minute + 45*time.Second + 678*time.Millisecond,
			wantErr:   false,
		},
		{
			name:      "invalid format",
			timestamp: "1:23:45.678",
			wantErr:   true,
		},
		{
			name:      "missing milliseconds",
			timestamp: "00:00:01",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVTTTimestamp(tt.timestamp)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVTTTimestamp() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseVTTTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}
