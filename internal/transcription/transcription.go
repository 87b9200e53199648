// Package transcription turns a video's audio into ordered, time-aligned
// text segments.
package transcription

import (
	"context"
	"fmt"
	"time"
)

// RawSegment is one span of transcribed speech as returned by a model,
// before validation.
type RawSegment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Transcriber converts an audio file into raw transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error)
}

// ExtractionError reports that a video's media could not be turned into
// segments.
type ExtractionError struct {
	VideoID string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for video %s: %v", e.VideoID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
