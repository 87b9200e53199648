package transcription

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseVTT parses WebVTT content into raw segments.
func parseVTT(content string) ([]RawSegment, error) {
	// Some APIs return the body JSON-quoted with literal \n escapes.
	content = strings.Trim(content, "\"")
	if strings.Contains(content, "\\n") {
		content = strings.ReplaceAll(content, "\\n", "\n")
	}

	if !strings.HasPrefix(content, "WEBVTT") {
		return nil, fmt.Errorf("invalid VTT format: missing WEBVTT header")
	}
	content = strings.TrimPrefix(content, "WEBVTT")
	content = strings.TrimLeft(content, "\n")

	var segments []RawSegment
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// Cue identifiers are optional; the timing line is the one
		// containing the arrow.
		timingLine := 0
		if !strings.Contains(lines[0], " --> ") {
			timingLine = 1
			if len(lines) < 3 || !strings.Contains(lines[1], " --> ") {
				continue
			}
		}

		timestamps := strings.Split(lines[timingLine], " --> ")
		if len(timestamps) != 2 {
			continue
		}
		start, err := parseVTTTimestamp(strings.TrimSpace(timestamps[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start timestamp: %w", err)
		}
		end, err := parseVTTTimestamp(strings.TrimSpace(timestamps[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end timestamp: %w", err)
		}

		segments = append(segments, RawSegment{
			Text:  strings.Join(lines[timingLine+1:], " "),
			Start: start,
			End:   end,
		})
	}

	return segments, nil
}

// parseVTTTimestamp parses an HH:MM:SS.mmm timestamp.
func parseVTTTimestamp(timestamp string) (time.Duration, error) {
	parts := strings.Split(timestamp, ":")
	if len(parts) != 3 || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid timestamp format: expected HH:MM:SS.mmm")
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours: %w", err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes: %w", err)
	}

	secondParts := strings.Split(parts[2], ".")
	if len(secondParts) != 2 {
		return 0, fmt.Errorf("invalid seconds format: missing milliseconds")
	}
	seconds, err := strconv.Atoi(secondParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds: %w", err)
	}
	millis, err := strconv.Atoi(secondParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds: %w", err)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}
