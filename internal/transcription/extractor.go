package transcription

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jamesfarrell.me/video-search/internal/index"
)

// Extractor wraps a Transcriber and turns its raw output into clean,
// ordered segments for indexing.
type Extractor struct {
	transcriber Transcriber
}

func NewExtractor(t Transcriber) *Extractor {
	return &Extractor{transcriber: t}
}

// Extract transcribes the audio file and returns the video's segments in
// time order. Empty-text segments and segments with start after end are
// dropped; a video that yields no usable segments at all is an
// ExtractionError.
func (e *Extractor) Extract(ctx context.Context, videoID, audioPath string) ([]index.Segment, error) {
	raw, err := e.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, &ExtractionError{VideoID: videoID, Err: err}
	}

	kept := make([]RawSegment, 0, len(raw))
	for _, seg := range raw {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Start > seg.End {
			// Malformed timing from the model; drop the segment,
			// not the video.
			continue
		}
		seg.Text = text
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return nil, &ExtractionError{VideoID: videoID, Err: fmt.Errorf("transcript produced no usable segments")}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	segments := make([]index.Segment, len(kept))
	for i, seg := range kept {
		segments[i] = index.Segment{
			SegmentID: fmt.Sprintf("%s:%04d", videoID, i),
			VideoID:   videoID,
			Text:      seg.Text,
			Start:     seg.Start,
			End:       seg.End,
			Sequence:  i,
		}
	}
	return segments, nil
}
