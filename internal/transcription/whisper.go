package transcription

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperClient transcribes audio through the OpenAI Whisper API, using the
// verbose JSON response to get per-segment timing.
type WhisperClient struct {
	client *openai.Client
}

func NewWhisperClient(apiKey string) (*WhisperClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &WhisperClient{client: openai.NewClient(apiKey)}, nil
}

func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	segments := make([]RawSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, RawSegment{
			Text:  s.Text,
			Start: time.Duration(s.Start * float64(time.Second)),
			End:   time.Duration(s.End * float64(time.Second)),
		})
	}
	return segments, nil
}
