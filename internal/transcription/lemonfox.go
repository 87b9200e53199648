package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

const lemonfoxEndpoint = "https://api.lemonfox.ai/v1/audio/transcriptions"

// LemonfoxClient transcribes audio through the Lemonfox API, requesting VTT
// output and parsing it into segments.
type LemonfoxClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewLemonfoxClient(apiKey string) (*LemonfoxClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Lemonfox API key is required")
	}
	return &LemonfoxClient{
		apiKey:     apiKey,
		endpoint:   lemonfoxEndpoint,
		httpClient: &http.Client{},
	}, nil
}

func (c *LemonfoxClient) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("error copying file data: %w", err)
	}

	writer.WriteField("language", "english")
	writer.WriteField("response_format", "vtt")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription API returned status %d: %s", resp.StatusCode, respBody)
	}

	return parseVTT(string(respBody))
}
