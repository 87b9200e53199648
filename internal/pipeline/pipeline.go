// Package pipeline orchestrates ingestion: resolve video references, skip
// already-indexed videos, extract segments, embed them and append to the
// index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"jamesfarrell.me/video-search/internal/embeddings"
	"jamesfarrell.me/video-search/internal/index"
	"jamesfarrell.me/video-search/internal/transcription"
	"jamesfarrell.me/video-search/internal/youtube"
)

// State describes the outcome of ingesting one video.
type State string

const (
	StateAdded   State = "added"
	StateSkipped State = "skipped"
	StateFailed  State = "failed"
)

// VideoStatus is the per-video result of an ingestion run.
type VideoStatus struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title,omitempty"`
	State   State  `json:"state"`
	Error   string `json:"error,omitempty"`

	err error
}

// Err returns the underlying error for a failed video.
func (s VideoStatus) Err() error { return s.err }

// Summary aggregates an ingestion run.
type Summary struct {
	Added   int
	Skipped int
	Failed  int
}

// SegmentExtractor produces a video's ordered segments from its audio.
type SegmentExtractor interface {
	Extract(ctx context.Context, videoID, audioPath string) ([]index.Segment, error)
}

// Resolver expands user input into a list of videos.
type Resolver func(ctx context.Context, input string) ([]youtube.Video, error)

// Pipeline ingests videos into a Store. Independent videos are processed on
// parallel workers; Store.Add itself serializes writes.
type Pipeline struct {
	resolve   Resolver
	media     youtube.MediaSource
	extractor SegmentExtractor
	embedder  embeddings.Embedder
	store     index.Store
	workers   int
}

func New(resolve Resolver, media youtube.MediaSource, extractor SegmentExtractor, embedder embeddings.Embedder, store index.Store, workers int) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		resolve:   resolve,
		media:     media,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		workers:   workers,
	}
}

// Run ingests every video referenced by input and returns one status per
// video, in resolution order. A failure on one video never aborts the rest.
func (p *Pipeline) Run(ctx context.Context, input string) ([]VideoStatus, error) {
	videos, err := p.resolve(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("resolve video links: %w", err)
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("no valid video links in input")
	}

	statuses := make([]VideoStatus, len(videos))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)
	for i, video := range videos {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, video youtube.Video) {
			defer wg.Done()
			defer func() { <-sem }()
			statuses[i] = p.ingest(ctx, video)
		}(i, video)
	}
	wg.Wait()

	return statuses, nil
}

func (p *Pipeline) ingest(ctx context.Context, video youtube.Video) VideoStatus {
	if p.store.Contains(video.ID) {
		record, _ := p.store.Video(video.ID)
		return VideoStatus{VideoID: video.ID, Title: record.Title, State: StateSkipped}
	}

	media, err := p.media.Fetch(ctx, video)
	if err != nil {
		// Unreachable or unfetchable media counts as an extraction
		// failure for this video.
		var exErr *transcription.ExtractionError
		if !errors.As(err, &exErr) {
			err = &transcription.ExtractionError{VideoID: video.ID, Err: err}
		}
		return failed(video.ID, "", err)
	}
	defer p.media.Cleanup(media)

	segments, err := p.extractor.Extract(ctx, video.ID, media.AudioPath)
	if err != nil {
		return failed(video.ID, media.Title, err)
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = truncate(seg.Text, embeddings.MaxTextLength)
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return failed(video.ID, media.Title, err)
	}

	record := index.VideoRecord{
		VideoID:       video.ID,
		Title:         media.Title,
		OriginalLink:  video.URL,
		LocalPath:     media.VideoPath,
		ThumbnailPath: media.ThumbnailPath,
		IngestedAt:    time.Now().UTC(),
	}
	if err := p.store.Add(record, segments, vectors); err != nil {
		if errors.Is(err, index.ErrDuplicateVideo) {
			// Another worker got there first; an idempotent skip.
			return VideoStatus{VideoID: video.ID, Title: media.Title, State: StateSkipped}
		}
		return failed(video.ID, media.Title, err)
	}

	return VideoStatus{VideoID: video.ID, Title: media.Title, State: StateAdded}
}

func failed(videoID, title string, err error) VideoStatus {
	return VideoStatus{
		VideoID: videoID,
		Title:   title,
		State:   StateFailed,
		Error:   err.Error(),
		err:     err,
	}
}

// Summarize counts statuses by state.
func Summarize(statuses []VideoStatus) Summary {
	var s Summary
	for _, st := range statuses {
		switch st.State {
		case StateAdded:
			s.Added++
		case StateSkipped:
			s.Skipped++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
