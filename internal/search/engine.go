// Package search answers text queries against the segment index and shapes
// the results for presentation.
package search

import (
	"context"
	"fmt"

	"jamesfarrell.me/video-search/internal/embeddings"
	"jamesfarrell.me/video-search/internal/index"
	"jamesfarrell.me/video-search/internal/youtube"
)

// DefaultTopK matches the original application's default result count.
const DefaultTopK = 5

// defaultFanout oversamples the candidate set so per-video aggregation
// still has topK videos to choose from.
const defaultFanout = 4

// VideoResult is one entry of the top-videos view: a video ranked by its
// best-scoring segment.
type VideoResult struct {
	Rank          int     `json:"rank"`
	VideoID       string  `json:"videoId"`
	Title         string  `json:"title"`
	Link          string  `json:"link"`
	LocalPath     string  `json:"localPath,omitempty"`
	ThumbnailPath string  `json:"thumbnailPath,omitempty"`
	Relevance     float32 `json:"relevance"`
	ExampleText   string  `json:"exampleText"`
}

// SegmentResult is one entry of the detailed view: a single matching
// segment with its timestamp and a deep link into the video.
type SegmentResult struct {
	Rank            int     `json:"rank"`
	SegmentID       string  `json:"segmentId"`
	VideoID         string  `json:"videoId"`
	Title           string  `json:"title"`
	Text            string  `json:"text"`
	Score           float32 `json:"score"`
	TimestampSec    int     `json:"timestampSec"`
	TimestampedLink string  `json:"timestampedLink"`
	ThumbnailPath   string  `json:"thumbnailPath,omitempty"`
	LocalPath       string  `json:"localPath,omitempty"`
}

// Results carries both query views.
type Results struct {
	Query     string          `json:"query"`
	TopVideos []VideoResult   `json:"topVideos"`
	Segments  []SegmentResult `json:"segments"`
}

// Engine embeds queries and runs ranked, deduplicated searches over a Store.
type Engine struct {
	store    index.Store
	embedder embeddings.Embedder
	fanout   int
}

func NewEngine(store index.Store, embedder embeddings.Embedder) *Engine {
	return &Engine{store: store, embedder: embedder, fanout: defaultFanout}
}

// Search embeds the query and returns the top-videos and detailed-segments
// views. ErrEmptyIndex passes through so callers can render "no data".
func (e *Engine) Search(ctx context.Context, query string, topK int) (Results, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return Results{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.store.Search(queryVec, topK*e.fanout)
	if err != nil {
		return Results{}, err
	}

	return Results{
		Query:     query,
		TopVideos: topVideos(hits, topK),
		Segments:  detailedSegments(hits, topK*e.fanout),
	}, nil
}

// topVideos keeps the single best-scoring segment per video. Hits arrive
// ranked, so the first hit for each video is its best.
func topVideos(hits []index.Hit, topK int) []VideoResult {
	seen := make(map[string]bool)
	results := make([]VideoResult, 0, topK)
	for _, hit := range hits {
		if seen[hit.Segment.VideoID] {
			continue
		}
		seen[hit.Segment.VideoID] = true
		results = append(results, VideoResult{
			Rank:          len(results) + 1,
			VideoID:       hit.Video.VideoID,
			Title:         hit.Video.Title,
			Link:          hit.Video.OriginalLink,
			LocalPath:     hit.Video.LocalPath,
			ThumbnailPath: hit.Video.ThumbnailPath,
			Relevance:     hit.Score,
			ExampleText:   hit.Segment.Text,
		})
		if len(results) == topK {
			break
		}
	}
	return results
}

// detailedSegments returns the full ranked segment list, deduplicated by
// segment id.
func detailedSegments(hits []index.Hit, limit int) []SegmentResult {
	seen := make(map[string]bool)
	results := make([]SegmentResult, 0, len(hits))
	for _, hit := range hits {
		if seen[hit.Segment.SegmentID] {
			continue
		}
		seen[hit.Segment.SegmentID] = true
		sec := int(hit.Segment.Start.Seconds())
		results = append(results, SegmentResult{
			Rank:            len(results) + 1,
			SegmentID:       hit.Segment.SegmentID,
			VideoID:         hit.Segment.VideoID,
			Title:           hit.Video.Title,
			Text:            hit.Segment.Text,
			Score:           hit.Score,
			TimestampSec:    sec,
			TimestampedLink: youtube.TimestampedURL(hit.Segment.VideoID, sec),
			ThumbnailPath:   hit.Video.ThumbnailPath,
			LocalPath:       hit.Video.LocalPath,
		})
		if len(results) == limit {
			break
		}
	}
	return results
}
