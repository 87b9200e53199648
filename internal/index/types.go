package index

import "time"

// VideoRecord holds the metadata for one ingested video. Records are created
// once at ingestion time and never mutated afterwards.
type VideoRecord struct {
	VideoID       string    `json:"videoId"`
	Title         string    `json:"title"`
	OriginalLink  string    `json:"originalLink"`
	LocalPath     string    `json:"localPath,omitempty"`
	ThumbnailPath string    `json:"thumbnailPath,omitempty"`
	IngestedAt    time.Time `json:"ingestedAt"`
}

// Segment is a time-bounded span of transcribed text within one video.
// Segments are ordered by Sequence within their video.
type Segment struct {
	SegmentID string        `json:"segmentId"`
	VideoID   string        `json:"videoId"`
	Text      string        `json:"text"`
	Start     time.Duration `json:"start"`
	End       time.Duration `json:"end"`
	Sequence  int           `json:"sequence"`
}

// Hit is one search result: a segment, its video metadata and a similarity
// score. Row is the insertion position in the index, used for stable ordering.
type Hit struct {
	Segment Segment
	Video   VideoRecord
	Score   float32
	Row     int
}

// Store is the searchable index over all ingested segments. Implementations
// own both the vector rows and the metadata table and keep them aligned:
// appending to one always appends to the other.
type Store interface {
	// Add appends one video's segments and vectors atomically. It returns
	// ErrDuplicateVideo without modifying the store if the video is already
	// present, making ingestion idempotent.
	Add(video VideoRecord, segments []Segment, vectors [][]float32) error

	// Search returns the k most similar entries for a normalized query
	// vector, best first. Ties are broken by insertion order. Returns
	// ErrEmptyIndex when the store holds no entries.
	Search(queryVec []float32, k int) ([]Hit, error)

	// Contains reports whether a video has already been ingested.
	Contains(videoID string) bool

	// Video returns the metadata record for an ingested video.
	Video(videoID string) (VideoRecord, bool)

	// Count returns the number of indexed segments.
	Count() int

	// Persist flushes the index to durable storage.
	Persist() error
}
