// Package postgres implements the segment index on Postgres with the
// pgvector extension.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"jamesfarrell.me/video-search/internal/index"
)

// Store keeps videos and segment embeddings in two Postgres tables. The
// single-table segment layout makes the vector/metadata row alignment
// structural rather than a convention to maintain.
type Store struct {
	db  *sql.DB
	dim int
}

// NewStore creates the schema if needed and returns a Store for vectors of
// the given dimension.
func NewStore(db *sql.DB, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	s := &Store{db: db, dim: dimension}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	const videosSQL = `
		CREATE TABLE IF NOT EXISTS videos (
			video_id       VARCHAR(64) PRIMARY KEY,
			title          TEXT NOT NULL,
			original_link  TEXT NOT NULL,
			local_path     TEXT NOT NULL DEFAULT '',
			thumbnail_path TEXT NOT NULL DEFAULT '',
			ingested_at    TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.Exec(videosSQL); err != nil {
		return fmt.Errorf("create videos table: %w", err)
	}

	segmentsSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS video_segments (
			id         SERIAL PRIMARY KEY,
			segment_id VARCHAR(80) UNIQUE NOT NULL,
			video_id   VARCHAR(64) NOT NULL REFERENCES videos(video_id),
			text       TEXT NOT NULL,
			start_ms   BIGINT NOT NULL,
			end_ms     BIGINT NOT NULL,
			sequence   INT NOT NULL,
			embedding  vector(%d) NOT NULL
		)
	`, s.dim)
	if _, err := s.db.Exec(segmentsSQL); err != nil {
		return fmt.Errorf("create video_segments table: %w", err)
	}
	return nil
}

// Add inserts the video and all its segments in one transaction.
func (s *Store) Add(video index.VideoRecord, segments []index.Segment, vectors [][]float32) error {
	if len(segments) == 0 {
		return fmt.Errorf("add %s: no segments", video.VideoID)
	}
	if len(segments) != len(vectors) {
		return fmt.Errorf("add %s: %d segments but %d vectors", video.VideoID, len(segments), len(vectors))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insertVideo = `
		INSERT INTO videos (video_id, title, original_link, local_path, thumbnail_path, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(insertVideo,
		video.VideoID, video.Title, video.OriginalLink,
		video.LocalPath, video.ThumbnailPath, video.IngestedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return index.ErrDuplicateVideo
		}
		return fmt.Errorf("insert video: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO video_segments (segment_id, video_id, text, start_ms, end_ms, sequence, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for i, seg := range segments {
		if len(vectors[i]) != s.dim {
			return fmt.Errorf("add %s: vector %d has dimension %d, want %d", video.VideoID, i, len(vectors[i]), s.dim)
		}
		if _, err := stmt.Exec(
			seg.SegmentID, seg.VideoID, seg.Text,
			seg.Start.Milliseconds(), seg.End.Milliseconds(), seg.Sequence,
			pgvector.NewVector(normalized(vectors[i])),
		); err != nil {
			return fmt.Errorf("insert segment %s: %w", seg.SegmentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Search returns the k nearest segments by cosine similarity, ties broken
// by insertion order.
func (s *Store) Search(queryVec []float32, k int) ([]index.Hit, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM video_segments`).Scan(&n); err != nil {
		return nil, fmt.Errorf("count segments: %w", err)
	}
	if n == 0 {
		return nil, index.ErrEmptyIndex
	}
	if len(queryVec) != s.dim {
		return nil, fmt.Errorf("query vector has dimension %d, index has %d", len(queryVec), s.dim)
	}
	if k <= 0 {
		k = 5
	}

	rows, err := s.db.Query(`
		SELECT vs.id, vs.segment_id, vs.video_id, vs.text, vs.start_ms, vs.end_ms, vs.sequence,
		       1 - (vs.embedding <=> $1) AS similarity,
		       v.title, v.original_link, v.local_path, v.thumbnail_path, v.ingested_at
		FROM video_segments vs
		JOIN videos v ON v.video_id = vs.video_id
		ORDER BY vs.embedding <=> $1, vs.id
		LIMIT $2
	`, pgvector.NewVector(normalized(queryVec)), k)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var hits []index.Hit
	for rows.Next() {
		var (
			hit            index.Hit
			startMs, endMs int64
			score          float64
		)
		if err := rows.Scan(
			&hit.Row, &hit.Segment.SegmentID, &hit.Segment.VideoID, &hit.Segment.Text,
			&startMs, &endMs, &hit.Segment.Sequence,
			&score,
			&hit.Video.Title, &hit.Video.OriginalLink, &hit.Video.LocalPath,
			&hit.Video.ThumbnailPath, &hit.Video.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hit.Segment.Start = time.Duration(startMs) * time.Millisecond
		hit.Segment.End = time.Duration(endMs) * time.Millisecond
		hit.Video.VideoID = hit.Segment.VideoID
		hit.Score = float32(score)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Contains reports whether a video is already indexed.
func (s *Store) Contains(videoID string) bool {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM videos WHERE video_id = $1)`, videoID).Scan(&exists)
	return err == nil && exists
}

// Video returns the metadata record for an ingested video.
func (s *Store) Video(videoID string) (index.VideoRecord, bool) {
	var v index.VideoRecord
	err := s.db.QueryRow(`
		SELECT video_id, title, original_link, local_path, thumbnail_path, ingested_at
		FROM videos WHERE video_id = $1
	`, videoID).Scan(&v.VideoID, &v.Title, &v.OriginalLink, &v.LocalPath, &v.ThumbnailPath, &v.IngestedAt)
	if err != nil {
		return index.VideoRecord{}, false
	}
	return v, true
}

// Count returns the number of indexed segments.
func (s *Store) Count() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM video_segments`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Persist is a no-op: every Add commits durably.
func (s *Store) Persist() error { return nil }

func normalized(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
