package index

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testVideo(id string) VideoRecord {
	return VideoRecord{
		VideoID:      id,
		Title:        "Video " + id,
		OriginalLink: "https://www.youtube.com/watch?v=" + id,
		IngestedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testSegments(videoID string, texts ...string) []Segment {
	segs := make([]Segment, len(texts))
	for i, text := range texts {
		segs[i] = Segment{
			SegmentID: videoID + ":" + string(rune('0'+i)),
			VideoID:   videoID,
			Text:      text,
			Start:     time.Duration(i*10) * time.Second,
			End:       time.Duration(i*10+8) * time.Second,
			Sequence:  i,
		}
	}
	return segs
}

func TestAddAndSearch(t *testing.T) {
	s := NewFileStore(t.TempDir())

	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}
	if err := s.Add(testVideo("abc"), testSegments("abc", "first", "second"), vecs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	hits, err := s.Search([]float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].Segment.Text != "second" {
		t.Errorf("top hit text = %q, want %q", hits[0].Segment.Text, "second")
	}
	if math.Abs(float64(hits[0].Score)-1.0) > 1e-6 {
		t.Errorf("exact-match score = %f, want 1.0", hits[0].Score)
	}
	if hits[0].Video.Title != "Video abc" {
		t.Errorf("hit video title = %q", hits[0].Video.Title)
	}
}

func TestAddDuplicateVideo(t *testing.T) {
	s := NewFileStore(t.TempDir())

	vecs := [][]float32{{1, 0}}
	if err := s.Add(testVideo("abc"), testSegments("abc", "one"), vecs); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	err := s.Add(testVideo("abc"), testSegments("abc", "one"), vecs)
	if !errors.Is(err, ErrDuplicateVideo) {
		t.Fatalf("second Add() error = %v, want ErrDuplicateVideo", err)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d after duplicate add, want 1", s.Count())
	}
}

func TestAddRejectsMisalignedRows(t *testing.T) {
	s := NewFileStore(t.TempDir())

	err := s.Add(testVideo("abc"), testSegments("abc", "one", "two"), [][]float32{{1, 0}})
	if err == nil {
		t.Fatal("Add() with 2 segments and 1 vector succeeded, want error")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d after rejected add, want 0", s.Count())
	}
	if s.Contains("abc") {
		t.Error("Contains() = true after rejected add")
	}
}

func TestRowAlignmentInvariant(t *testing.T) {
	s := NewFileStore(t.TempDir())

	if err := s.Add(testVideo("a"), testSegments("a", "x", "y"), [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(testVideo("b"), testSegments("b", "z"), [][]float32{{1, 1}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if len(s.vectors) != len(s.segments) {
		t.Errorf("vector rows = %d, metadata rows = %d", len(s.vectors), len(s.segments))
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	s := NewFileStore(t.TempDir())

	// Two identical vectors: the earlier row must win.
	if err := s.Add(testVideo("a"), testSegments("a", "early"), [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(testVideo("b"), testSegments("b", "late"), [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	hits, err := s.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits[0].Segment.Text != "early" || hits[1].Segment.Text != "late" {
		t.Errorf("tie order = [%q, %q], want [early, late]", hits[0].Segment.Text, hits[1].Segment.Text)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, err := s.Search([]float32{1, 0}, 5)
	if !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("Search() error = %v, want ErrEmptyIndex", err)
	}
}

func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()

	s := NewFileStore(dir)
	segs := testSegments("abc", "first", "second", "third")
	vecs := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	if err := s.Add(testVideo("abc"), segs, vecs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	loaded := NewFileStore(dir)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("Count() after load = %d, want 3", loaded.Count())
	}
	if !loaded.Contains("abc") {
		t.Error("Contains() = false after load")
	}

	// Sequence order and timing must survive the round trip.
	for i, seg := range loaded.segments {
		if seg.Sequence != i {
			t.Errorf("segment %d has sequence %d", i, seg.Sequence)
		}
		if i > 0 && seg.Start < loaded.segments[i-1].Start {
			t.Errorf("segment %d starts before segment %d", i, i-1)
		}
	}

	// Search behaves identically on the reloaded store.
	hits, err := loaded.Search([]float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Search() after load error = %v", err)
	}
	if hits[0].Segment.Text != "second" {
		t.Errorf("top hit after load = %q, want %q", hits[0].Segment.Text, "second")
	}
}

func TestLoadDetectsRowMismatch(t *testing.T) {
	dir := t.TempDir()

	s := NewFileStore(dir)
	if err := s.Add(testVideo("abc"), testSegments("abc", "one", "two"), [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	// Drop one metadata row so the pair disagrees.
	metaPath := filepath.Join(dir, metadataFileName)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	var meta metadataTable
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatal(err)
	}
	meta.Segments = meta.Segments[:1]
	data, err = json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	loaded := NewFileStore(dir)
	err = loaded.Load()
	var corrupt *CorruptIndexError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Load() error = %v, want CorruptIndexError", err)
	}
	if corrupt.VectorRows != 2 || corrupt.MetadataRows != 1 {
		t.Errorf("CorruptIndexError rows = %d/%d, want 2/1", corrupt.VectorRows, corrupt.MetadataRows)
	}

	// The corrupt store must refuse to search rather than mislead.
	if _, err := loaded.Search([]float32{1, 0}, 1); !errors.As(err, &corrupt) {
		t.Errorf("Search() on corrupt store error = %v, want CorruptIndexError", err)
	}
}

func TestLoadDetectsMissingPairFile(t *testing.T) {
	dir := t.TempDir()

	s := NewFileStore(dir)
	if err := s.Add(testVideo("abc"), testSegments("abc", "one"), [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := os.Remove(filepath.Join(dir, vectorFileName)); err != nil {
		t.Fatal(err)
	}

	loaded := NewFileStore(dir)
	var corrupt *CorruptIndexError
	if err := loaded.Load(); !errors.As(err, &corrupt) {
		t.Fatalf("Load() error = %v, want CorruptIndexError", err)
	}
}

func TestLoadFreshDirectory(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := s.Load(); err != nil {
		t.Fatalf("Load() on fresh dir error = %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestVectorsNormalizedOnInsert(t *testing.T) {
	s := NewFileStore(t.TempDir())

	// Un-normalized insert vector: similarity must still top out at 1.0.
	if err := s.Add(testVideo("abc"), testSegments("abc", "one"), [][]float32{{3, 4}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	hits, err := s.Search([]float32{30, 40}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if math.Abs(float64(hits[0].Score)-1.0) > 1e-6 {
		t.Errorf("score = %f, want 1.0", hits[0].Score)
	}
}
