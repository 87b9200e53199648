package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	vectorFileName   = "vectors.gob"
	metadataFileName = "metadata.json"
)

// vectorArtifact is the persisted form of the vector rows.
type vectorArtifact struct {
	Dimension int
	Vectors   [][]float32
}

// metadataTable is the persisted form of the metadata rows. Segments[i]
// describes Vectors[i] of the vector artifact; the two files are only valid
// as a pair.
type metadataTable struct {
	Videos    []VideoRecord `json:"videos"`
	Segments  []Segment     `json:"segments"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// FileStore is a flat-file Store: all rows live in memory, persistence is a
// vector artifact plus a metadata table written side by side under dataDir.
type FileStore struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	segments  []Segment
	videos    map[string]VideoRecord
	videoIDs  []string // insertion order, for stable persistence
	loadErr   error
	dataDir   string
}

// NewFileStore creates an empty store rooted at dataDir. Call Load to pick
// up a previously persisted index.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		videos:  make(map[string]VideoRecord),
		dataDir: dataDir,
	}
}

// Load reads the persisted vector/metadata pair from disk. A missing pair is
// not an error (fresh store); a half-missing or misaligned pair is reported
// as CorruptIndexError and the store refuses subsequent operations.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vecPath := filepath.Join(s.dataDir, vectorFileName)
	metaPath := filepath.Join(s.dataDir, metadataFileName)

	vecExists := fileExists(vecPath)
	metaExists := fileExists(metaPath)

	if !vecExists && !metaExists {
		return nil
	}
	if vecExists != metaExists {
		missing := vectorFileName
		if vecExists {
			missing = metadataFileName
		}
		s.loadErr = &CorruptIndexError{Reason: fmt.Sprintf("%s is missing", missing)}
		return s.loadErr
	}

	f, err := os.Open(vecPath)
	if err != nil {
		return fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()

	var art vectorArtifact
	if err := gob.NewDecoder(f).Decode(&art); err != nil {
		s.loadErr = &CorruptIndexError{Reason: fmt.Sprintf("decode vector file: %v", err)}
		return s.loadErr
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read metadata file: %w", err)
	}
	var meta metadataTable
	if err := json.Unmarshal(data, &meta); err != nil {
		s.loadErr = &CorruptIndexError{Reason: fmt.Sprintf("decode metadata file: %v", err)}
		return s.loadErr
	}

	if len(art.Vectors) != len(meta.Segments) {
		s.loadErr = &CorruptIndexError{VectorRows: len(art.Vectors), MetadataRows: len(meta.Segments)}
		return s.loadErr
	}
	for i, v := range art.Vectors {
		if len(v) != art.Dimension {
			s.loadErr = &CorruptIndexError{Reason: fmt.Sprintf("vector row %d has dimension %d, want %d", i, len(v), art.Dimension)}
			return s.loadErr
		}
	}

	s.dimension = art.Dimension
	s.vectors = art.Vectors
	s.segments = meta.Segments
	s.videos = make(map[string]VideoRecord, len(meta.Videos))
	s.videoIDs = make([]string, 0, len(meta.Videos))
	for _, v := range meta.Videos {
		s.videos[v.VideoID] = v
		s.videoIDs = append(s.videoIDs, v.VideoID)
	}
	return nil
}

// Add appends one video's segments and vectors. Either every row is added or
// none are; a video that is already present is rejected with
// ErrDuplicateVideo and the store is left untouched.
func (s *FileStore) Add(video VideoRecord, segments []Segment, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return s.loadErr
	}
	if _, ok := s.videos[video.VideoID]; ok {
		return ErrDuplicateVideo
	}
	if len(segments) == 0 {
		return fmt.Errorf("add %s: no segments", video.VideoID)
	}
	if len(segments) != len(vectors) {
		return fmt.Errorf("add %s: %d segments but %d vectors", video.VideoID, len(segments), len(vectors))
	}

	dim := s.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("add %s: vector %d has dimension %d, want %d", video.VideoID, i, len(v), dim)
		}
		normalized[i] = l2normalized(v)
	}

	// All rows validated, mutate in one shot.
	s.dimension = dim
	s.vectors = append(s.vectors, normalized...)
	s.segments = append(s.segments, segments...)
	s.videos[video.VideoID] = video
	s.videoIDs = append(s.videoIDs, video.VideoID)
	return nil
}

// Search scores every row against the query vector and returns the k best,
// ties broken by insertion order.
func (s *FileStore) Search(queryVec []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if len(s.segments) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(queryVec) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index has %d", len(queryVec), s.dimension)
	}
	if k <= 0 {
		k = 5
	}

	q := l2normalized(queryVec)
	hits := make([]Hit, 0, len(s.segments))
	for i, vec := range s.vectors {
		var dot float32
		for j := range vec {
			dot += vec[j] * q[j]
		}
		seg := s.segments[i]
		hits = append(hits, Hit{
			Segment: seg,
			Video:   s.videos[seg.VideoID],
			Score:   dot,
			Row:     i,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Contains reports whether the video is already indexed.
func (s *FileStore) Contains(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.videos[videoID]
	return ok
}

// Video returns the metadata record for an ingested video.
func (s *FileStore) Video(videoID string) (VideoRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[videoID]
	return v, ok
}

// Count returns the number of indexed segments.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Persist writes the vector artifact and metadata table as a linked pair.
// Each file is written to a temp path and renamed so a crash never leaves a
// half-written artifact behind.
func (s *FileStore) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loadErr != nil {
		return s.loadErr
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	videos := make([]VideoRecord, 0, len(s.videoIDs))
	for _, id := range s.videoIDs {
		videos = append(videos, s.videos[id])
	}

	vecPath := filepath.Join(s.dataDir, vectorFileName)
	if err := writeAtomic(vecPath, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(vectorArtifact{
			Dimension: s.dimension,
			Vectors:   s.vectors,
		})
	}); err != nil {
		return fmt.Errorf("write vector file: %w", err)
	}

	meta := metadataTable{
		Videos:    videos,
		Segments:  s.segments,
		UpdatedAt: time.Now(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	metaPath := filepath.Join(s.dataDir, metadataFileName)
	if err := writeAtomic(metaPath, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	}); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// l2normalized returns a unit-length copy of v. A zero vector is returned
// unchanged.
func l2normalized(v []float32) []float32 {
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
