// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Transcription providers.
const (
	ProviderWhisper  = "whisper"
	ProviderLemonfox = "lemonfox"
)

type Config struct {
	// DataDir is the root for the index pair, thumbnails and retained
	// media files.
	DataDir string

	// Store selects the index backend: "file" or "postgres".
	Store       string
	DatabaseURL string

	OpenAIAPIKey   string
	EmbeddingModel string

	// TranscriptionProvider selects "whisper" or "lemonfox".
	TranscriptionProvider string
	LemonfoxAPIKey        string

	// ServiceAPIKey protects the HTTP API.
	ServiceAPIKey string

	Workers int
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := Config{
		DataDir:               getenv("DATA_DIR", "datasets"),
		Store:                 getenv("STORE", StoreFile),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:        getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
		TranscriptionProvider: getenv("TRANSCRIPTION_PROVIDER", ProviderWhisper),
		LemonfoxAPIKey:        os.Getenv("LEMONFOX_API_KEY"),
		ServiceAPIKey:         os.Getenv("SERVICE_API_KEY"),
		Workers:               getenvInt("INGEST_WORKERS", 4),
	}

	switch cfg.Store {
	case StoreFile:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("STORE=postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE %q (want %q or %q)", cfg.Store, StoreFile, StorePostgres)
	}

	switch cfg.TranscriptionProvider {
	case ProviderWhisper:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY environment variable must be set")
		}
	case ProviderLemonfox:
		if cfg.LemonfoxAPIKey == "" {
			return Config{}, fmt.Errorf("TRANSCRIPTION_PROVIDER=lemonfox requires LEMONFOX_API_KEY")
		}
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY environment variable must be set (embeddings)")
		}
	default:
		return Config{}, fmt.Errorf("unknown TRANSCRIPTION_PROVIDER %q", cfg.TranscriptionProvider)
	}

	return cfg, nil
}

// IndexDir is where the file store keeps its vector/metadata pair.
func (c Config) IndexDir() string { return filepath.Join(c.DataDir, "index") }

// MediaDir holds retained video files.
func (c Config) MediaDir() string { return filepath.Join(c.DataDir, "videos") }

// ThumbnailDir holds downloaded thumbnails.
func (c Config) ThumbnailDir() string { return filepath.Join(c.DataDir, "thumbnails") }

// TempDir holds transient audio files.
func (c Config) TempDir() string { return filepath.Join(c.DataDir, "tmp") }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
