package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"jamesfarrell.me/video-search/internal/api"
	"jamesfarrell.me/video-search/internal/api/handlers"
	"jamesfarrell.me/video-search/internal/config"
	"jamesfarrell.me/video-search/internal/embeddings"
	"jamesfarrell.me/video-search/internal/index"
	"jamesfarrell.me/video-search/internal/pipeline"
	"jamesfarrell.me/video-search/internal/search"
	"jamesfarrell.me/video-search/internal/storage/db"
	"jamesfarrell.me/video-search/internal/storage/postgres"
	"jamesfarrell.me/video-search/internal/transcription"
	"jamesfarrell.me/video-search/internal/youtube"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	switch os.Args[1] {
	case "add":
		runAdd(cfg, os.Args[2:])
	case "search":
		runSearch(cfg, os.Args[2:])
	case "serve":
		runServe(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: videosearch <command> [options]

Commands:
  add     -input <playlist or comma-separated video URLs> [-keep-videos]
  search  -query <text> [-top-k N]
  serve   [-addr :8080]
`)
}

func runAdd(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	input := fs.String("input", "", "playlist URL or comma-separated video URLs")
	keepVideos := fs.Bool("keep-videos", false, "keep downloaded video files locally")
	fs.Parse(args)

	if *input == "" {
		log.Fatal("add: -input is required")
	}

	embedder := newEmbedder(cfg)
	store := openStore(cfg, embedder)
	p := newPipeline(cfg, embedder, store, *keepVideos)

	statuses, err := p.Run(context.Background(), *input)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}
	if err := store.Persist(); err != nil {
		log.Fatalf("Failed to persist index: %v", err)
	}

	summary := pipeline.Summarize(statuses)
	fmt.Printf("Videos processed and database updated (%d added, %d skipped, %d failed).\n",
		summary.Added, summary.Skipped, summary.Failed)
	for _, st := range statuses {
		switch st.State {
		case pipeline.StateAdded:
			fmt.Printf("- %s\n", st.Title)
		case pipeline.StateSkipped:
			fmt.Printf("- %s (already indexed)\n", title(st))
		case pipeline.StateFailed:
			fmt.Printf("- %s FAILED: %s\n", st.VideoID, st.Error)
		}
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func runSearch(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "search query")
	topK := fs.Int("top-k", search.DefaultTopK, "number of results to return")
	fs.Parse(args)

	if *query == "" {
		log.Fatal("search: -query is required")
	}

	embedder := newEmbedder(cfg)
	store := openStore(cfg, embedder)
	engine := search.NewEngine(store, embedder)

	results, err := engine.Search(context.Background(), *query, *topK)
	if err != nil {
		if errors.Is(err, index.ErrEmptyIndex) {
			fmt.Println("No database found. Please add videos first.")
			return
		}
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Println("Top Relevant Videos:")
	fmt.Println()
	for _, v := range results.TopVideos {
		fmt.Printf("Rank %d\n", v.Rank)
		fmt.Printf("Title: %s\n", v.Title)
		fmt.Printf("Relevance Score: %.4f\n", v.Relevance)
		fmt.Printf("Example Text: %s\n", v.ExampleText)
		fmt.Printf("Link: %s\n", v.Link)
		fmt.Println()
	}

	fmt.Println("Detailed Results:")
	fmt.Println()
	for _, s := range results.Segments {
		fmt.Printf("Title: %s\n", s.Title)
		fmt.Printf("Score: %.4f\n", s.Score)
		fmt.Printf("Text: %s\n", s.Text)
		fmt.Printf("Link: %s\n", s.TimestampedLink)
		fmt.Println()
	}
}

func runServe(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	keepVideos := fs.Bool("keep-videos", false, "keep downloaded video files locally")
	fs.Parse(args)

	embedder := newEmbedder(cfg)
	store := openStore(cfg, embedder)
	p := newPipeline(cfg, embedder, store, *keepVideos)
	engine := search.NewEngine(store, embedder)

	h := handlers.New(p, engine, store)
	router := api.NewRouter(h, cfg.ServiceAPIKey)

	log.Printf("Listening on %s", *addr)
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newEmbedder(cfg config.Config) embeddings.Embedder {
	embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}
	return embedder
}

func newTranscriber(cfg config.Config) transcription.Transcriber {
	switch cfg.TranscriptionProvider {
	case config.ProviderLemonfox:
		t, err := transcription.NewLemonfoxClient(cfg.LemonfoxAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize transcriber: %v", err)
		}
		return t
	default:
		t, err := transcription.NewWhisperClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize transcriber: %v", err)
		}
		return t
	}
}

func openStore(cfg config.Config, embedder embeddings.Embedder) index.Store {
	if cfg.Store == config.StorePostgres {
		conn, err := db.NewConnection(db.Config{URL: cfg.DatabaseURL})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		store, err := postgres.NewStore(conn, embedder.Dimension())
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		return store
	}

	store := index.NewFileStore(cfg.IndexDir())
	if err := store.Load(); err != nil {
		var corrupt *index.CorruptIndexError
		if errors.As(err, &corrupt) {
			log.Fatalf("Index is corrupt and cannot be searched: %v", corrupt)
		}
		log.Fatalf("Failed to load index: %v", err)
	}
	return store
}

func newPipeline(cfg config.Config, embedder embeddings.Embedder, store index.Store, keepVideos bool) *pipeline.Pipeline {
	downloader := youtube.NewDownloader(cfg.MediaDir(), cfg.ThumbnailDir(), cfg.TempDir(), keepVideos)
	extractor := transcription.NewExtractor(newTranscriber(cfg))
	return pipeline.New(youtube.ResolveLinks, downloader, extractor, embedder, store, cfg.Workers)
}

func title(st pipeline.VideoStatus) string {
	if st.Title != "" {
		return st.Title
	}
	return st.VideoID
}
