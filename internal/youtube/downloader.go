package youtube

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Media is what the downloader fetched for one video.
type Media struct {
	Title         string
	AudioPath     string
	VideoPath     string // empty unless KeepVideos is set
	ThumbnailPath string
}

// MediaSource acquires a video's media for processing.
type MediaSource interface {
	Fetch(ctx context.Context, video Video) (Media, error)
	// Cleanup removes media that is not retained after processing.
	Cleanup(media Media)
}

// Downloader fetches audio, thumbnails and optionally the full video file
// through yt-dlp.
type Downloader struct {
	// MediaDir holds retained video files, ThumbnailDir the thumbnails,
	// TempDir the transient audio files.
	MediaDir     string
	ThumbnailDir string
	TempDir      string
	KeepVideos   bool

	run    func(ctx context.Context, args ...string) error
	output func(ctx context.Context, args ...string) (string, error)
}

func NewDownloader(mediaDir, thumbnailDir, tempDir string, keepVideos bool) *Downloader {
	return &Downloader{
		MediaDir:     mediaDir,
		ThumbnailDir: thumbnailDir,
		TempDir:      tempDir,
		KeepVideos:   keepVideos,
		run:          runYtdlp,
		output:       outputYtdlp,
	}
}

// Fetch downloads the video's title, audio track, thumbnail, and (when
// KeepVideos is set) the video file itself.
func (d *Downloader) Fetch(ctx context.Context, video Video) (Media, error) {
	for _, dir := range []string{d.MediaDir, d.ThumbnailDir, d.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Media{}, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	title, err := d.fetchTitle(ctx, video)
	if err != nil {
		return Media{}, err
	}

	media := Media{
		Title:         title,
		AudioPath:     filepath.Join(d.TempDir, video.ID+".mp3"),
		ThumbnailPath: filepath.Join(d.ThumbnailDir, video.ID+".jpg"),
	}

	if err := d.run(ctx,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"-o", media.AudioPath,
		video.URL); err != nil {
		discard(media)
		return Media{}, fmt.Errorf("download audio for %s: %w", video.ID, err)
	}

	if err := d.run(ctx,
		"--skip-download",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"-o", strings.TrimSuffix(media.ThumbnailPath, ".jpg"),
		video.URL); err != nil {
		// A missing thumbnail should not fail the ingestion.
		fmt.Printf("Warning: thumbnail download failed for %s: %v\n", video.ID, err)
		media.ThumbnailPath = ""
	}

	if d.KeepVideos {
		media.VideoPath = filepath.Join(d.MediaDir, video.ID+".mp4")
		if err := d.run(ctx,
			"-f", "mp4",
			"-o", media.VideoPath,
			video.URL); err != nil {
			discard(media)
			return Media{}, fmt.Errorf("download video for %s: %w", video.ID, err)
		}
	}

	return media, nil
}

// discard removes whatever Fetch left on disk for a video it could not
// fully acquire, so a failed download does not accumulate files.
func discard(media Media) {
	for _, path := range []string{media.AudioPath, media.ThumbnailPath, media.VideoPath} {
		if path != "" {
			os.Remove(path)
		}
	}
}

// Cleanup removes the transient audio file.
func (d *Downloader) Cleanup(media Media) {
	if media.AudioPath != "" {
		os.Remove(media.AudioPath)
	}
}

func (d *Downloader) fetchTitle(ctx context.Context, video Video) (string, error) {
	out, err := d.output(ctx, "--skip-download", "--print", "title", video.URL)
	if err != nil {
		return "", fmt.Errorf("fetch title for %s: %w", video.ID, err)
	}
	return strings.TrimSpace(out), nil
}

func runYtdlp(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp: %w\nstderr: %s", err, stderr.String())
	}
	return nil
}

func outputYtdlp(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp: %w\nstderr: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
