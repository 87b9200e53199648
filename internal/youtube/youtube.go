// Package youtube resolves video references and fetches media through
// yt-dlp.
package youtube

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Video is one resolved video reference.
type Video struct {
	ID  string
	URL string
}

// WatchURL returns the canonical watch link for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// TimestampedURL returns a watch link that deep-links to the given offset
// in seconds.
func TimestampedURL(videoID string, seconds int) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, seconds)
}

// ExtractVideoID pulls the video id out of a YouTube URL. It understands
// watch, youtu.be and shorts forms. Returns "" when no id is found.
func ExtractVideoID(url string) string {
	var slug string
	switch {
	case strings.Contains(url, "v="):
		slug = url[strings.Index(url, "v=")+2:]
	case strings.Contains(url, "youtu.be/"):
		slug = url[strings.Index(url, "youtu.be/")+len("youtu.be/"):]
	case strings.Contains(url, "/shorts/"):
		slug = url[strings.Index(url, "/shorts/")+len("/shorts/"):]
	default:
		return ""
	}
	if i := strings.IndexAny(slug, "&?/"); i != -1 {
		slug = slug[:i]
	}
	return slug
}

// IsPlaylist reports whether the URL refers to a playlist rather than a
// single video.
func IsPlaylist(url string) bool {
	return strings.Contains(url, "list=") && !strings.Contains(url, "v=")
}

// ResolveLinks expands a comma-separated list of video and/or playlist URLs
// into an ordered, deduplicated list of videos. Playlists are expanded with
// yt-dlp.
func ResolveLinks(ctx context.Context, input string) ([]Video, error) {
	var videos []Video
	seen := make(map[string]bool)

	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		videos = append(videos, Video{ID: id, URL: WatchURL(id)})
	}

	for _, ref := range strings.Split(input, ",") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if IsPlaylist(ref) {
			ids, err := expandPlaylist(ctx, ref)
			if err != nil {
				return nil, fmt.Errorf("expand playlist %s: %w", ref, err)
			}
			for _, id := range ids {
				add(id)
			}
			continue
		}
		add(ExtractVideoID(ref))
	}

	return videos, nil
}

func expandPlaylist(ctx context.Context, playlistURL string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--flat-playlist",
		"--print", "id",
		playlistURL)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %w\nstderr: %s", err, stderr.String())
	}

	var ids []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}
