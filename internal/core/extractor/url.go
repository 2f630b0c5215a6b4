package extractor

import (
	"fmt"
	"net/url"
	"strings"
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// ParseVideoID extracts the 11-character video ID from a YouTube watch or
// youtu.be URL. Playlist-only URLs yield an error.
func ParseVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("could not parse URL: %w", err)
	}

	host := strings.ToLower(u.Host)
	if !youtubeHosts[host] {
		return "", fmt.Errorf("not a YouTube URL: %s", host)
	}

	var id string
	if host == "youtu.be" {
		id = strings.Trim(u.Path, "/")
	} else {
		switch {
		case u.Query().Get("v") != "":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/embed/"), "/")
		}
	}

	if len(id) != 11 {
		return "", fmt.Errorf("could not extract a valid video ID from %s", rawURL)
	}
	return id, nil
}

// ParsePlaylistID extracts the playlist ID (the `list` parameter) from a
// YouTube URL, or "" if the URL carries none.
func ParsePlaylistID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !youtubeHosts[strings.ToLower(u.Host)] {
		return ""
	}
	return u.Query().Get("list")
}

// IsValidURL reports whether the URL points at a YouTube video or playlist.
// Radio/Mix URLs (start_radio) count as valid when they carry a video ID;
// only the seed video is processed for those.
func IsValidURL(rawURL string) bool {
	if _, err := ParseVideoID(rawURL); err == nil {
		return true
	}
	return ParsePlaylistID(rawURL) != ""
}

// WatchURL builds a canonical watch URL for a video ID. Used to strip
// playlist context before handing a single video to yt-dlp.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
