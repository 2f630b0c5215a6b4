// Package ytdlp wraps the external yt-dlp binary. All metadata extraction and
// media downloading is delegated to it; this package only builds command
// lines, parses its output, and surfaces its errors.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const binary = "yt-dlp"

// ErrNotInstalled indicates yt-dlp is missing from PATH.
var ErrNotInstalled = errors.New("yt-dlp not found in PATH")

// Runner invokes yt-dlp. The zero value is usable; CookieFile is optional.
type Runner struct {
	// CookieFile is a Netscape-format cookie file passed via --cookies.
	// Needed for age-restricted or region-locked videos.
	CookieFile string
}

// VideoInfo is the subset of yt-dlp's --dump-json output we care about.
type VideoInfo struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Uploader   string      `json:"uploader"`
	Album      string      `json:"album"`
	UploadDate string      `json:"upload_date"` // YYYYMMDD
	Duration   float64     `json:"duration"`    // seconds
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	WebpageURL string      `json:"webpage_url"`

	// Subtitle availability per language, split into uploader-provided
	// tracks and auto-generated captions.
	Subtitles         map[string][]SubtitleTrack `json:"subtitles"`
	AutomaticCaptions map[string][]SubtitleTrack `json:"automatic_captions"`
}

// SubtitleTrack is one downloadable subtitle format of a language.
type SubtitleTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// Thumbnail is one entry of the thumbnails list.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Playlist is the result of a flat playlist probe.
type Playlist struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Type    string          `json:"_type"`
	Entries []PlaylistEntry `json:"entries"`
}

// PlaylistEntry is one video of a flat playlist listing.
type PlaylistEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// Available reports whether yt-dlp is on PATH.
func Available() bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// Version runs `yt-dlp --version` and returns the trimmed version string.
func Version(ctx context.Context) (string, error) {
	if !Available() {
		return "", ErrNotInstalled
	}
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp --version failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Runner) baseArgs() []string {
	args := []string{"--no-warnings"}
	if r.CookieFile != "" {
		args = append(args, "--cookies", r.CookieFile)
	}
	return args
}

// FetchInfo retrieves metadata for a single video without downloading it.
func (r *Runner) FetchInfo(ctx context.Context, url string) (*VideoInfo, error) {
	if !Available() {
		return nil, ErrNotInstalled
	}

	args := append(r.baseArgs(),
		"--dump-json",
		"--no-download",
		"--no-playlist",
		url,
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, toolError("fetch video info", err, stderr.Bytes())
	}

	info := &VideoInfo{}
	if err := json.Unmarshal(out, info); err != nil {
		return nil, fmt.Errorf("failed to decode video info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("video not found")
	}
	return info, nil
}

// FetchPlaylist retrieves a flat listing of a playlist without touching the
// individual videos. For a bare video URL the result has no entries.
func (r *Runner) FetchPlaylist(ctx context.Context, url string) (*Playlist, error) {
	if !Available() {
		return nil, ErrNotInstalled
	}

	args := append(r.baseArgs(),
		"--flat-playlist",
		"-J",
		url,
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, toolError("fetch playlist info", err, stderr.Bytes())
	}

	pl := &Playlist{}
	if err := json.Unmarshal(out, pl); err != nil {
		return nil, fmt.Errorf("failed to decode playlist info: %w", err)
	}
	return pl, nil
}

// DownloadAudio downloads the best audio stream of a single video into dir.
// The file is named <id>.<ext>; the caller transcodes it afterwards.
// Progress lines are parsed from yt-dlp's stdout when progressFn is non-nil.
func (r *Runner) DownloadAudio(ctx context.Context, url, dir string, progressFn func(downloaded, total int64)) error {
	if !Available() {
		return ErrNotInstalled
	}

	args := append(r.baseArgs(),
		"-f", "bestaudio/best",
		"--no-playlist",
		"--newline",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		url,
	)

	cmd := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if progressFn == nil {
		if err := cmd.Run(); err != nil {
			return toolError("download audio", err, stderr.Bytes())
		}
		return nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if downloaded, total, ok := parseProgressLine(scanner.Text()); ok {
			progressFn(downloaded, total)
		}
	}

	if err := cmd.Wait(); err != nil {
		return toolError("download audio", err, stderr.Bytes())
	}
	return nil
}

// DownloadSubtitles fetches manual and auto-generated subtitle tracks in VTT
// format into dir, without downloading the video. A missing track is not an
// error here; the caller decides what to do with an empty directory.
func (r *Runner) DownloadSubtitles(ctx context.Context, url, dir string, langs []string) error {
	if !Available() {
		return ErrNotInstalled
	}
	if len(langs) == 0 {
		langs = []string{"ja", "en"}
	}

	args := append(r.baseArgs(),
		"--write-sub",
		"--write-auto-sub",
		"--sub-lang", strings.Join(langs, ","),
		"--sub-format", "vtt",
		"--skip-download",
		"--no-playlist",
		"-o", "%(id)s.%(ext)s",
		url,
	)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return toolError("download subtitles", err, stderr.Bytes())
	}
	return nil
}

// Progress line format: [download]  45.2% of  150.00MiB at  5.00MiB/s ETA 00:15
var progressRe = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%\s+of\s+~?\s*(\d+\.?\d*)(Ki|Mi|Gi)?B`)

func parseProgressLine(line string) (downloaded, total int64, ok bool) {
	matches := progressRe.FindStringSubmatch(line)
	if len(matches) < 3 {
		return 0, 0, false
	}

	percent, _ := strconv.ParseFloat(matches[1], 64)
	size, _ := strconv.ParseFloat(matches[2], 64)

	multiplier := int64(1)
	if len(matches) >= 4 {
		switch matches[3] {
		case "Ki":
			multiplier = 1024
		case "Mi":
			multiplier = 1024 * 1024
		case "Gi":
			multiplier = 1024 * 1024 * 1024
		}
	}

	total = int64(size * float64(multiplier))
	downloaded = int64(float64(total) * percent / 100)
	return downloaded, total, true
}

// toolError wraps an exec failure with the tail of yt-dlp's stderr so the
// HTTP layer can surface the tool's own message to the user.
func toolError(op string, err error, stderr []byte) error {
	msg := stderrTail(stderr)
	if msg == "" {
		return fmt.Errorf("yt-dlp: failed to %s: %w", op, err)
	}
	return fmt.Errorf("yt-dlp: failed to %s: %s", op, msg)
}

func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	// yt-dlp prints the useful diagnostic on its last ERROR line
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "ERROR") {
			return strings.TrimSpace(lines[i])
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
