// Package extractor turns YouTube URLs into tagged MP3 files by driving
// yt-dlp and ffmpeg inside per-request temp workspaces.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/tubepull/tubepull/internal/core/config"
	"github.com/tubepull/tubepull/internal/core/ffmpeg"
	"github.com/tubepull/tubepull/internal/core/tags"
	"github.com/tubepull/tubepull/internal/core/ytdlp"
)

const (
	retryCount = 3
	retryDelay = 2 * time.Second

	// Workspaces older than this are swept regardless of keep-latest
	staleWorkspaceAge = 24 * time.Hour

	// Workspaces younger than this are never swept, whatever their rank.
	// Concurrent extractions each hold a workspace the sweeper can't see
	// as in use; no extraction legitimately runs this long.
	workspaceGracePeriod = 1 * time.Hour
)

// Extractor runs the audio extraction pipeline. Safe for concurrent use;
// every extraction gets its own workspace directory.
type Extractor struct {
	runner     *ytdlp.Runner
	tempDir    string
	bitrate    string
	keepLatest int
}

// Result is a finished single-video extraction. FilePath lives inside a temp
// workspace; call Cleanup once the file has been consumed.
type Result struct {
	VideoID  string
	Title    string
	Duration float64
	FilePath string
	Filename string

	workspace string
}

// Cleanup removes the workspace holding FilePath.
func (r *Result) Cleanup() {
	removeWorkspace(r.workspace)
}

// New creates an Extractor from config.
func New(cfg *config.Config) *Extractor {
	return &Extractor{
		runner:     &ytdlp.Runner{CookieFile: cfg.CookieFile},
		tempDir:    cfg.TempDir,
		bitrate:    cfg.Audio.Bitrate,
		keepLatest: cfg.Audio.KeepLatest,
	}
}

// Runner exposes the underlying yt-dlp runner (the transcript service shares
// it so both go through the same cookie file).
func (e *Extractor) Runner() *ytdlp.Runner {
	return e.runner
}

// ExtractAudio downloads the best audio stream of the URL's video, transcodes
// it to MP3, and tags it. Transient failures are retried a few times since
// YouTube intermittently rejects media requests.
func (e *Extractor) ExtractAudio(ctx context.Context, rawURL string) (*Result, error) {
	videoID, err := ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	// A playlist context on the URL only contributes the album name
	albumTitle := e.albumTitle(ctx, rawURL)

	var lastErr error
	for attempt := 1; attempt <= retryCount; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := e.extractOnce(ctx, videoID, albumTitle)
		if err == nil {
			e.sweepWorkspaces(result.workspace)
			return result, nil
		}

		lastErr = err
		log.Printf("[extract] attempt %d/%d failed for %s: %v", attempt, retryCount, videoID, err)
		if attempt < retryCount {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (e *Extractor) extractOnce(ctx context.Context, videoID, albumTitle string) (*Result, error) {
	info, err := e.runner.FetchInfo(ctx, WatchURL(videoID))
	if err != nil {
		return nil, err
	}

	ws, err := e.newWorkspace()
	if err != nil {
		return nil, err
	}

	mp3Path, err := e.extractTrack(ctx, ws, info, albumTitle)
	if err != nil {
		removeWorkspace(ws)
		return nil, err
	}

	safeTitle := SanitizeFilename(info.Title)
	if safeTitle == "" {
		safeTitle = info.ID
	}

	// Live streams and some music entries report no duration in metadata
	duration := info.Duration
	if duration == 0 {
		if d, err := ffmpeg.ProbeDuration(ctx, mp3Path); err == nil {
			duration = d
		}
	}

	return &Result{
		VideoID:   info.ID,
		Title:     info.Title,
		Duration:  duration,
		FilePath:  mp3Path,
		Filename:  safeTitle + ".mp3",
		workspace: ws,
	}, nil
}

// extractTrack runs download → transcode → tag → verify for one video inside
// an existing workspace, returning the MP3 path.
func (e *Extractor) extractTrack(ctx context.Context, ws string, info *ytdlp.VideoInfo, albumTitle string) (string, error) {
	if err := e.runner.DownloadAudio(ctx, WatchURL(info.ID), ws, nil); err != nil {
		return "", err
	}

	srcPath, err := findSourceFile(ws, info.ID)
	if err != nil {
		return "", err
	}

	mp3Path := filepath.Join(ws, info.ID+".mp3")
	if err := ffmpeg.TranscodeMP3(ctx, srcPath, mp3Path, e.bitrate); err != nil {
		return "", err
	}
	os.Remove(srcPath)

	// Tag failures never fail the extraction, matching the metadata-optional
	// contract of the endpoint
	if err := tags.Apply(ctx, mp3Path, metadataFor(info, albumTitle)); err != nil {
		log.Printf("[extract] tagging failed for %s: %v", info.ID, err)
	}

	if err := verifyMP3(mp3Path); err != nil {
		return "", fmt.Errorf("invalid MP3 produced for %s: %w", info.ID, err)
	}
	return mp3Path, nil
}

func metadataFor(info *ytdlp.VideoInfo, albumTitle string) tags.Metadata {
	album := albumTitle
	if album == "" {
		album = info.Album
	}

	year := ""
	if len(info.UploadDate) >= 4 {
		year = info.UploadDate[:4]
	}

	covers := []string{info.Thumbnail}
	for _, t := range info.Thumbnails {
		covers = append(covers, t.URL)
	}
	covers = append(covers,
		"https://i.ytimg.com/vi/"+info.ID+"/maxresdefault.jpg",
		"https://i.ytimg.com/vi/"+info.ID+"/hqdefault.jpg",
	)

	return tags.Metadata{
		Title:     info.Title,
		Artist:    info.Uploader,
		Album:     album,
		Year:      year,
		CoverURLs: covers,
	}
}

// albumTitle resolves the playlist title when the URL carries a list param.
// Failures are non-fatal; the track just gets the default album.
func (e *Extractor) albumTitle(ctx context.Context, rawURL string) string {
	if ParsePlaylistID(rawURL) == "" {
		return ""
	}
	pl, err := e.runner.FetchPlaylist(ctx, rawURL)
	if err != nil {
		log.Printf("[extract] playlist probe failed: %v", err)
		return ""
	}
	if pl.Type != "playlist" {
		return ""
	}
	return pl.Title
}

// findSourceFile locates the audio file yt-dlp wrote for videoID. Thumbnail
// sidecars and partial downloads are not candidates.
func findSourceFile(dir, videoID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, videoID) {
			continue
		}
		switch filepath.Ext(name) {
		case ".mp3", ".webp", ".jpg", ".png", ".part", ".vtt":
			continue
		}
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("downloaded audio file not found for %s", videoID)
}

// verifyMP3 confirms the transcoded file actually decodes as MPEG audio.
func verifyMP3(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return err
	}

	buf := make([]byte, 8192)
	n, err := dec.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if n == 0 {
		return errors.New("no audio frames")
	}
	return nil
}

// Workspace management

func (e *Extractor) newWorkspace() (string, error) {
	ws := filepath.Join(e.tempDir, uuid.NewString())
	if err := os.MkdirAll(ws, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return ws, nil
}

func removeWorkspace(ws string) {
	if ws == "" {
		return
	}
	if err := os.RemoveAll(ws); err != nil {
		log.Printf("[extract] workspace cleanup failed: %v", err)
	}
}

// sweepWorkspaces deletes stale workspace dirs, keeping the newest keepLatest
// plus the one currently in use.
func (e *Extractor) sweepWorkspaces(current string) {
	entries, err := os.ReadDir(e.tempDir)
	if err != nil {
		return
	}

	type dirInfo struct {
		path string
		mod  time.Time
	}
	var dirs []dirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(e.tempDir, entry.Name())
		if path == current {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{path: path, mod: fi.ModTime()})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mod.After(dirs[j].mod) })

	keep := e.keepLatest
	if keep < 0 {
		keep = 0
	}
	now := time.Now()
	stale := now.Add(-staleWorkspaceAge)
	grace := now.Add(-workspaceGracePeriod)
	removed := 0
	for i, d := range dirs {
		switch {
		case d.mod.Before(stale):
			// Old enough to be leftovers from crashed runs
		case i < keep:
			continue
		case d.mod.After(grace):
			// Possibly another request's in-flight workspace
			continue
		}
		removeWorkspace(d.path)
		removed++
	}
	if removed > 0 {
		log.Printf("[extract] swept %d old workspaces", removed)
	}
}

// SanitizeFilename makes a video title safe to use as a filename.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(name)

	result = urlRe.ReplaceAllString(result, "")
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	result = spaceRe.ReplaceAllString(result, " ")

	// Most filesystems cap names at 255 bytes; stay well under to leave room
	// for extensions and index suffixes
	const maxLen = 150
	if len(result) > maxLen {
		runes := []rune(result)
		for len(string(runes)) > maxLen {
			runes = runes[:len(runes)-1]
		}
		result = strings.TrimSpace(string(runes))
	}

	return result
}

var (
	urlRe   = regexp.MustCompile(`https?://[^\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)
