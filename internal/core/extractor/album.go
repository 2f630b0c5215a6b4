package extractor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tubepull/tubepull/internal/core/ytdlp"
)

// AlbumResult is a finished playlist extraction. FilePath points at a ZIP of
// tagged MP3s inside a temp workspace; call Cleanup once consumed.
type AlbumResult struct {
	PlaylistID string
	Title      string
	FilePath   string
	Filename   string
	Tracks     int
	Skipped    int

	workspace string
}

// Cleanup removes the workspace holding FilePath.
func (r *AlbumResult) Cleanup() {
	removeWorkspace(r.workspace)
}

// ProgressFunc reports playlist extraction progress as completed tracks out
// of the playlist total.
type ProgressFunc func(done, total int)

// ExtractAlbum downloads every track of the URL's playlist, converts each to
// a tagged MP3, and bundles them into a ZIP named after the playlist.
// Individual track failures are skipped; the extraction only fails when no
// track could be produced.
func (e *Extractor) ExtractAlbum(ctx context.Context, rawURL string, progress ProgressFunc) (*AlbumResult, error) {
	if ParsePlaylistID(rawURL) == "" {
		return nil, fmt.Errorf("URL carries no playlist ID: %s", rawURL)
	}

	pl, err := e.runner.FetchPlaylist(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if len(pl.Entries) == 0 {
		return nil, fmt.Errorf("playlist %s has no entries", pl.ID)
	}

	ws, err := e.newWorkspace()
	if err != nil {
		return nil, err
	}

	result, err := e.buildAlbum(ctx, ws, pl, progress)
	if err != nil {
		removeWorkspace(ws)
		return nil, err
	}
	e.sweepWorkspaces(ws)
	return result, nil
}

func (e *Extractor) buildAlbum(ctx context.Context, ws string, pl *ytdlp.Playlist, progress ProgressFunc) (*AlbumResult, error) {
	total := len(pl.Entries)
	type track struct {
		path string
		name string
	}
	var tracks []track
	used := map[string]int{}
	skipped := 0

	for i, entry := range pl.Entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		path, title, err := e.albumTrack(ctx, ws, entry.ID, pl.Title)
		if err != nil {
			log.Printf("[extract] skipping track %d/%d (%s): %v", i+1, total, entry.ID, err)
			skipped++
		} else {
			tracks = append(tracks, track{path: path, name: uniqueName(used, title)})
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks could be extracted from playlist %s", pl.ID)
	}

	safeTitle := SanitizeFilename(pl.Title)
	if safeTitle == "" {
		safeTitle = pl.ID
	}

	zipPath := filepath.Join(ws, pl.ID+".zip")
	names := make(map[string]string, len(tracks))
	for _, t := range tracks {
		names[t.path] = t.name
	}
	paths := make([]string, len(tracks))
	for i, t := range tracks {
		paths[i] = t.path
	}
	if err := writeZip(zipPath, paths, names); err != nil {
		return nil, err
	}

	return &AlbumResult{
		PlaylistID: pl.ID,
		Title:      pl.Title,
		FilePath:   zipPath,
		Filename:   safeTitle + ".zip",
		Tracks:     len(tracks),
		Skipped:    skipped,
		workspace:  ws,
	}, nil
}

// albumTrack extracts a single playlist entry with the usual retry policy.
func (e *Extractor) albumTrack(ctx context.Context, ws, videoID, albumTitle string) (path, title string, err error) {
	var lastErr error
	for attempt := 1; attempt <= retryCount; attempt++ {
		var info *ytdlp.VideoInfo
		info, lastErr = e.runner.FetchInfo(ctx, WatchURL(videoID))
		if lastErr == nil {
			path, lastErr = e.extractTrack(ctx, ws, info, albumTitle)
			if lastErr == nil {
				return path, info.Title, nil
			}
		}
		if attempt < retryCount {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return "", "", ctx.Err()
			}
		}
	}
	return "", "", lastErr
}

// uniqueName produces a sanitized MP3 entry name, suffixing duplicates so a
// playlist with repeated titles still yields distinct archive entries.
func uniqueName(used map[string]int, title string) string {
	base := SanitizeFilename(title)
	if base == "" {
		base = "track"
	}
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s (%d).mp3", base, n)
	}
	return base + ".mp3"
}

// writeZip archives the files at paths into zipPath using the entry names
// from names. Entries are stored, not compressed; MP3 doesn't shrink.
func writeZip(zipPath string, paths []string, names map[string]string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range paths {
		if err := addZipEntry(zw, path, names[path]); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}
