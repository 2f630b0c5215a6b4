// Package transcript produces plain-text transcripts for YouTube videos from
// their subtitle tracks, with an optional Whisper fallback for videos that
// have none.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tubepull/tubepull/internal/core/config"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/ytdlp"
)

// ErrNoSubtitles indicates the video has no usable subtitle track in any
// configured language and no fallback could produce one.
var ErrNoSubtitles = errors.New("no subtitles available for this video")

// Result is a finished transcript extraction.
type Result struct {
	Transcript   string `json:"transcript"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Language     string `json:"language"`
	Duration     string `json:"duration"`
	SubtitleType string `json:"subtitle_type"` // manual, auto, or whisper
}

// AudioSource produces a local MP3 for a video URL. Used by the Whisper
// fallback; the extractor satisfies it.
type AudioSource interface {
	ExtractAudio(ctx context.Context, url string) (*extractor.Result, error)
}

// transcriber turns an audio file into text with a detected language. The
// Whisper API client satisfies it.
type transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (text, lang string, err error)
}

// Service extracts transcripts. Subtitle tracks are preferred in configured
// language order, uploader-provided before auto-generated within each
// language.
type Service struct {
	runner  *ytdlp.Runner
	tempDir string
	langs   []string
	whisper transcriber
	audio   AudioSource
}

// New creates a transcript Service sharing the extractor's yt-dlp runner.
// The Whisper fallback activates only when an OpenAI API key is configured.
func New(cfg *config.Config, runner *ytdlp.Runner, audio AudioSource) *Service {
	s := &Service{
		runner:  runner,
		tempDir: cfg.TempDir,
		langs:   cfg.Subtitles.Languages,
		audio:   audio,
	}
	if cfg.OpenAI.APIKey != "" && audio != nil {
		s.whisper = newWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}
	return s
}

// Extract fetches the best available subtitle track for the URL's video and
// returns its plain text. Falls back to Whisper transcription when the video
// has no subtitles and a client is configured.
func (s *Service) Extract(ctx context.Context, rawURL string) (*Result, error) {
	videoID, err := extractor.ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	info, err := s.runner.FetchInfo(ctx, extractor.WatchURL(videoID))
	if err != nil {
		return nil, err
	}

	result := &Result{
		Title:    info.Title,
		URL:      rawURL,
		Duration: formatDuration(info.Duration),
	}

	lang, subType := pickTrack(info, s.langs)
	if lang == "" {
		return s.fallback(ctx, rawURL, result)
	}

	text, err := s.downloadTrack(ctx, videoID, lang)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return s.fallback(ctx, rawURL, result)
	}

	result.Language = lang
	result.SubtitleType = subType
	result.Transcript = renderTranscript(result, text)
	return result, nil
}

func (s *Service) fallback(ctx context.Context, rawURL string, result *Result) (*Result, error) {
	if s.whisper == nil {
		return nil, ErrNoSubtitles
	}
	log.Printf("[transcript] no subtitle track, transcribing audio via Whisper")

	text, lang, err := s.transcribeAudio(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	result.Language = lang
	result.SubtitleType = "whisper"
	result.Transcript = renderTranscript(result, text)
	return result, nil
}

func (s *Service) transcribeAudio(ctx context.Context, rawURL string) (text, lang string, err error) {
	audio, err := s.audio.ExtractAudio(ctx, rawURL)
	if err != nil {
		return "", "", err
	}
	defer audio.Cleanup()

	return s.whisper.Transcribe(ctx, audio.FilePath)
}

// downloadTrack fetches a single VTT track and parses it to plain text.
func (s *Service) downloadTrack(ctx context.Context, videoID, lang string) (string, error) {
	ws, err := s.subsWorkspace()
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(ws)

	if err := s.runner.DownloadSubtitles(ctx, extractor.WatchURL(videoID), ws, []string{lang}); err != nil {
		return "", err
	}

	data, err := readVTT(ws, videoID, lang)
	if err != nil {
		return "", err
	}
	return parseVTT(data), nil
}

// subsWorkspace creates a subtitle download workspace. The temp root may not
// exist yet on CLI invocations, so it is created on demand.
func (s *Service) subsWorkspace() (string, error) {
	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create subtitle workspace: %w", err)
	}
	ws, err := os.MkdirTemp(s.tempDir, "subs-")
	if err != nil {
		return "", fmt.Errorf("failed to create subtitle workspace: %w", err)
	}
	return ws, nil
}

// readVTT reads the downloaded subtitle file, tolerating yt-dlp's occasional
// lang-tag variations (ja vs ja-JP) by falling back to any VTT in dir.
func readVTT(dir, videoID, lang string) (string, error) {
	exact := filepath.Join(dir, fmt.Sprintf("%s.%s.vtt", videoID, lang))
	if data, err := os.ReadFile(exact); err == nil {
		return string(data), nil
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if len(matches) == 0 {
		return "", ErrNoSubtitles
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pickTrack chooses the subtitle language and type to use. Within each
// configured language, uploader-provided tracks beat auto-generated ones.
func pickTrack(info *ytdlp.VideoInfo, langs []string) (lang, subType string) {
	for _, l := range langs {
		if len(info.Subtitles[l]) > 0 {
			return l, "manual"
		}
		if len(info.AutomaticCaptions[l]) > 0 {
			return l, "auto"
		}
	}
	return "", ""
}

// renderTranscript prepends the fixed metadata header the browser extension
// expects before the transcript body.
func renderTranscript(r *Result, text string) string {
	return fmt.Sprintf(`=== YouTube Transcript ===
Title: %s
URL: %s
Language: %s (%s)
Duration: %s
--- Content ---
%s`, r.Title, r.URL, r.Language, r.SubtitleType, r.Duration, text)
}

// formatDuration humanizes a duration in seconds, e.g. 45s, 12m34s, 1h2m3s.
func formatDuration(seconds float64) string {
	total := int(seconds)
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		return fmt.Sprintf("%dm%02ds", total/60, total%60)
	default:
		return fmt.Sprintf("%dh%dm%02ds", total/3600, (total%3600)/60, total%60)
	}
}
