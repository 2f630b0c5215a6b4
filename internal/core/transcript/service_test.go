package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tubepull/tubepull/internal/core/extractor"
)

type fakeTranscriber struct {
	text string
	lang string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, string, error) {
	return f.text, f.lang, f.err
}

type fakeAudioSource struct {
	path string
	err  error
}

func (f *fakeAudioSource) ExtractAudio(ctx context.Context, url string) (*extractor.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &extractor.Result{FilePath: f.path}, nil
}

func TestRenderTranscript(t *testing.T) {
	r := &Result{
		Title:        "Some Talk",
		URL:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Language:     "en",
		SubtitleType: "auto",
		Duration:     "12m34s",
	}
	got := renderTranscript(r, "line one\nline two")

	for _, want := range []string{
		"=== YouTube Transcript ===",
		"Title: Some Talk",
		"URL: https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"Language: en (auto)",
		"Duration: 12m34s",
		"--- Content ---",
		"line one\nline two",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered transcript missing %q:\n%s", want, got)
		}
	}
}

func TestFallbackWhisper(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	s := &Service{
		whisper: &fakeTranscriber{text: "hello from whisper", lang: "english"},
		audio:   &fakeAudioSource{path: audioPath},
	}
	seed := &Result{
		Title:    "Some Talk",
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Duration: "12m34s",
	}

	got, err := s.fallback(context.Background(), seed.URL, seed)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if got.SubtitleType != "whisper" {
		t.Errorf("subtitle_type = %q; want whisper", got.SubtitleType)
	}
	if got.Language != "english" {
		t.Errorf("language = %q; want english", got.Language)
	}
	for _, want := range []string{
		"=== YouTube Transcript ===",
		"Language: english (whisper)",
		"hello from whisper",
	} {
		if !strings.Contains(got.Transcript, want) {
			t.Errorf("transcript missing %q:\n%s", want, got.Transcript)
		}
	}
}

func TestFallbackWithoutClient(t *testing.T) {
	s := &Service{}

	if _, err := s.fallback(context.Background(), "https://youtu.be/dQw4w9WgXcQ", &Result{}); !errors.Is(err, ErrNoSubtitles) {
		t.Errorf("fallback without client = %v; want ErrNoSubtitles", err)
	}
}

func TestFallbackAudioFailure(t *testing.T) {
	s := &Service{
		whisper: &fakeTranscriber{text: "unused"},
		audio:   &fakeAudioSource{err: errors.New("download failed")},
	}

	if _, err := s.fallback(context.Background(), "https://youtu.be/dQw4w9WgXcQ", &Result{}); err == nil {
		t.Error("fallback should surface audio extraction failures")
	}
}

func TestWhisperSizeGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.mp3")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// Sparse file just over the upload limit
	if err := f.Truncate(whisperMaxFileSize + 1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	w := &whisperClient{model: "whisper-1"}
	if _, _, err := w.Transcribe(context.Background(), path); err == nil {
		t.Error("oversized audio should be rejected before upload")
	}
}

func TestSubsWorkspaceCreatesTempRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "tubepull")
	s := &Service{tempDir: root}

	ws, err := s.subsWorkspace()
	if err != nil {
		t.Fatalf("subsWorkspace with missing temp root: %v", err)
	}
	if !strings.HasPrefix(ws, root) {
		t.Errorf("workspace %q not under temp root %q", ws, root)
	}
	if fi, err := os.Stat(ws); err != nil || !fi.IsDir() {
		t.Errorf("workspace was not created: %v", err)
	}
}

func TestReadVTT(t *testing.T) {
	dir := t.TempDir()
	exact := filepath.Join(dir, "dQw4w9WgXcQ.ja.vtt")
	if err := os.WriteFile(exact, []byte("WEBVTT\nexact"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := readVTT(dir, "dQw4w9WgXcQ", "ja")
	if err != nil {
		t.Fatalf("readVTT: %v", err)
	}
	if !strings.Contains(data, "exact") {
		t.Errorf("readVTT = %q; want exact file contents", data)
	}

	// Lang-tag variation falls back to any VTT
	other := t.TempDir()
	variant := filepath.Join(other, "dQw4w9WgXcQ.ja-JP.vtt")
	if err := os.WriteFile(variant, []byte("WEBVTT\nvariant"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err = readVTT(other, "dQw4w9WgXcQ", "ja")
	if err != nil {
		t.Fatalf("readVTT fallback: %v", err)
	}
	if !strings.Contains(data, "variant") {
		t.Errorf("readVTT fallback = %q; want variant contents", data)
	}

	// Empty dir is the no-subtitles case
	if _, err := readVTT(t.TempDir(), "dQw4w9WgXcQ", "ja"); err != ErrNoSubtitles {
		t.Errorf("readVTT on empty dir = %v; want ErrNoSubtitles", err)
	}
}
