package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Plain title",
			input: "Never Gonna Give You Up",
			want:  "Never Gonna Give You Up",
		},
		{
			name:  "Path separators",
			input: "AC/DC: Back\\In Black",
			want:  "AC-DC- Back-In Black",
		},
		{
			name:  "Reserved characters",
			input: `What? "Quotes" <and> |pipes|*`,
			want:  "What Quotes and pipes",
		},
		{
			name:  "Embedded URL stripped",
			input: "My Mix https://youtu.be/dQw4w9WgXcQ official",
			want:  "My Mix official",
		},
		{
			name:  "Trailing dots trimmed",
			input: "track...",
			want:  "track",
		},
		{
			name:  "Collapsed whitespace",
			input: "a   b\n\nc",
			want:  "a b c",
		},
		{
			name:  "Empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("あ", 200)
	got := SanitizeFilename(long)
	if len(got) > 150 {
		t.Errorf("sanitized name is %d bytes; want <= 150", len(got))
	}
	if got == "" {
		t.Error("sanitized name should not be empty")
	}
}

func TestFindSourceFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"dQw4w9WgXcQ.webp",
		"dQw4w9WgXcQ.en.vtt",
		"other.webm",
		"dQw4w9WgXcQ.webm",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := findSourceFile(dir, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("findSourceFile: %v", err)
	}
	if want := filepath.Join(dir, "dQw4w9WgXcQ.webm"); got != want {
		t.Errorf("findSourceFile = %q; want %q", got, want)
	}

	if _, err := findSourceFile(dir, "missing12345"); err == nil {
		t.Error("expected error for missing video ID")
	}
}

func makeWorkspace(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	d := filepath.Join(root, name)
	if err := os.Mkdir(d, 0755); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(d, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSweepWorkspaces(t *testing.T) {
	tmp := t.TempDir()
	e := &Extractor{tempDir: tmp, keepLatest: 2}

	// All past the grace period; only the two newest survive the rank cut
	var dirs []string
	for i := 0; i < 4; i++ {
		age := 3*time.Hour - time.Duration(i)*time.Minute
		dirs = append(dirs, makeWorkspace(t, tmp, "ws"+string(rune('a'+i)), age))
	}
	current := filepath.Join(tmp, "current")
	if err := os.Mkdir(current, 0755); err != nil {
		t.Fatal(err)
	}

	e.sweepWorkspaces(current)

	for _, d := range dirs[:2] {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("old workspace %s should have been removed", d)
		}
	}
	for _, d := range dirs[2:] {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("recent workspace %s should have been kept: %v", d, err)
		}
	}
	if _, err := os.Stat(current); err != nil {
		t.Errorf("current workspace should never be swept: %v", err)
	}
}

func TestSweepWorkspacesSparesInFlight(t *testing.T) {
	tmp := t.TempDir()
	e := &Extractor{tempDir: tmp, keepLatest: 1}

	// More fresh workspaces than keepLatest, as with concurrent requests:
	// none may be removed while inside the grace period
	inFlight := []string{
		makeWorkspace(t, tmp, "req1", time.Second),
		makeWorkspace(t, tmp, "req2", 2*time.Second),
		makeWorkspace(t, tmp, "req3", 3*time.Second),
	}
	crashed := makeWorkspace(t, tmp, "crashed", 48*time.Hour)

	e.sweepWorkspaces(filepath.Join(tmp, "current"))

	for _, d := range inFlight {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("fresh workspace %s must survive the sweep: %v", d, err)
		}
	}
	if _, err := os.Stat(crashed); !os.IsNotExist(err) {
		t.Errorf("stale workspace %s should have been removed", crashed)
	}
}

func TestVerifyMP3Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mp3")
	if err := os.WriteFile(path, []byte("not an mp3 at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := verifyMP3(path); err == nil {
		t.Error("expected error for non-MP3 data")
	}
}
