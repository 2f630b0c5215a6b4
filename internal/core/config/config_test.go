package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty path",
			input:    "",
			expected: "",
		},
		{
			name:     "Absolute path",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:     "Relative path",
			input:    "relative/path",
			expected: "relative/path",
		},
		{
			name:     "Home directory only",
			input:    "~",
			expected: home,
		},
		{
			name:     "Home directory with forward slash",
			input:    "~/tmp",
			expected: filepath.Join(home, "tmp"),
		},
		{
			name:     "Home directory with backslash (simulated)",
			input:    `~\tmp`,
			expected: filepath.Join(home, "tmp"),
		},
		{
			name:     "Invalid tilde use (middle)",
			input:    "/path/~/test",
			expected: "/path/~/test",
		},
		{
			name:     "Invalid tilde use (no separator)",
			input:    "~user",
			expected: "~user", // We don't support ~user expansion
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandPath(tt.input)
			if got != tt.expected {
				t.Errorf("expandPath(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Audio.Bitrate != "320k" {
		t.Errorf("default bitrate = %q; want 320k", cfg.Audio.Bitrate)
	}
	if cfg.Audio.KeepLatest != 5 {
		t.Errorf("default keep_latest = %d; want 5", cfg.Audio.KeepLatest)
	}
	if cfg.Server.Port != 7783 {
		t.Errorf("default port = %d; want 7783", cfg.Server.Port)
	}
	if cfg.Server.MaxConcurrent != 4 {
		t.Errorf("default max_concurrent = %d; want 4", cfg.Server.MaxConcurrent)
	}
	if len(cfg.Subtitles.Languages) != 2 || cfg.Subtitles.Languages[0] != "ja" {
		t.Errorf("default subtitle languages = %v; want [ja en]", cfg.Subtitles.Languages)
	}
	if cfg.TempDir == "" {
		t.Error("default temp dir is empty")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvTempDir, "/srv/tubepull-tmp")
	t.Setenv(EnvMaxFileSize, "1048576")
	t.Setenv(EnvCookieFile, "/etc/tubepull/cookies.txt")

	cfg := DefaultConfig()
	cfg.applyEnv()

	if cfg.TempDir != "/srv/tubepull-tmp" {
		t.Errorf("TempDir = %q; want /srv/tubepull-tmp", cfg.TempDir)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("MaxFileSize = %d; want 1048576", cfg.MaxFileSize)
	}
	if cfg.CookieFile != "/etc/tubepull/cookies.txt" {
		t.Errorf("CookieFile = %q; want /etc/tubepull/cookies.txt", cfg.CookieFile)
	}
}

func TestApplyEnvIgnoresBadSize(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Not a number", "lots"},
		{"Negative", "-1"},
		{"Zero", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvMaxFileSize, tt.value)
			cfg := DefaultConfig()
			cfg.applyEnv()
			if cfg.MaxFileSize != 0 {
				t.Errorf("MaxFileSize = %d; want 0 for %q", cfg.MaxFileSize, tt.value)
			}
		})
	}
}
