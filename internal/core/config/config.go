package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "tubepull"
)

// Environment variables honored on top of the config file. These exist for
// container deployments where mounting a config file is inconvenient.
const (
	EnvTempDir     = "TUBEPULL_TEMP_DIR"
	EnvMaxFileSize = "TUBEPULL_MAX_FILE_SIZE"
	EnvCookieFile  = "TUBEPULL_COOKIE_FILE"
)

// ConfigDir returns the standard config directory for tubepull.
// Windows: %APPDATA%\tubepull\
// macOS/Linux: ~/.config/tubepull/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/tubepull/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// TempDir is where per-request extraction workspaces are created
	TempDir string `yaml:"temp_dir,omitempty"`

	// CookieFile is an optional Netscape-format cookie file passed to yt-dlp
	CookieFile string `yaml:"cookie_file,omitempty"`

	// MaxFileSize caps the size of a single streamed artifact, in bytes.
	// Zero means unlimited.
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`

	// Audio holds MP3 extraction settings
	Audio AudioConfig `yaml:"audio,omitempty"`

	// Subtitles holds transcript extraction settings
	Subtitles SubtitleConfig `yaml:"subtitles,omitempty"`

	// Server configuration for `tubepull serve`
	Server ServerConfig `yaml:"server,omitempty"`

	// OpenAI holds the optional Whisper fallback credentials
	OpenAI OpenAIConfig `yaml:"openai,omitempty"`
}

// AudioConfig holds MP3 extraction settings
type AudioConfig struct {
	// Bitrate for the encoded MP3 (default: "320k")
	Bitrate string `yaml:"bitrate,omitempty"`

	// KeepLatest is how many finished files survive temp cleanup (default: 5)
	KeepLatest int `yaml:"keep_latest,omitempty"`
}

// SubtitleConfig holds transcript extraction settings
type SubtitleConfig struct {
	// Languages tried in order, manual track preferred over auto per language
	// (default: ["ja", "en"])
	Languages []string `yaml:"languages,omitempty"`
}

// ServerConfig holds HTTP server settings for `tubepull serve`
type ServerConfig struct {
	// Port is the HTTP listen port (default: 7783)
	Port int `yaml:"port,omitempty"`

	// MaxConcurrent bounds the extraction worker pool (default: 4).
	// yt-dlp and ffmpeg are memory hungry; keep this low on small hosts.
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`

	// APIKey for authentication (optional, if set extraction requests must
	// include the X-API-Key header)
	APIKey string `yaml:"api_key,omitempty"`

	// OutputDir is where finished job artifacts are moved. Only queued jobs
	// persist files; synchronous extraction streams and cleans up.
	// (default: ./downloads)
	OutputDir string `yaml:"output_dir,omitempty"`
}

// OpenAIConfig enables the Whisper transcription fallback when a video has
// no subtitle track. Disabled unless APIKey is set.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// DefaultTempDir returns the default extraction workspace root.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), AppDirName)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TempDir: DefaultTempDir(),
		Audio: AudioConfig{
			Bitrate:    "320k",
			KeepLatest: 5,
		},
		Subtitles: SubtitleConfig{
			Languages: []string{"ja", "en"},
		},
		Server: ServerConfig{
			Port:          7783,
			MaxConcurrent: 4,
		},
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/tubepull/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.TempDir = expandPath(cfg.TempDir)
	cfg.CookieFile = expandPath(cfg.CookieFile)
	cfg.applyEnv()

	return cfg, nil
}

// LoadOrDefault loads config if it exists, otherwise returns defaults.
// Environment overrides apply either way.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
		cfg.applyEnv()
	}
	return cfg
}

// applyEnv overlays environment variables onto the loaded config.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTempDir); v != "" {
		c.TempDir = expandPath(v)
	}
	if v := os.Getenv(EnvCookieFile); v != "" {
		c.CookieFile = expandPath(v)
	}
	if v := os.Getenv(EnvMaxFileSize); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxFileSize = n
		}
	}
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform
// compatibility for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/tubepull/config.yml
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# tubepull configuration file\n# Run 'tubepull init' to regenerate with defaults\n\n"
	content := header + string(data)

	return os.WriteFile(configPath, []byte(content), 0644)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return "config.yml"
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}
