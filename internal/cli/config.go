package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tubepull/tubepull/internal/core/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tubepull configuration",
}

// tubepull config show - show current config
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadOrDefault()

		fmt.Println("Current configuration:")
		fmt.Printf("  TempDir:       %s\n", cfg.TempDir)
		fmt.Printf("  CookieFile:    %s\n", cfg.CookieFile)
		fmt.Printf("  MaxFileSize:   %d\n", cfg.MaxFileSize)
		fmt.Printf("  Bitrate:       %s\n", cfg.Audio.Bitrate)
		fmt.Printf("  KeepLatest:    %d\n", cfg.Audio.KeepLatest)
		fmt.Printf("  Languages:     %s\n", strings.Join(cfg.Subtitles.Languages, ","))
		fmt.Printf("  Server port:   %d\n", cfg.Server.Port)
		fmt.Printf("  MaxConcurrent: %d\n", cfg.Server.MaxConcurrent)
		fmt.Printf("  Config:        %s\n", config.SavePath())

		if cfg.OpenAI.APIKey != "" {
			fmt.Println("\nWhisper fallback: enabled")
		}
	},
}

// tubepull config path - show config file path
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.SavePath())
	},
}

// tubepull config set KEY VALUE - set a config value
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in config.yml.

Supported keys:
  temp_dir               Extraction workspace root
  cookie_file            Netscape cookie file for yt-dlp
  max_file_size          Artifact size cap in bytes (0 = unlimited)
  audio.bitrate          MP3 bitrate (e.g. 320k)
  audio.keep_latest      Finished files kept by temp cleanup
  subtitles.languages    Comma-separated language priority (e.g. ja,en)
  server.port            Server listen port
  server.max_concurrent  Extraction worker pool size
  server.api_key         Server API key
  server.output_dir      Output directory for queued jobs
  openai.api_key         OpenAI key for the Whisper fallback
  openai.model           Whisper model name

Examples:
  tubepull config set audio.bitrate 256k
  tubepull config set subtitles.languages en
  tubepull config set server.port 9000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadOrDefault()

		if err := setConfigKey(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "temp_dir":
		cfg.TempDir = value
	case "cookie_file":
		cfg.CookieFile = value
	case "max_file_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("max_file_size must be a non-negative integer")
		}
		cfg.MaxFileSize = n
	case "audio.bitrate":
		cfg.Audio.Bitrate = value
	case "audio.keep_latest":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("audio.keep_latest must be a non-negative integer")
		}
		cfg.Audio.KeepLatest = n
	case "subtitles.languages":
		langs := strings.Split(value, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		cfg.Subtitles.Languages = langs
	case "server.port":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("server.port must be a valid port number")
		}
		cfg.Server.Port = n
	case "server.max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("server.max_concurrent must be a positive integer")
		}
		cfg.Server.MaxConcurrent = n
	case "server.api_key":
		cfg.Server.APIKey = value
	case "server.output_dir":
		cfg.Server.OutputDir = value
	case "openai.api_key":
		cfg.OpenAI.APIKey = value
	case "openai.model":
		cfg.OpenAI.Model = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
