// Package cli implements the tubepull command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tubepull/tubepull/internal/core/config"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/version"
)

var outputDir string

var rootCmd = &cobra.Command{
	Use:     "tubepull [url]",
	Short:   "Extract MP3 audio, albums, and transcripts from YouTube videos",
	Version: version.Version,
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
		if err := runExtractAudio(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
}

func Execute() error {
	return rootCmd.Execute()
}

func runExtractAudio(url string) error {
	cfg := loadConfig()

	ext := extractor.New(cfg)
	color.Cyan("Extracting audio from %s", url)

	result, err := ext.ExtractAudio(context.Background(), url)
	if err != nil {
		return err
	}
	defer result.Cleanup()

	dest := filepath.Join(outputDir, result.Filename)
	if err := saveResult(result.FilePath, dest); err != nil {
		return err
	}

	color.Green("✓ %s", dest)
	return nil
}

// loadConfig loads config, warning once when no config file exists yet.
func loadConfig() *config.Config {
	if !config.Exists() {
		fmt.Fprintf(os.Stderr, "No config file found, using defaults. Run 'tubepull init' to create one.\n")
	}
	return config.LoadOrDefault()
}

// saveResult copies an extracted artifact out of its temp workspace.
func saveResult(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read extracted file: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}
