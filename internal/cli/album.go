package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tubepull/tubepull/internal/core/extractor"
)

var albumCmd = &cobra.Command{
	Use:   "album <playlist-url>",
	Short: "Extract a whole playlist as a ZIP of MP3s",
	Long: `Extract every track of a YouTube playlist to MP3 and bundle them
into a ZIP archive named after the playlist.

Examples:
  tubepull album "https://www.youtube.com/playlist?list=PLxxxx"
  tubepull album -o ~/Music "https://www.youtube.com/watch?v=xxxx&list=PLxxxx"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExtractAlbum(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	albumCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	rootCmd.AddCommand(albumCmd)
}

func runExtractAlbum(url string) error {
	cfg := loadConfig()

	ext := extractor.New(cfg)
	color.Cyan("Extracting album from %s", url)

	progress := func(done, total int) {
		fmt.Printf("\r  track %d/%d", done, total)
		if done == total {
			fmt.Println()
		}
	}

	result, err := ext.ExtractAlbum(context.Background(), url, progress)
	if err != nil {
		return err
	}
	defer result.Cleanup()

	dest := filepath.Join(outputDir, result.Filename)
	if err := saveResult(result.FilePath, dest); err != nil {
		return err
	}

	color.Green("✓ %s (%d tracks)", dest, result.Tracks)
	if result.Skipped > 0 {
		color.Yellow("  %d tracks skipped", result.Skipped)
	}
	return nil
}
