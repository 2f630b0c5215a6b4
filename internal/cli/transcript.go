package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/transcript"
)

var transcriptOutput string

var transcriptCmd = &cobra.Command{
	Use:   "transcript <url>",
	Short: "Extract a video's transcript from its subtitles",
	Long: `Extract a plain-text transcript from a video's subtitle tracks.
Uploader-provided subtitles are preferred over auto-generated captions.

Examples:
  tubepull transcript "https://www.youtube.com/watch?v=xxxx"
  tubepull transcript -o talk.txt "https://youtu.be/xxxx"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExtractTranscript(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	transcriptCmd.Flags().StringVarP(&transcriptOutput, "output", "o", "", "write transcript to file instead of stdout")
	rootCmd.AddCommand(transcriptCmd)
}

func runExtractTranscript(url string) error {
	cfg := loadConfig()

	ext := extractor.New(cfg)
	svc := transcript.New(cfg, ext.Runner(), ext)

	result, err := svc.Extract(context.Background(), url)
	if err != nil {
		if errors.Is(err, transcript.ErrNoSubtitles) {
			return fmt.Errorf("no subtitles available for this video")
		}
		return err
	}

	if transcriptOutput != "" {
		if err := os.WriteFile(transcriptOutput, []byte(result.Transcript), 0644); err != nil {
			return err
		}
		color.Green("✓ %s (%s, %s)", transcriptOutput, result.Language, result.SubtitleType)
		return nil
	}

	fmt.Println(result.Transcript)
	return nil
}
