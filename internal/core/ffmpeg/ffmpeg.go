// Package ffmpeg wraps the external ffmpeg/ffprobe binaries for MP3
// transcoding.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	ffmpegBinary  = "ffmpeg"
	ffprobeBinary = "ffprobe"

	// Fixed MP3 output parameters, matching what music players expect
	sampleRate = "44100"
	channels   = "2"
)

// ErrNotInstalled indicates ffmpeg is missing from PATH.
var ErrNotInstalled = errors.New("ffmpeg not found in PATH")

// Available checks if ffmpeg is installed and available in PATH
func Available() bool {
	_, err := exec.LookPath(ffmpegBinary)
	return err == nil
}

// VersionLine returns the first line of `ffmpeg -version`, for logging.
func VersionLine() string {
	out, err := exec.Command(ffmpegBinary, "-version").Output()
	if err != nil {
		return ""
	}
	return strings.Split(string(out), "\n")[0]
}

// TranscodeArgs builds the ffmpeg argument list for an MP3 transcode.
// Split out so tests can check the command line without running ffmpeg.
func TranscodeArgs(inputPath, outputPath, bitrate string) []string {
	if bitrate == "" {
		bitrate = "320k"
	}
	return []string{
		"-i", inputPath,
		"-vn",
		"-ar", sampleRate,
		"-ac", channels,
		"-b:a", bitrate,
		"-y",
		outputPath,
	}
}

// TranscodeMP3 re-encodes the downloaded audio stream into an MP3 file.
// ffmpeg's combined output is folded into the error on failure.
func TranscodeMP3(ctx context.Context, inputPath, outputPath, bitrate string) error {
	if !Available() {
		return ErrNotInstalled
	}

	if v := VersionLine(); v != "" {
		log.Printf("[ffmpeg] version: %s", v)
	}

	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input file not found: %w", err)
	}
	log.Printf("[ffmpeg] input: %s (%d bytes)", inputPath, inputInfo.Size())

	args := TranscodeArgs(inputPath, outputPath, bitrate)
	log.Printf("[ffmpeg] command: ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("[ffmpeg] ERROR: transcode failed: %v", err)
		log.Printf("[ffmpeg] output:\n%s", string(output))
		return fmt.Errorf("ffmpeg transcode failed: %w\nOutput: %s", err, lastLines(string(output), 5))
	}

	outputInfo, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if outputInfo.Size() == 0 {
		return fmt.Errorf("transcode produced an empty file: %s", outputPath)
	}

	log.Printf("[ffmpeg] output: %s (%d bytes)", outputPath, outputInfo.Size())
	return nil
}

// ProbeDuration returns the duration of a media file in seconds, via ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	if _, err := exec.LookPath(ffprobeBinary); err != nil {
		return 0, ErrNotInstalled
	}

	cmd := exec.CommandContext(ctx, ffprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
