package transcript

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper caps uploads at 25 MB; larger files are rejected before the upload.
const whisperMaxFileSize = 25 << 20

type whisperClient struct {
	client *openai.Client
	model  string
}

func newWhisperClient(apiKey, model string) *whisperClient {
	if model == "" {
		model = openai.Whisper1
	}
	return &whisperClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Transcribe sends the audio file to the Whisper API and returns the
// transcript text and detected language.
func (w *whisperClient) Transcribe(ctx context.Context, audioPath string) (text, lang string, err error) {
	if fi, err := os.Stat(audioPath); err == nil && fi.Size() > whisperMaxFileSize {
		return "", "", fmt.Errorf("audio file is %d bytes, over the %d byte Whisper limit", fi.Size(), int64(whisperMaxFileSize))
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", "", err
	}
	return resp.Text, resp.Language, nil
}
