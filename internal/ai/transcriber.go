package ai

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var supportedAudioFormats = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".webm": true,
	".flac": true,
}

// Transcribe turns a Telegram voice note into Spanish text with Whisper. The
// filename's extension decides acceptance before anything leaves the process.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedAudioFormats[ext] {
		return "", fmt.Errorf("unsupported audio format %q", ext)
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.whisperModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: "es",
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("transcription came back empty")
	}
	return text, nil
}
