package provider

import (
	"context"
	"strings"
)

// SpeechResult is the normalized narration output: raw audio bytes plus
// the declared content type. Any transport encoding (base64 for JSON
// transit, say) is the caller's concern, not part of the result.
type SpeechResult struct {
	Audio       []byte
	ContentType string
}

type speechRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

// GenerateSpeech narrates the given text with the requested voice,
// falling back to the default voice when none is given.
func (c *Client) GenerateSpeech(ctx context.Context, text, voice string) (*SpeechResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Speech)
	defer cancel()

	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = DefaultVoice
	}

	body, contentType, err := c.postJSON(ctx, "/audio/speech", speechRequest{
		Model:  SpeechModel,
		Input:  text,
		Voice:  voice,
		Format: "mp3",
	})
	if err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &SpeechResult{
		Audio:       body,
		ContentType: contentType,
	}, nil
}
