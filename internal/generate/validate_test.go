package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storynest/backend/internal/provider"
)

func TestValidateStoryResult(t *testing.T) {
	longEnough := strings.Repeat("Once upon a time ", 5)

	assert.NoError(t, ValidateStoryResult(&provider.StoryResult{Content: longEnough}))

	err := ValidateStoryResult(&provider.StoryResult{Content: "Too short."})
	assert.Error(t, err)
	assert.IsType(t, &ResultInvalidError{}, err)

	assert.Error(t, ValidateStoryResult(&provider.StoryResult{Content: ""}))
	assert.Error(t, ValidateStoryResult(&provider.StoryResult{Content: "   \n\t  "}))

	// Rune count, not byte count: 50 multibyte runes are enough
	assert.NoError(t, ValidateStoryResult(&provider.StoryResult{Content: strings.Repeat("é", 50)}))
}

func TestValidateImageResult(t *testing.T) {
	assert.NoError(t, ValidateImageResult(&provider.ImageResult{URL: "https://img.example.com/cover.png"}))
	assert.NoError(t, ValidateImageResult(&provider.ImageResult{URL: "http://img.example.com/cover.png"}))
	assert.NoError(t, ValidateImageResult(&provider.ImageResult{URL: "data:image/png;base64,aGVsbG8="}))

	assert.Error(t, ValidateImageResult(&provider.ImageResult{URL: ""}))
	assert.Error(t, ValidateImageResult(&provider.ImageResult{URL: "ftp://img.example.com/cover.png"}))
	assert.Error(t, ValidateImageResult(&provider.ImageResult{URL: "data:text/plain;base64,aGVsbG8="}))
}

func TestValidateSpeechResult(t *testing.T) {
	assert.NoError(t, ValidateSpeechResult(&provider.SpeechResult{
		Audio:       []byte{0xff, 0xfb, 0x90},
		ContentType: "audio/mpeg",
	}))

	assert.Error(t, ValidateSpeechResult(&provider.SpeechResult{
		Audio:       nil,
		ContentType: "audio/mpeg",
	}))
	assert.Error(t, ValidateSpeechResult(&provider.SpeechResult{
		Audio:       []byte{0x01},
		ContentType: "application/json",
	}))
}
