package generate

import (
	"strings"
	"unicode/utf8"

	"github.com/storynest/backend/internal/provider"
)

// MinStoryLength is the minimum usable story length in runes. Anything
// shorter is a refusal or a truncated completion, not a story.
const MinStoryLength = 50

// ValidateStoryResult decides whether a story completion is usable.
func ValidateStoryResult(res *provider.StoryResult) error {
	content := strings.TrimSpace(res.Content)
	if content == "" {
		return &ResultInvalidError{Reason: "empty story content"}
	}
	if utf8.RuneCountInString(content) < MinStoryLength {
		return &ResultInvalidError{Reason: "story content too short"}
	}
	return nil
}

// ValidateImageResult decides whether an image reference is usable: it
// must dereference either over HTTP or as an inline data URL.
func ValidateImageResult(res *provider.ImageResult) error {
	ref := strings.TrimSpace(res.URL)
	switch {
	case ref == "":
		return &ResultInvalidError{Reason: "empty image reference"}
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return nil
	case strings.HasPrefix(ref, "data:image/"):
		return nil
	default:
		return &ResultInvalidError{Reason: "image reference is neither a URL nor an image data URL"}
	}
}

// ValidateSpeechResult decides whether a narration payload is usable.
func ValidateSpeechResult(res *provider.SpeechResult) error {
	if len(res.Audio) == 0 {
		return &ResultInvalidError{Reason: "empty audio payload"}
	}
	if !strings.HasPrefix(res.ContentType, "audio/") {
		return &ResultInvalidError{Reason: "audio payload has non-audio content type " + res.ContentType}
	}
	return nil
}
