package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ImageResult is the normalized cover illustration output. URL is always
// dereferenceable regardless of which shape the upstream used: a hosted
// URL, or a data URL built from the inline base64 payload.
type ImageResult struct {
	URL string
}

// IsInline reports whether the reference carries the image bytes itself.
func (r *ImageResult) IsInline() bool {
	return strings.HasPrefix(r.URL, "data:")
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage requests one cover illustration. Upstream accounts may
// receive either a hosted URL or an inline base64 payload; both collapse
// into the same reference shape here. A successful response carrying
// neither is a malformed success, not an empty result.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*ImageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Image)
	defer cancel()

	body, _, err := c.postJSON(ctx, "/images/generations", imageRequest{
		Model:  ImageModel,
		Prompt: prompt,
		N:      1,
		Size:   DefaultImageSize,
	})
	if err != nil {
		return nil, err
	}

	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image response: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image response has no data: %w", ErrMalformed)
	}

	first := resp.Data[0]
	switch {
	case first.URL != "":
		return &ImageResult{URL: first.URL}, nil
	case first.B64JSON != "":
		return &ImageResult{URL: "data:image/png;base64," + first.B64JSON}, nil
	default:
		return nil, fmt.Errorf("image response has no url or b64_json: %w", ErrMalformed)
	}
}
