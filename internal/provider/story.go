package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// ChatMessage represents one message in the story prompt conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StoryResult is the normalized story text output
type StoryResult struct {
	Content     string
	Model       string
	TotalTokens int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateStory sends the prompt conversation to the chat completions
// endpoint and returns the generated story text.
func (c *Client) GenerateStory(ctx context.Context, messages []ChatMessage) (*StoryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Story)
	defer cancel()

	body, _, err := c.postJSON(ctx, "/chat/completions", chatRequest{
		Model:       StoryModel,
		Messages:    messages,
		Temperature: StoryTemperature,
	})
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat response: %w", ErrMalformed)
	}

	return &StoryResult{
		Content:     resp.Choices[0].Message.Content,
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
