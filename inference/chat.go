package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
)

const defaultChatModel = "command-r-08-2024"

// CohereChat sends single-turn prompts to the Cohere Chat API and returns the
// concatenated assistant text. The relevance verifier is its only caller and
// relies on a constrained one-word response contract.
type CohereChat struct {
	client *cohereclient.Client
	model  string
}

func NewCohereChat(client *cohereclient.Client, model string) *CohereChat {
	if model == "" {
		model = defaultChatModel
	}
	return &CohereChat{client: client, model: model}
}

func (c *CohereChat) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.V2.Chat(
		ctx,
		&cohere.V2ChatRequest{
			Model: c.model,
			Messages: cohere.ChatMessages{
				{
					Role: "user",
					User: &cohere.UserMessageV2{Content: &cohere.UserMessageV2Content{
						String: prompt,
					}},
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("inference: cohere chat: %w", err)
	}
	if resp == nil || resp.Message == nil {
		return "", errors.New("inference: cohere chat returned empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Message.Content {
		if part != nil && part.Text != nil {
			sb.WriteString(part.Text.Text)
		}
	}
	return sb.String(), nil
}

// IsRateLimited reports whether err is an HTTP 429 from the Cohere API.
func IsRateLimited(err error) bool {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
