package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL       = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-latest"
)

// AnthropicClient implements Completer using the Anthropic Messages API.
// The key falls back to ANTHROPIC_API_KEY.
type AnthropicClient struct {
	httpBackend
	endpoint string
}

func NewAnthropicClient(config ClientConfig) *AnthropicClient {
	endpoint := config.BaseURL
	if endpoint == "" {
		endpoint = anthropicAPIURL
	}
	return &AnthropicClient{
		httpBackend: newHTTPBackend(ProviderAnthropic, config, anthropicDefaultModel, "ANTHROPIC_API_KEY"),
		endpoint:    endpoint,
	}
}

type anthropicRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

// Complete returns the concatenated text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", c.unavailable()
	}

	req := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	var resp anthropicResponse
	status, err := c.post(ctx, c.endpoint, header, req, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic: status %d: %s: %s", status, resp.Error.Type, resp.Error.Message)
	}
	if status != http.StatusOK {
		return "", c.statusError(status)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content in reply")
	}
	return sb.String(), nil
}
