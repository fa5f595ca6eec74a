package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o-mini"

	ollamaDefaultBaseURL = "http://localhost:11434/v1"
	ollamaDefaultModel   = "llama3.2"
)

// chatMessage is a single turn in the Anthropic and OpenAI request formats.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIClient implements Completer using the chat completions API. Any
// OpenAI-compatible server works via BaseURL; the key falls back to
// OPENAI_API_KEY.
type OpenAIClient struct {
	httpBackend
	endpoint string
	keyless  bool
}

func NewOpenAIClient(config ClientConfig) *OpenAIClient {
	return &OpenAIClient{
		httpBackend: newHTTPBackend(ProviderOpenAI, config, openAIDefaultModel, "OPENAI_API_KEY"),
		endpoint:    chatEndpoint(config.BaseURL, openAIEndpoint),
	}
}

// NewOllamaClient points an OpenAIClient at a local Ollama server, which
// needs no key.
func NewOllamaClient(config ClientConfig) *OpenAIClient {
	if config.BaseURL == "" {
		config.BaseURL = ollamaDefaultBaseURL
	}
	if config.Model == "" {
		config.Model = ollamaDefaultModel
	}
	c := NewOpenAIClient(config)
	c.provider = ProviderOllama
	c.keyless = true
	return c
}

// chatEndpoint appends /chat/completions to a base such as http://host/v1.
func chatEndpoint(baseURL, fallback string) string {
	if baseURL == "" {
		return fallback
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

type openAIChatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Available() bool {
	return c.keyless || c.apiKey != ""
}

// Complete returns the first choice's message content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", c.unavailable()
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req := openAIChatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	}

	var resp openAIChatResponse
	status, err := c.post(ctx, c.endpoint, header, req, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s: status %d: %s", c.provider, status, resp.Error.Message)
	}
	if status != http.StatusOK {
		return "", c.statusError(status)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in reply", c.provider)
	}
	return resp.Choices[0].Message.Content, nil
}
