package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.0-flash"
)

// GeminiClient implements Completer using the Gemini generateContent REST
// API. The key falls back to GEMINI_API_KEY, then GOOGLE_API_KEY.
type GeminiClient struct {
	httpBackend
	baseURL string
}

func NewGeminiClient(config ClientConfig) *GeminiClient {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiClient{
		httpBackend: newHTTPBackend(ProviderGemini, config, geminiDefaultModel, "GEMINI_API_KEY", "GOOGLE_API_KEY"),
		baseURL:     baseURL,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopP            float64 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

// Complete joins the text parts of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", c.unavailable()
	}

	var req geminiRequest
	req.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	req.GenerationConfig.Temperature = 0.7
	req.GenerationConfig.TopP = 0.9
	req.GenerationConfig.MaxOutputTokens = c.maxTokens

	header := http.Header{}
	header.Set("x-goog-api-key", c.apiKey)
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	var resp geminiResponse
	status, err := c.post(ctx, url, header, req, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini: %s: %s", resp.Error.Status, resp.Error.Message)
	}
	if status != http.StatusOK {
		return "", c.statusError(status)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in reply")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: no text content in reply")
	}
	return sb.String(), nil
}
