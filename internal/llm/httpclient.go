package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// maxReplyBytes bounds how much of a provider reply is read.
const maxReplyBytes = 4 << 20

// httpBackend is the state shared by the HTTP completers.
type httpBackend struct {
	provider  string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// newHTTPBackend applies defaults to config. The key comes from config first,
// then from the first non-empty variable in envKeys.
func newHTTPBackend(provider string, config ClientConfig, defaultModel string, envKeys ...string) httpBackend {
	b := httpBackend{
		provider:  provider,
		apiKey:    config.APIKey,
		model:     config.Model,
		maxTokens: config.MaxTokens,
	}
	for _, k := range envKeys {
		if b.apiKey != "" {
			break
		}
		b.apiKey = os.Getenv(k)
	}
	if b.model == "" {
		b.model = defaultModel
	}
	if b.maxTokens == 0 {
		b.maxTokens = DefaultConfig().MaxTokens
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	b.client = &http.Client{Timeout: timeout}
	return b
}

// post sends body as JSON and decodes the reply into out, returning the HTTP
// status. A reply that is not JSON is an error carrying the status and text;
// providers inspect their own error envelope for the rest.
func (b *httpBackend) post(ctx context.Context, url string, header http.Header, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("%s: marshaling request: %w", b.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%s: creating request: %w", b.provider, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: sending request: %w", b.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: reading reply: %w", b.provider, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("%s: status %d: %s", b.provider, resp.StatusCode, truncate(string(raw), 300))
		}
		return resp.StatusCode, fmt.Errorf("%s: parsing reply: %w", b.provider, err)
	}
	return resp.StatusCode, nil
}

// statusError reports a non-200 reply whose envelope carried no error.
func (b *httpBackend) statusError(status int) error {
	return fmt.Errorf("%s: status %d", b.provider, status)
}

func (b *httpBackend) unavailable() error {
	return fmt.Errorf("%s client not available: missing API key", b.provider)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
