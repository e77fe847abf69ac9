package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/OmChillure/modern-chat/internal/models"
)

// Sender issues the outbound chat request. The caller owns the response body.
type Sender interface {
	Send(ctx context.Context, text string) (*http.Response, error)
}

// Client posts messages to the backend's /chat endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a Client for the backend at baseURL. When httpClient is nil a client without a timeout
// is used: the request waits until the server answers or ctx is cancelled.
func NewClient(baseURL string, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/chat",
		client:   httpClient,
	}
}

// Send posts {"message": text} as JSON and returns the response as soon as its headers arrive, whatever the
// status.
func (c Client) Send(ctx context.Context, text string) (*http.Response, error) {
	body, err := json.Marshal(models.ChatRequest{Message: text})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}
