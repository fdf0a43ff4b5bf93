package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Article is the generation service's view of a produced artifact. The
// pipeline only cares about its identifier and title.
type Article struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
	Category  string `json:"category"`
	Status    string `json:"status"`
}

// Client is a thin HTTP client for the content generation service. It
// knows nothing about prompts or rendering; it requests an article from a
// source URL and reports success or failure.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 180 * time.Second},
	}
}

type generateRequest struct {
	SourceURL      string `json:"source_url"`
	TargetStatus   string `json:"target_status"`
	ForcedCategory string `json:"forced_category,omitempty"`
}

// Generate asks the service to produce an article from sourceURL.
// targetStatus is "draft" or "published"; forcedCategory pins the article
// category when non-empty.
func (c *Client) Generate(ctx context.Context, sourceURL, targetStatus, forcedCategory string) (*Article, error) {
	body, err := json.Marshal(generateRequest{
		SourceURL:      sourceURL,
		TargetStatus:   targetStatus,
		ForcedCategory: forcedCategory,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/articles/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("generation service: status=%d body=%s", resp.StatusCode, string(b))
	}

	var out Article
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, relPath string, body io.Reader) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	base.Path = path.Join(base.Path, relPath)
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}
