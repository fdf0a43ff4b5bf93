package publisher

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

// Post is one drafted or published social post.
type Post struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
}

// Client is a thin HTTP client for the social publishing service; the
// pipeline only needs draft creation and publish confirmation.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type draftRequest struct {
	ArticleID string   `json:"article_id"`
	Platforms []string `json:"platforms"`
}

// Draft creates posts for the article on the given platforms.
func (c *Client) Draft(ctx context.Context, articleID string, platforms []string) ([]Post, error) {
	body, err := json.Marshal(draftRequest{ArticleID: articleID, Platforms: platforms})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/posts/draft", bytes.NewReader(body))
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
		return nil, fmt.Errorf("publisher service draft: status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// Publish pushes a drafted post live.
func (c *Client) Publish(ctx context.Context, postID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, path.Join("/api/v1/posts", postID, "publish"), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("publisher service publish: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, relPath string, body io.Reader) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	base.Path = path.Join(base.Path, relPath)
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}
