package discovery

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"newspilot/logger"
)

const (
	enrichTimeout   = 10 * time.Second
	enrichBodyLimit = 512 * 1024
	enrichMaxRunes  = 400
)

// Enricher fills in a snippet for accessible candidates whose feed entry
// carried none, so the classifier has something to work with. Extraction
// failures just leave the snippet empty.
type Enricher struct {
	client *http.Client
}

func NewEnricher() *Enricher {
	return &Enricher{client: &http.Client{}}
}

// Snippet fetches the page and extracts the lead text, readability first
// with a trafilatura fallback.
func (e *Enricher) Snippet(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, enrichBodyLimit))
	if err != nil {
		return ""
	}

	text := extractText(string(body))
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > enrichMaxRunes {
		runes = runes[:enrichMaxRunes]
	}
	return string(runes)
}

func extractText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	if article, err := readability.FromDocument(doc, nil); err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent
	}

	article, err := trafilatura.Extract(strings.NewReader(htmlStr), trafilatura.Options{})
	if err != nil {
		logger.Log.Debugf("enrich: extraction failed: %v", err)
		return ""
	}
	return article.ContentText
}
