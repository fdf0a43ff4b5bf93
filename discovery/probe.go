package discovery

import (
	"context"
	"io"
	"net/http"
	"time"

	"newspilot/metrics"
)

const probeUserAgent = "Mozilla/5.0 (compatible; newspilot/1.0)"

// Prober verifies a candidate URL is actually fetchable before it may
// become a suggestion. It asks for a small byte window only; the point is
// to distinguish live articles from dead or blocked links, not to read
// them.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

func NewProber() *Prober {
	return &Prober{
		client:  &http.Client{},
		timeout: 8 * time.Second,
	}
}

// Accessible reports whether the URL answers a ranged GET within the
// timeout. Client/server error statuses, network errors and timeouts all
// count as inaccessible; there is no retry.
func (p *Prober) Accessible(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Range", "bytes=0-2047")
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.Global.IncrementProbesFailed()
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))

	// 206 is the expected answer to a ranged request; servers ignoring the
	// Range header answer 200. Everything else means blocked, paywalled or
	// dead.
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
		return true
	}
	metrics.Global.IncrementProbesFailed()
	return false
}
