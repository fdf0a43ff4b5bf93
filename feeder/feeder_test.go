package feeder_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspilot/config"
	"newspilot/feeder"
)

func rssFeed(items string) string {
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Test Feed</title>` + items + `</channel></rss>`
}

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(
		`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate><description>&lt;p&gt;teaser for %s&lt;/p&gt;</description></item>`,
		title, link, published.Format(time.RFC1123Z), title,
	)
}

func TestCollectKeepsOnlyFreshEntries(t *testing.T) {
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(
			rssItem("Fresh discovery", "https://example.com/fresh", now.Add(-2*time.Hour))+
				rssItem("Stale discovery", "https://example.com/stale", now.AddDate(0, 0, -10))+
				`<item><title>Undated</title><link>https://example.com/undated</link></item>`,
		))
	}))
	defer srv.Close()

	agg := feeder.New(feeder.Registry{"Veda": {{Name: "test", URL: srv.URL}}}, 2)
	out, err := agg.Collect(context.Background(), 7, []string{"Veda"})
	require.NoError(t, err)

	require.Len(t, out["Veda"], 1)
	got := out["Veda"][0]
	assert.Equal(t, "https://example.com/fresh", got.URL)
	assert.Equal(t, "Fresh discovery", got.Title)
	assert.Equal(t, "test", got.SourceName)
	assert.Equal(t, "Veda", got.CategoryHint)
	assert.Equal(t, "teaser for Fresh discovery", got.Snippet)
}

func TestCollectCharsetOverride(t *testing.T) {
	// "Věda" in windows-1250 without a declared encoding; the configured
	// charset must win over autodetection
	title := []byte{'V', 0xEC, 'd', 'a'}
	body := []byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>CZ</title><item><title>` +
		string(title) + `</title><link>https://example.com/cz</link><pubDate>` +
		time.Now().Add(-time.Hour).Format(time.RFC1123Z) + `</pubDate></item></channel></rss>`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	agg := feeder.New(feeder.Registry{"Veda": {{Name: "cz", URL: srv.URL, Charset: "windows-1250"}}}, 1)
	out, err := agg.Collect(context.Background(), 7, nil)
	require.NoError(t, err)

	require.Len(t, out["Veda"], 1)
	assert.Equal(t, "Věda", out["Veda"][0].Title)
}

func TestCollectFailingFeedIsIsolated(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(rssItem("Survivor", "https://example.com/ok", time.Now().Add(-time.Hour))))
	}))
	defer good.Close()

	agg := feeder.New(feeder.Registry{
		"Veda":     {{Name: "bad", URL: bad.URL}},
		"Historie": {{Name: "good", URL: good.URL}},
	}, 2)
	out, err := agg.Collect(context.Background(), 7, nil)
	require.NoError(t, err)

	assert.Empty(t, out["Veda"])
	require.Len(t, out["Historie"], 1)
	assert.Equal(t, "https://example.com/ok", out["Historie"][0].URL)
}

func TestCollectCancelledContextReturnsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(rssItem("Never seen", "https://example.com/x", time.Now().Add(-time.Hour))))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := feeder.New(feeder.Registry{"Veda": {{Name: "test", URL: srv.URL}}}, 1)
	out, err := agg.Collect(ctx, 7, []string{"Veda"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out, "a cancelled collection must not hand back a map workers may still touch")
}

func TestRegistryFromConfigSkipsUnknownCategories(t *testing.T) {
	reg := feeder.RegistryFromConfig([]config.FeedCategory{
		{Category: "Veda", Sources: []config.FeedSource{{Name: "a", URL: "https://a.example/feed"}}},
		{Category: "Sport", Sources: []config.FeedSource{{Name: "b", URL: "https://b.example/feed"}}},
	})
	assert.Len(t, reg, 1)
	require.Len(t, reg["Veda"], 1)
	assert.Equal(t, "https://a.example/feed", reg["Veda"][0].URL)
}
