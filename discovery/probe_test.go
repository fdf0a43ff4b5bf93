package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testProber(timeout time.Duration) *Prober {
	return &Prober{client: &http.Client{}, timeout: timeout}
}

func TestAccessiblePartialContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=0-2047", r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("<html>head</html>"))
	}))
	defer srv.Close()

	assert.True(t, testProber(time.Second).Accessible(context.Background(), srv.URL))
}

func TestAccessibleFullResponse(t *testing.T) {
	// servers that ignore the Range header answer 200
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>full body</html>"))
	}))
	defer srv.Close()

	assert.True(t, testProber(time.Second).Accessible(context.Background(), srv.URL))
}

func TestAccessibleErrorStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		assert.False(t, testProber(time.Second).Accessible(context.Background(), srv.URL), "status %d", status)
		srv.Close()
	}
}

func TestAccessibleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	assert.False(t, testProber(50*time.Millisecond).Accessible(context.Background(), srv.URL))
}

func TestAccessibleDeadHost(t *testing.T) {
	assert.False(t, testProber(time.Second).Accessible(context.Background(), "http://127.0.0.1:1"))
}
