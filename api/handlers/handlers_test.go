package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func perform(t *testing.T, handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return rec
}

func TestRunAutopilotHandlerRejectsMalformedBody(t *testing.T) {
	rec := perform(t, RunAutopilotHandler(nil), `{"mode": "manual"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAutopilotHandlerRejectsUnknownMode(t *testing.T) {
	rec := perform(t, RunAutopilotHandler(nil), `{"mode": "yolo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown mode")
}

func TestRunDiscoveryHandlerRejectsMalformedBody(t *testing.T) {
	rec := perform(t, RunDiscoveryHandler(nil), `{"categories": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunDiscoveryHandlerRejectsUnknownCategory(t *testing.T) {
	rec := perform(t, RunDiscoveryHandler(nil), `{"categories": ["Sport"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown category")
}
