package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linksum/internal/config"
	"linksum/internal/logger"
)

func testClient(t *testing.T, completionContent string) (*Client, *httptest.Server) {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": completionContent}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(api.Close)

	cfg := config.SummarizerConfig{
		APIKey:         "test-key",
		Model:          "test-model",
		Endpoint:       api.URL,
		TargetLanguage: "ja",
		Timeout:        5 * time.Second,
		FetchTimeout:   5 * time.Second,
	}
	c := NewClient(cfg, logger.NopLogger())
	c.retryPolicy.MaxAttempts = 1
	return c, api
}

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarize_HappyPath(t *testing.T) {
	reply := `{"summary":"a fine article","language":"en","body_translated":"立派な記事"}`
	c, _ := testClient(t, reply)

	page := servePage(t, "<html><body><p>some article text</p></body></html>")

	summary, err := c.Summarize(context.Background(), []string{page.URL})
	require.NoError(t, err)

	assert.Equal(t, "a fine article", summary.Text)
	assert.Equal(t, "en", summary.Language)
	assert.Equal(t, "立派な記事", summary.Translation)
}

func TestSummarize_NoTranslationForTargetLanguage(t *testing.T) {
	reply := `{"summary":"日本語の記事","language":"ja","body_translated":"should be ignored"}`
	c, _ := testClient(t, reply)

	page := servePage(t, "<html><body>日本語の本文</body></html>")

	summary, err := c.Summarize(context.Background(), []string{page.URL})
	require.NoError(t, err)

	assert.Equal(t, "日本語の記事", summary.Text)
	assert.Empty(t, summary.Translation)
}

func TestSummarize_AllFetchesFailed(t *testing.T) {
	c, _ := testClient(t, `{"summary":"unused","language":"en"}`)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(dead.Close)

	_, err := c.Summarize(context.Background(), []string{dead.URL, dead.URL + "/other"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFetchesFailed)
}

func TestSummarize_PartialFetchFailureStillSummarizes(t *testing.T) {
	reply := `{"summary":"the reachable half","language":"en"}`
	c, _ := testClient(t, reply)

	page := servePage(t, "<html><body>reachable</body></html>")
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(dead.Close)

	summary, err := c.Summarize(context.Background(), []string{dead.URL, page.URL})
	require.NoError(t, err)
	assert.Equal(t, "the reachable half", summary.Text)
}

func TestSummarize_NonJSONReplyDeliveredVerbatim(t *testing.T) {
	c, _ := testClient(t, "plain prose, not the requested shape")

	page := servePage(t, "<html><body>text</body></html>")

	summary, err := c.Summarize(context.Background(), []string{page.URL})
	require.NoError(t, err)
	assert.Equal(t, "plain prose, not the requested shape", summary.Text)
	assert.Empty(t, summary.Translation)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain paragraphs",
			html: "<html><body><p>first</p><p>second</p></body></html>",
			want: "first second",
		},
		{
			name: "script and style skipped",
			html: "<html><head><style>p{color:red}</style></head><body><script>alert(1)</script><p>visible</p></body></html>",
			want: "visible",
		},
		{
			name: "whitespace collapsed",
			html: "<body><p>  spaced \n\n out  </p></body>",
			want: "spaced out",
		},
		{
			name: "empty document",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText(strings.NewReader(tt.html)))
		})
	}
}
