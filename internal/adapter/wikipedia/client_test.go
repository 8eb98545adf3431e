package wikipedia

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colloquy/internal/domain"
	"colloquy/internal/infra/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(config.KnowledgeConfig{
		Language:       "en",
		CacheSize:      16,
		RequestsPerMin: 6000, // no throttling in tests
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return c.WithEndpoint(srv.URL)
}

func TestSummaryExactTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "extracts", q.Get("prop"))
		assert.Equal(t, "Go (programming language)", q.Get("titles"))

		fmt.Fprintln(w, `{"query":{"pages":{"12345":{"title":"Go (programming language)","extract":"Go is a statically typed language."}}}}`)
	})

	got, err := c.Summary(context.Background(), "Go (programming language)", "en")
	require.NoError(t, err)
	assert.Equal(t, "Go is a statically typed language.", got)
}

func TestSummarySearchFallback(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			assert.Equal(t, "golang", q.Get("srsearch"))
			fmt.Fprintln(w, `{"query":{"search":[{"title":"Go (programming language)"}]}}`)
		case q.Get("titles") == "golang":
			fmt.Fprintln(w, `{"query":{"pages":{"-1":{"title":"golang","missing":""}}}}`)
		default:
			fmt.Fprintln(w, `{"query":{"pages":{"12345":{"title":"Go (programming language)","extract":"Go summary."}}}}`)
		}
	})

	got, err := c.Summary(context.Background(), "golang", "en")
	require.NoError(t, err)
	assert.Equal(t, "Go summary.", got)
	assert.Equal(t, 3, calls)
}

func TestSummaryNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list") == "search" {
			fmt.Fprintln(w, `{"query":{"search":[]}}`)
			return
		}
		fmt.Fprintln(w, `{"query":{"pages":{"-1":{"title":"x","missing":""}}}}`)
	})

	_, err := c.Summary(context.Background(), "zzzznotathing", "en")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummaryCaching(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintln(w, `{"query":{"pages":{"1":{"title":"Ada","extract":"Ada Lovelace."}}}}`)
	})

	for i := 0; i < 3; i++ {
		got, err := c.Summary(context.Background(), "Ada Lovelace", "en")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace.", got)
	}
	assert.Equal(t, 1, calls)
}

func TestSummaryNotFoundCached(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("list") == "search" {
			fmt.Fprintln(w, `{"query":{"search":[]}}`)
			return
		}
		fmt.Fprintln(w, `{"query":{"pages":{"-1":{"missing":""}}}}`)
	})

	for i := 0; i < 2; i++ {
		_, err := c.Summary(context.Background(), "nothing here", "en")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	// First attempt costs two requests (extract + search); second is cached.
	assert.Equal(t, 2, calls)
}

func TestSummaryEmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.Summary(context.Background(), "", "en")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSummaryServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	})

	_, err := c.Summary(context.Background(), "anything", "en")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
