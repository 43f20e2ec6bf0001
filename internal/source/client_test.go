package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, MaxRetries: 0}, nil)
}

func TestClient_FetchBatch_ParsesCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candidates/", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c1"},{"id":"c2"}]`))
	})

	batch, err := c.FetchBatch(context.Background(), 50, 100)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "c1", batch[0].ID)
}

func TestClient_FetchBatch_EmptyArraySignalsEndOfStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	batch, err := c.FetchBatch(context.Background(), 500, 0)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestClient_FetchBatch_NonTwoXXIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.FetchBatch(context.Background(), 500, 0)
	assert.Error(t, err)
}

func TestClient_FetchBatch_BadPayloadIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.FetchBatch(context.Background(), 500, 0)
	assert.Error(t, err)
}
