package httpclient_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshelvn11/chief/internal/platform/httpclient"
)

func postJSON(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(`{"events":[]}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDoRetriesOnServerError(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithRetries(3, time.Millisecond))
	resp, err := c.Do(context.Background(), postJSON(t, srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), attempts.Load())
}

func TestDoReplaysBodyAcrossRetries(t *testing.T) {
	var attempts atomic.Int64
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithRetries(2, time.Millisecond))
	resp, err := c.Do(context.Background(), postJSON(t, srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, `{"events":[]}`, lastBody.Load())
}

func TestDoDoesNotRetryWhenDisabled(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithRetries(0, 0))
	resp, err := c.Do(context.Background(), postJSON(t, srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int64(1), attempts.Load())
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithRetries(3, time.Millisecond))
	resp, err := c.Do(context.Background(), postJSON(t, srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int64(1), attempts.Load())
}

func TestDoStopsRetryingWhenContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := httpclient.New(httpclient.WithRetries(5, 50*time.Millisecond))
	_, err := c.Do(ctx, postJSON(t, srv.URL))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoRetriesConnectionRefused(t *testing.T) {
	// A listener that was closed immediately leaves a port nothing is
	// accepting on; every attempt should fail the same way, exhausting
	// the retry budget rather than giving up after one try.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	start := time.Now()
	c := httpclient.New(httpclient.WithRetries(2, time.Millisecond))
	_, err := c.Do(context.Background(), postJSON(t, url))
	require.Error(t, err)
	// Two backoff sleeps happened, so more than zero time passed but the
	// millisecond base keeps the test fast.
	assert.Less(t, time.Since(start), time.Second)
}
