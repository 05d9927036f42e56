package monitorclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshelvn11/chief/pkg/monitorclient"
)

func TestClientInertWithoutEndpoint(t *testing.T) {
	os.Unsetenv("CHIEF_MONITOR_ENDPOINT")
	c := monitorclient.FromEnvironment()
	assert.False(t, c.Info("hello", nil))
}

func TestClientPostsEventWithIdentityFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "/v1/events", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("CHIEF_MONITOR_ENDPOINT", srv.URL)
	t.Setenv("CHIEF_MONITOR_API_KEY", "secret")
	t.Setenv("CHIEF_JOB_NAME", "nightly-backup")
	t.Setenv("CHIEF_RUN_ID", "nightly-backup:20260101000000-000000-123")
	t.Setenv("CHIEF_SCRIPT_PATH", "/jobs/backup.sh")

	c := monitorclient.FromEnvironment()
	ok := c.Warn("disk usage high", map[string]any{"jobName": "caller-cannot-override", "percent": 92})
	require.True(t, ok)

	assert.Equal(t, "worker", got["sourceType"])
	assert.Equal(t, "worker.message", got["eventType"])
	assert.Equal(t, "WARN", got["level"])
	assert.Equal(t, "disk usage high", got["message"])
	assert.Equal(t, "nightly-backup", got["jobName"])
	assert.Equal(t, "/jobs/backup.sh", got["scriptPath"])

	// Caller metadata is nested, never merged into the top level, so the
	// identity fields cannot be overridden.
	meta, isMap := got["metadata"].(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, float64(92), meta["percent"])
	assert.Equal(t, "caller-cannot-override", meta["jobName"])
}

func TestClientPostsEmptyMetadataObjectWhenNil(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("CHIEF_MONITOR_ENDPOINT", srv.URL)

	c := monitorclient.FromEnvironment()
	require.True(t, c.Info("all good", nil))

	meta, isMap := got["metadata"].(map[string]any)
	require.True(t, isMap)
	assert.Empty(t, meta)
}
