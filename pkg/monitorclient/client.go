// Package monitorclient is the worker-facing telemetry client library: a
// thin wrapper a job's own script can import to emit structured messages
// back to the same collector endpoint the daemon reports to. It reads its
// configuration entirely from the environment overlay chief sets on every
// child process (CHIEF_RUN_ID, CHIEF_JOB_NAME, CHIEF_SCRIPT_PATH,
// CHIEF_SCHEDULED_FOR, CHIEF_MONITOR_ENDPOINT, CHIEF_MONITOR_API_KEY) and
// never returns an error to the caller: a telemetry failure must never
// fail the script that triggered it.
package monitorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/joshelvn11/chief/internal/platform/httpclient"
)

const defaultTimeout = 2 * time.Second

// Client posts worker.message events to the monitor endpoint named by
// CHIEF_MONITOR_ENDPOINT. A Client with an empty endpoint is inert: every
// method returns false without attempting a network call.
type Client struct {
	endpoint     string
	apiKey       string
	runID        string
	jobName      string
	scriptPath   string
	scheduledFor string
	http         *httpclient.Client
}

// FromEnvironment builds a Client from the environment overlay chief sets
// on every script invocation. Safe to call even when monitoring is
// disabled for the job: the resulting Client is simply inert.
func FromEnvironment() *Client {
	return &Client{
		endpoint:     os.Getenv("CHIEF_MONITOR_ENDPOINT"),
		apiKey:       os.Getenv("CHIEF_MONITOR_API_KEY"),
		runID:        os.Getenv("CHIEF_RUN_ID"),
		jobName:      os.Getenv("CHIEF_JOB_NAME"),
		scriptPath:   os.Getenv("CHIEF_SCRIPT_PATH"),
		scheduledFor: os.Getenv("CHIEF_SCHEDULED_FOR"),
		http: httpclient.New(
			httpclient.WithTimeout(defaultTimeout),
			httpclient.WithRetries(2, 100*time.Millisecond),
		),
	}
}

// Debug posts a DEBUG-level worker.message event.
func (c *Client) Debug(message string, metadata map[string]any) bool {
	return c.post("DEBUG", message, metadata)
}

// Info posts an INFO-level worker.message event.
func (c *Client) Info(message string, metadata map[string]any) bool {
	return c.post("INFO", message, metadata)
}

// Warn posts a WARN-level worker.message event.
func (c *Client) Warn(message string, metadata map[string]any) bool {
	return c.post("WARN", message, metadata)
}

// Error posts an ERROR-level worker.message event.
func (c *Client) Error(message string, metadata map[string]any) bool {
	return c.post("ERROR", message, metadata)
}

// Critical posts a CRITICAL-level worker.message event.
func (c *Client) Critical(message string, metadata map[string]any) bool {
	return c.post("CRITICAL", message, metadata)
}

// post builds and sends a single event payload. Caller-supplied metadata
// travels nested under the "metadata" key, the same shape the daemon-side
// emitter produces, so it can never clobber the fixed identity fields.
func (c *Client) post(level, message string, metadata map[string]any) bool {
	if c.endpoint == "" {
		return false
	}

	meta := metadata
	if meta == nil {
		meta = map[string]any{}
	}
	payload := map[string]any{
		"sourceType": "worker",
		"eventType":  "worker.message",
		"level":      level,
		"message":    message,
		"eventAt":    time.Now().UTC().Format(time.RFC3339Nano),
		"metadata":   meta,
	}
	if c.jobName != "" {
		payload["jobName"] = c.jobName
	}
	if c.scriptPath != "" {
		payload["scriptPath"] = c.scriptPath
	}
	if c.runID != "" {
		payload["runId"] = c.runID
	}
	if c.scheduledFor != "" {
		payload["scheduledFor"] = c.scheduledFor
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
