// Package telemetry implements the daemon-side best-effort telemetry
// emitter: a bounded in-memory queue, a background flusher that batches
// events to the configured collector endpoint, and an on-disk spool that
// absorbs failures and replays them once the endpoint recovers.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/platform/httpclient"
	"github.com/joshelvn11/chief/internal/shared"
	"github.com/joshelvn11/chief/pkg/retry"
)

const (
	flushBatchSize       = 250
	shutdownDrainLimit   = 10000
	shutdownReplayLimit  = 1000
	minFlushInterval     = 50 * time.Millisecond
	sendRetryAttempts    = 2
	sendRetryFixedDelay  = 150 * time.Millisecond
)

// Emitter is the daemon's telemetry sink. One Emitter is shared by the
// dispatcher and every run_job invocation it starts.
type Emitter struct {
	settings domain.MonitorSettings
	logger   *slog.Logger
	client   *httpclient.Client

	queue chan domain.MonitorEvent

	dropped        atomic.Int64
	droppedLogged  atomic.Bool
	disabledLogged atomic.Bool

	spoolMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// NewEmitter constructs an Emitter from monitor settings. With disabled
// settings the emitter is inert (Emit is a no-op beyond the one-time
// informational log). With enabled settings Emit queues events at once, and
// nothing is sent until Start launches the flusher.
func NewEmitter(settings domain.MonitorSettings, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	capacity := settings.Buffer.MaxEvents
	if capacity <= 0 {
		capacity = 1
	}
	client := httpclient.New(
		httpclient.WithTimeout(time.Duration(settings.TimeoutMS)*time.Millisecond),
		httpclient.WithLogger(logger),
		httpclient.WithRetries(0, 0),
	)
	return &Emitter{
		settings: settings,
		logger:   logger,
		client:   client,
		queue:    make(chan domain.MonitorEvent, capacity),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Emit enqueues an event without blocking. When the emitter is disabled the
// first call logs an informational notice and every call (including this
// one) is otherwise a no-op. When the queue is full the event is dropped
// and a dropped-events counter is incremented.
func (e *Emitter) Emit(evt domain.MonitorEvent) {
	if !e.settings.Enabled {
		if e.disabledLogged.CompareAndSwap(false, true) {
			e.logger.Info("telemetry disabled, events will not be sent", "endpoint", e.settings.Endpoint)
		}
		return
	}
	select {
	case e.queue <- evt:
	default:
		n := e.dropped.Add(1)
		if e.droppedLogged.CompareAndSwap(false, true) {
			e.logger.Warn("telemetry queue full, dropping event", "dropped_total", n, "event_type", evt.EventType)
		}
	}
}

// DroppedCount returns the number of events dropped for queue overflow
// since the emitter was created.
func (e *Emitter) DroppedCount() int64 {
	return e.dropped.Load()
}

// Start launches the background flusher goroutine. It is a no-op when the
// emitter is disabled. Callers must call Shutdown to stop the flusher and
// drain outstanding events.
func (e *Emitter) Start(ctx context.Context) {
	if !e.settings.Enabled {
		return
	}
	go e.run(ctx)
}

func (e *Emitter) run(ctx context.Context) {
	defer close(e.done)
	interval := time.Duration(e.settings.Buffer.FlushIntervalMS) * time.Millisecond
	if interval < minFlushInterval {
		interval = minFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			e.flushOnce(ctx)
		}
	}
}

// flushOnce drains up to flushBatchSize queued events, attempts to send
// them, spools on failure, then always attempts a bounded replay of any
// previously spooled events.
func (e *Emitter) flushOnce(ctx context.Context) {
	batch := e.drain(flushBatchSize)
	if len(batch) > 0 {
		if err := e.send(ctx, batch); err != nil {
			e.logger.Warn("telemetry batch send failed, spooling", "count", len(batch), "error", err)
			if err := e.spoolAppend(batch); err != nil {
				e.logger.Error("telemetry spool write failed", "error", err)
			}
		}
	}
	e.replay(ctx, flushBatchSize)
}

func (e *Emitter) drain(limit int) []domain.MonitorEvent {
	batch := make([]domain.MonitorEvent, 0, limit)
	for len(batch) < limit {
		select {
		case evt := <-e.queue:
			batch = append(batch, evt)
		default:
			return batch
		}
	}
	return batch
}

// send posts a batch of events as {"events": [...]}, making up to
// sendRetryAttempts attempts in all, a short fixed delay apart, before the
// caller treats the batch as failed.
func (e *Emitter) send(ctx context.Context, events []domain.MonitorEvent) error {
	payloads := make([]map[string]any, len(events))
	for i, evt := range events {
		payloads[i] = evt.ToPayload()
	}
	return e.sendPayloads(ctx, payloads)
}

func (e *Emitter) sendPayloads(ctx context.Context, payloads []map[string]any) error {
	body, err := json.Marshal(map[string]any{"events": payloads})
	if err != nil {
		return shared.Wrapf(shared.ErrTelemetrySend, "encoding batch: %v", err)
	}

	cfg := retry.Config{
		MaxAttempts:  sendRetryAttempts,
		InitialDelay: sendRetryFixedDelay,
		MinDelay:     sendRetryFixedDelay,
		MaxDelay:     sendRetryFixedDelay,
		Multiplier:   1,
		Jitter:       false,
	}

	return retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		url := e.settings.Endpoint + "/v1/events/batch"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return shared.MarkKind(err, shared.KindOperational)
		}
		req.Header.Set("Content-Type", "application/json")
		if e.settings.APIKey != "" {
			req.Header.Set("x-api-key", e.settings.APIKey)
		}
		resp, err := e.client.Do(ctx, req)
		if err != nil {
			return shared.MarkKind(err, shared.KindOperational)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return shared.Wrapf(shared.ErrTelemetrySend, "collector returned status %d", resp.StatusCode)
		}
		return nil
	}, func(err error) bool { return err != nil })
}

func (e *Emitter) spoolAppend(events []domain.MonitorEvent) error {
	e.spoolMu.Lock()
	defer e.spoolMu.Unlock()
	if e.settings.Buffer.SpoolFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.settings.Buffer.SpoolFile), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(e.settings.Buffer.SpoolFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, evt := range events {
		line, err := json.Marshal(evt.ToPayload())
		if err != nil {
			continue
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// replay reads up to limit non-empty lines from the spool file, attempts
// to resend them as a single batch, and rewrites the spool with only the
// unreplayed tail on success. It leaves the spool untouched on failure.
func (e *Emitter) replay(ctx context.Context, limit int) {
	e.spoolMu.Lock()
	defer e.spoolMu.Unlock()

	path := e.settings.Buffer.SpoolFile
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := splitNonEmptyLines(data)
	if len(lines) == 0 {
		return
	}

	take := lines
	rest := []string(nil)
	if len(lines) > limit {
		take = lines[:limit]
		rest = lines[limit:]
	}

	payloads := make([]map[string]any, 0, len(take))
	for _, line := range take {
		var p map[string]any
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			continue
		}
		payloads = append(payloads, p)
	}
	if len(payloads) == 0 {
		return
	}

	if err := e.sendPayloads(ctx, payloads); err != nil {
		return
	}
	if err := os.WriteFile(path, []byte(joinLines(rest)), 0o644); err != nil {
		e.logger.Error("telemetry spool rewrite failed", "error", err)
	}
}

func splitNonEmptyLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if line := string(data[start:i]); line != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}
	if start < len(data) {
		if line := string(data[start:]); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// Shutdown stops the background flusher, drains up to shutdownDrainLimit
// remaining queued events as one final batch (spooling on failure), and
// attempts a final bounded replay of the spool. It returns once all of
// that work has completed or ctx is done.
func (e *Emitter) Shutdown(ctx context.Context) {
	if !e.settings.Enabled {
		return
	}
	close(e.stop)
	<-e.done

	final := e.drain(shutdownDrainLimit)
	if len(final) > 0 {
		if err := e.send(ctx, final); err != nil {
			if err := e.spoolAppend(final); err != nil {
				e.logger.Error("telemetry spool write failed during shutdown", "error", err)
			}
		}
	}
	e.replay(ctx, shutdownReplayLimit)
}

// NewEvent is a small convenience constructor job/dispatcher code uses to
// build a MonitorEvent with the common source_type/event_at fields filled.
func NewEvent(sourceType, eventType, level, message string) domain.MonitorEvent {
	return domain.MonitorEvent{
		SourceType: sourceType,
		EventType:  eventType,
		Level:      level,
		Message:    message,
		EventAt:    time.Now().UTC(),
		Metadata:   map[string]any{},
	}
}
