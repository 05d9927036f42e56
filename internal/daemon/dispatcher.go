// Package daemon implements chief's long-running dispatcher: a single
// supervising loop that owns every job's JobState, the trigger queue, and
// the active-job interlock, and starts one worker per dispatched job
// invocation.
//
// The queue-one overlap policy re-inserts its deferred trigger at the
// front of the trigger queue once the running instance completes (see
// Dispatcher.drainCompletions). When several distinct jobs are eligible
// at once this can starve later-declared triggers until the re-triggered
// job dispatches; this is accepted behavior, not a bug, because it keeps
// a queue-one job's single deferred run as close as possible to the
// instant its slot freed up.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/execution"
	"github.com/joshelvn11/chief/internal/schedule"
	"github.com/joshelvn11/chief/internal/telemetry"
)

// DefaultPollInterval is the dispatcher's poll cadence when none is
// configured on the command line.
const DefaultPollInterval = 10 * time.Second

type completion struct {
	jobName string
	result  domain.JobRunResult
}

// Dispatcher drives chief's daemon main loop.
type Dispatcher struct {
	runtimes     []domain.JobRuntime
	byName       map[string]domain.JobRuntime
	states       map[string]*domain.JobState
	monitor      domain.MonitorSettings
	pollInterval time.Duration

	emitter *telemetry.Emitter
	logger  *slog.Logger

	triggerQueue  []domain.TriggerEvent
	activeJobName string
	completions   chan completion

	now func() time.Time
}

// New builds a Dispatcher over the given job runtimes. Disabled jobs are
// never registered and therefore never fire.
func New(runtimes []domain.JobRuntime, monitor domain.MonitorSettings, emitter *telemetry.Emitter, logger *slog.Logger, pollInterval time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	d := &Dispatcher{
		byName:       make(map[string]domain.JobRuntime),
		states:       make(map[string]*domain.JobState),
		monitor:      monitor,
		pollInterval: pollInterval,
		emitter:      emitter,
		logger:       logger,
		completions:  make(chan completion, 256),
		now:          time.Now,
	}
	for _, rt := range runtimes {
		if !rt.Spec.Enabled {
			continue
		}
		d.runtimes = append(d.runtimes, rt)
		d.byName[rt.Spec.Name] = rt
		d.states[rt.Spec.Name] = &domain.JobState{}
	}
	return d
}

// Run initializes every job's next_fire and drives the poll loop until ctx
// is canceled. On return, outstanding workers are left detached and the
// telemetry emitter has been flushed.
func (d *Dispatcher) Run(ctx context.Context) error {
	nowUTC := d.now().UTC()
	for _, rt := range d.runtimes {
		state := d.states[rt.Spec.Name]
		if next, ok := schedule.NextRunAfter(rt.Compiled, nowUTC); ok {
			state.NextFire = next
		}
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		d.drainCompletions()
		d.detectTriggers(d.now().UTC())
		d.dispatch(ctx)

		select {
		case <-ctx.Done():
			d.emitter.Shutdown(context.Background())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drainCompletions consumes every completion report currently buffered
// without blocking.
func (d *Dispatcher) drainCompletions() {
	for {
		select {
		case c := <-d.completions:
			d.handleCompletion(c)
		default:
			return
		}
	}
}

func (d *Dispatcher) handleCompletion(c completion) {
	state := d.states[c.jobName]
	if state == nil {
		return
	}
	d.logger.Info("job run completed",
		"job", c.jobName,
		"success", c.result.Success,
		"duration", c.result.EndedAt.Sub(c.result.StartedAt))
	if state.RunningCount > 0 {
		state.RunningCount--
	}
	if state.RunningCount == 0 && state.QueuedPending {
		state.QueuedPending = false
		d.triggerQueue = append([]domain.TriggerEvent{{JobName: c.jobName, ScheduledFor: d.now().UTC()}}, d.triggerQueue...)
	}
	if d.activeJobName == c.jobName && state.RunningCount == 0 {
		d.activeJobName = ""
	}
}

// detectTriggers walks jobs in declaration order, appending a trigger and
// advancing next_fire by at least one second past it for every job whose
// next_fire has arrived, which enforces the no-catch-up invariant.
func (d *Dispatcher) detectTriggers(nowUTC time.Time) {
	for _, rt := range d.runtimes {
		state := d.states[rt.Spec.Name]
		for !state.NextFire.IsZero() && !state.NextFire.After(nowUTC) {
			d.triggerQueue = append(d.triggerQueue, domain.TriggerEvent{JobName: rt.Spec.Name, ScheduledFor: state.NextFire})
			next, ok := schedule.NextRunAfter(rt.Compiled, state.NextFire.Add(time.Second))
			if !ok {
				state.NextFire = time.Time{}
				break
			}
			state.NextFire = next
		}
	}
}

// dispatch repeatedly scans the trigger queue for the first dispatchable
// entry, applying the job's overlap policy, until no further progress can
// be made in this tick.
func (d *Dispatcher) dispatch(ctx context.Context) {
	for {
		progressed := false
		for i, trigger := range d.triggerQueue {
			if d.tryDispatch(ctx, trigger) {
				d.triggerQueue = append(d.triggerQueue[:i], d.triggerQueue[i+1:]...)
				progressed = true
				break
			}
		}
		if !progressed {
			return
		}
	}
}

// tryDispatch applies the overlap policy for trigger.JobName. It returns
// true when the trigger should be removed from the queue (whether because
// it was dispatched, or dropped per skip/queue semantics); false means the
// trigger stays queued for a later tick.
func (d *Dispatcher) tryDispatch(ctx context.Context, trigger domain.TriggerEvent) bool {
	rt, ok := d.byName[trigger.JobName]
	if !ok {
		return true
	}
	state := d.states[trigger.JobName]

	if state.RunningCount > 0 {
		switch rt.Spec.Overlap {
		case domain.OverlapSkip:
			d.logger.Warn("overlap skipped", "job", trigger.JobName, "scheduled_for", trigger.ScheduledFor)
			d.emitDaemonEvent("daemon.overlap_skipped", trigger.JobName, trigger.ScheduledFor)
			return true
		case domain.OverlapQueue:
			if !state.QueuedPending {
				state.QueuedPending = true
				d.emitDaemonEvent("daemon.queued_pending", trigger.JobName, trigger.ScheduledFor)
			}
			return true
		case domain.OverlapParallel:
			if d.activeJobName != "" && d.activeJobName != trigger.JobName {
				return false
			}
			d.startWorker(ctx, rt, trigger)
			return true
		}
		return true
	}

	if d.activeJobName != "" && d.activeJobName != trigger.JobName {
		return false
	}
	d.activeJobName = trigger.JobName
	d.startWorker(ctx, rt, trigger)
	return true
}

func (d *Dispatcher) startWorker(ctx context.Context, rt domain.JobRuntime, trigger domain.TriggerEvent) {
	state := d.states[trigger.JobName]
	state.RunningCount++
	scheduledFor := trigger.ScheduledFor
	monitorEnabled := rt.Spec.Monitor.Enabled
	// Daemon shutdown detaches in-flight workers rather than canceling
	// them; only each script's own timeout bounds a worker's lifetime.
	workerCtx := context.WithoutCancel(ctx)
	go func() {
		result := execution.RunJob(workerCtx, rt, &scheduledFor, d.emitter, monitorEnabled, d.monitor)
		d.completions <- completion{jobName: trigger.JobName, result: result}
	}()
}

func (d *Dispatcher) emitDaemonEvent(eventType, jobName string, scheduledFor time.Time) {
	evt := telemetry.NewEvent("daemon", eventType, "INFO", eventType)
	evt.JobName = jobName
	evt.ScheduledFor = &scheduledFor
	d.emitter.Emit(evt)
}
