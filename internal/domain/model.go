// Package domain holds the data model shared by configuration loading,
// schedule compilation, execution, and the daemon dispatcher.
package domain

import "time"

// ScheduleKind classifies how a CompiledSchedule determines its fire times.
type ScheduleKind string

const (
	// KindPureCron schedules are fully expressible as a five-field cron
	// expression; the oracle never needs the guard.
	KindPureCron ScheduleKind = "pure_cron"
	// KindHybrid schedules use a cron expression to narrow candidates but
	// require the guard predicate to accept or reject each candidate.
	KindHybrid ScheduleKind = "hybrid"
	// KindRuntimeOnly schedules have no cron equivalent; candidates are
	// generated purely by walking forward from a seed time.
	KindRuntimeOnly ScheduleKind = "runtime_only"
)

// OverlapPolicy controls what the dispatcher does when a trigger fires for a
// job that is already running.
type OverlapPolicy string

const (
	OverlapSkip     OverlapPolicy = "skip"
	OverlapQueue    OverlapPolicy = "queue"
	OverlapParallel OverlapPolicy = "parallel"
)

// ScriptSpec describes one executable step of a job.
type ScriptSpec struct {
	Path         string
	Args         []string
	Timeout      time.Duration
	ResolvedPath string
}

// ScheduleSpec is the as-configured recurrence description for a job, prior
// to compilation into a CompiledSchedule.
type ScheduleSpec struct {
	Frequency    string
	Raw          map[string]any
	Timezone     *time.Location
	TimezoneName string
	Start        *time.Time
	End          *time.Time
	ExcludeDates []time.Time
}

// GuardFunc is a pure, deterministic predicate evaluated against a candidate
// local time for hybrid schedules. It must not depend on global or mutable
// state beyond its closed-over parameters.
type GuardFunc func(candidate time.Time) bool

// CompiledSchedule is the product of compiling a ScheduleSpec: either a
// five-field cron expression, a guard predicate, or both.
type CompiledSchedule struct {
	Kind         ScheduleKind
	CronExpr     string
	Guard        GuardFunc
	Description  string
	Timezone     *time.Location
	TimezoneName string
	Start        *time.Time
	End          *time.Time
	ExcludeDates []time.Time
	Interval     time.Duration
	IntervalText string
}

// JobSpec is the fully-parsed, validated configuration of one job.
type JobSpec struct {
	Name          string `validate:"required"`
	Enabled       bool
	WorkingDir    string `validate:"required"`
	StopOnFailure bool
	Overlap       OverlapPolicy `validate:"required,oneof=skip queue parallel"`
	Scripts       []ScriptSpec  `validate:"required,min=1"`
	Schedule      ScheduleSpec
	Monitor       JobMonitorSettings
}

// JobRuntime pairs a JobSpec with its compiled schedule and its position in
// configuration order, which breaks dispatch ties deterministically.
type JobRuntime struct {
	Spec     JobSpec
	Compiled CompiledSchedule
	Index    int
}

// JobState is the daemon's per-job mutable bookkeeping.
type JobState struct {
	NextFire      time.Time
	RunningCount  int
	QueuedPending bool
}

// TriggerEvent records that a job became due at a particular scheduled
// moment and is waiting for dispatch.
type TriggerEvent struct {
	JobName      string
	ScheduledFor time.Time
}

// ScriptRunResult is the outcome of executing one ScriptSpec.
type ScriptRunResult struct {
	Script     ScriptSpec
	Success    bool
	ReturnCode int
	Duration   time.Duration
	Stdout     string
	Stderr     string
	Error      string
}

// JobRunResult is the outcome of one full job run (all of its scripts).
type JobRunResult struct {
	JobName       string
	Success       bool
	ScriptResults []ScriptRunResult
	StartedAt     time.Time
	EndedAt       time.Time
	ScheduledFor  *time.Time
}

// MonitorBufferSettings configures the telemetry emitter's internal queue,
// flush cadence, and on-disk spool.
type MonitorBufferSettings struct {
	MaxEvents       int
	FlushIntervalMS int
	SpoolFile       string
}

// MonitorSettings is the global (config-file-level) telemetry configuration.
type MonitorSettings struct {
	Enabled   bool
	Endpoint  string
	APIKey    string
	TimeoutMS int
	Buffer    MonitorBufferSettings
}

// MonitorCheckSettings describes passive external-monitor expectations
// attached to a job; chief never enforces these itself, it only forwards
// them as metadata on job.started/job.completed events.
type MonitorCheckSettings struct {
	Enabled        bool
	GraceSeconds   int
	AlertOnFailure bool
	AlertOnMiss    bool
}

// DefaultMonitorCheckSettings returns the defaults applied when a job's
// monitor.check block is present but incomplete.
func DefaultMonitorCheckSettings(enabled bool) MonitorCheckSettings {
	return MonitorCheckSettings{
		Enabled:        enabled,
		GraceSeconds:   120,
		AlertOnFailure: true,
		AlertOnMiss:    true,
	}
}

// JobMonitorSettings is the per-job telemetry override block.
type JobMonitorSettings struct {
	Enabled bool
	Check   MonitorCheckSettings
}

// MonitorEvent is a single telemetry record, convertible to the wire
// payload the collector endpoint expects.
type MonitorEvent struct {
	SourceType   string
	EventType    string
	Level        string
	Message      string
	EventAt      time.Time
	JobName      string
	ScriptPath   string
	RunID        string
	ScheduledFor *time.Time
	Success      *bool
	ReturnCode   *int
	DurationMS   *int64
	Metadata     map[string]any
}

// ToPayload renders the event into the camelCase JSON map the telemetry
// collector and its batch endpoint expect.
func (e MonitorEvent) ToPayload() map[string]any {
	p := map[string]any{
		"sourceType": e.SourceType,
		"eventType":  e.EventType,
		"level":      e.Level,
		"message":    e.Message,
		"eventAt":    e.EventAt.UTC().Format(time.RFC3339Nano),
	}
	if e.Metadata != nil {
		p["metadata"] = e.Metadata
	} else {
		p["metadata"] = map[string]any{}
	}
	if e.JobName != "" {
		p["jobName"] = e.JobName
	}
	if e.ScriptPath != "" {
		p["scriptPath"] = e.ScriptPath
	}
	if e.RunID != "" {
		p["runId"] = e.RunID
	}
	if e.ScheduledFor != nil {
		p["scheduledFor"] = e.ScheduledFor.UTC().Format(time.RFC3339Nano)
	}
	if e.Success != nil {
		p["success"] = *e.Success
	}
	if e.ReturnCode != nil {
		p["returnCode"] = *e.ReturnCode
	}
	if e.DurationMS != nil {
		p["durationMs"] = *e.DurationMS
	}
	return p
}
