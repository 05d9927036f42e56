package shared

import "errors"

// Domain-specific sentinel errors for the scheduler. Each is marked onto an
// existing Kind rather than introducing new Kind values, so callers that
// already branch on Kind continue to work unchanged.
var (
	// ErrConfigInvalid marks a chief.yaml document that failed structural
	// or semantic validation (unknown keys, bad schedule fields, missing
	// script files, and the like).
	ErrConfigInvalid = MarkKind(errors.New("config invalid"), KindConfig)
	// ErrScheduleCompile marks a ScheduleSpec that could not be compiled
	// into a CompiledSchedule.
	ErrScheduleCompile = MarkKind(errors.New("schedule compile failed"), KindConfig)
	// ErrWorkerSpawn marks a failure to start a script's process (missing
	// binary, permission denied, exec failure before the process runs).
	ErrWorkerSpawn = MarkKind(errors.New("worker spawn failed"), KindOperational)
	// ErrTelemetrySend marks a failure delivering a batch of monitor events
	// to the configured collector endpoint.
	ErrTelemetrySend = MarkKind(errors.New("telemetry send failed"), KindOperational)
)
