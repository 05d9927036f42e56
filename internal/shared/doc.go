// Package shared contains common error types and utilities for error handling
// across chief without domain-specific logic.
//
// # Error Classification
//
// Errors at the job-running core fall into exactly two business kinds:
//
//   - ErrConfig: a chief.yaml document is invalid, out of range, or
//     unsupported. Fatal to the command that loaded it.
//   - ErrOperational: a runtime failure (telemetry send, worker spawn,
//     schedule recompute) that chief logs and surfaces as telemetry but
//     never treats as fatal.
//
// KindTimeout and KindCanceled sit alongside these as mechanism-level
// classifications rather than additional business kinds.
//
//	switch shared.KindOf(err) {
//	case shared.KindConfig:
//	    // reject the document, exit non-zero
//	case shared.KindOperational:
//	    // log at WARN, keep the daemon running
//	}
//
// Or use the predicate functions:
//
//	if shared.IsConfig(err) { ... }
//	if shared.IsTimeout(err) { ... }
//
// # Wrapping and Marking
//
// Wrap adds context while preserving the original error for errors.Is/As:
//
//	if err := config.Load(path); err != nil {
//	    return shared.Wrapf(err, "loading %s", path)
//	}
//
// MarkKind attaches a business kind to an error that doesn't already carry
// one, without discarding it:
//
//	return shared.MarkKind(err, shared.KindOperational)
//
// # Invariants
//
// Invariant and InvariantF report internal contract violations the
// scheduler package is supposed to prevent (a compiled schedule that
// produces no fire time, a guard closure invoked outside its domain):
//
//	if err := shared.Invariant(next.After(after), "oracle produced a non-advancing fire time"); err != nil {
//	    return err
//	}
package shared
