// Package execution runs a single job's script list and reports the
// lifecycle telemetry events a compliant collector expects to see for
// every invocation, whether triggered by the daemon or a one-shot run.
package execution

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/schedule"
	"github.com/joshelvn11/chief/internal/telemetry"
)

// outputPreviewLimit bounds the stdout/stderr text carried on
// script.completed events, keeping payloads small regardless of how noisy
// a script is.
const outputPreviewLimit = 1000

// GenerateRunID builds a run identifier of the form
// "<job_name>:<UTC yyyymmddHHMMSS>-<microseconds>-<process_id>".
func GenerateRunID(jobName string, now time.Time, pid int) string {
	u := now.UTC()
	return fmt.Sprintf("%s:%s-%06d-%d", jobName, u.Format("20060102150405"), u.Nanosecond()/1000, pid)
}

// RunJob executes every script of runtime.Spec in declaration order,
// emitting the job.started / script.started / script.completed /
// job.completed|job.failed / job.next_scheduled lifecycle events on
// emitter, and returns the aggregate result.
func RunJob(ctx context.Context, runtime domain.JobRuntime, scheduledFor *time.Time, emitter *telemetry.Emitter, monitorEnabled bool, monitor domain.MonitorSettings) domain.JobRunResult {
	spec := runtime.Spec
	startedAt := time.Now().UTC()
	runID := GenerateRunID(spec.Name, startedAt, os.Getpid())

	startEvt := jobEvent("job.started", "INFO", fmt.Sprintf("job %s started", spec.Name), spec.Name, runID, scheduledFor, nil, nil, nil)
	attachCheckMetadata(startEvt, spec.Monitor.Check)
	emitter.Emit(startEvt)

	result := domain.JobRunResult{
		JobName:      spec.Name,
		StartedAt:    startedAt,
		ScheduledFor: scheduledFor,
	}

	allSucceeded := true
	var firstFailedPath string
	for _, script := range spec.Scripts {
		emitter.Emit(scriptEvent("script.started", "INFO", fmt.Sprintf("script %s started", script.Path), spec.Name, script.Path, runID, scheduledFor, nil, nil, nil))

		scriptResult := runScript(ctx, spec, script, runID, scheduledFor, monitorEnabled, monitor)
		result.ScriptResults = append(result.ScriptResults, scriptResult)

		durationMS := scriptResult.Duration.Milliseconds()
		emitter.Emit(scriptEvent(
			"script.completed",
			levelForSuccess(scriptResult.Success),
			fmt.Sprintf("script %s completed", script.Path),
			spec.Name, script.Path, runID, scheduledFor,
			&scriptResult.Success, &scriptResult.ReturnCode, &durationMS,
		))

		if !scriptResult.Success {
			allSucceeded = false
			if firstFailedPath == "" {
				firstFailedPath = script.Path
			}
			if spec.StopOnFailure {
				break
			}
		}
	}

	result.Success = allSucceeded
	result.EndedAt = time.Now().UTC()

	if allSucceeded {
		evt := jobEvent("job.completed", "INFO", fmt.Sprintf("job %s completed", spec.Name), spec.Name, runID, scheduledFor, &result.Success, nil, nil)
		attachCheckMetadata(evt, spec.Monitor.Check)
		emitter.Emit(evt)
	} else {
		evt := jobEvent("job.failed", "ERROR", fmt.Sprintf("job %s failed", spec.Name), spec.Name, runID, scheduledFor, &result.Success, nil, nil)
		evt.Metadata["failedScript"] = firstFailedPath
		attachCheckMetadata(evt, spec.Monitor.Check)
		emitter.Emit(evt)
	}

	emitNextScheduled(runtime, result.EndedAt, emitter, runID)

	return result
}

func emitNextScheduled(runtime domain.JobRuntime, after time.Time, emitter *telemetry.Emitter, runID string) {
	next, ok := schedule.NextRunAfter(runtime.Compiled, after)
	evt := telemetry.NewEvent("daemon", "job.next_scheduled", "INFO", fmt.Sprintf("next run for %s", runtime.Spec.Name))
	evt.JobName = runtime.Spec.Name
	evt.RunID = runID
	if ok {
		evt.ScheduledFor = &next
	} else {
		evt.Level = "WARN"
		evt.Metadata["error"] = "could not compute next fire time"
	}
	emitter.Emit(evt)
}

// runScript spawns one child process, enforcing its configured timeout,
// and captures a bounded preview of its stdout/stderr.
func runScript(ctx context.Context, spec domain.JobSpec, script domain.ScriptSpec, runID string, scheduledFor *time.Time, monitorEnabled bool, monitor domain.MonitorSettings) domain.ScriptRunResult {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, script.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, script.ResolvedPath, script.Args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = buildEnvironment(spec, script, runID, scheduledFor, monitorEnabled, monitor)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A killed script may leave grandchildren holding the output pipes;
	// WaitDelay keeps the timeout a wall-clock bound instead of letting
	// stragglers stall the wait.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	duration := time.Since(start)

	result := domain.ScriptRunResult{
		Script:   script,
		Duration: duration,
		Stdout:   previewOutput(stdout.String()),
		Stderr:   previewOutput(stderr.String()),
	}

	switch {
	case runCtx.Err() != nil && ctx.Err() == nil:
		result.Success = false
		result.ReturnCode = -1
		result.Error = "timeout"
	case err == nil:
		result.Success = true
		result.ReturnCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			// A non-zero exit is an ordinary script failure, not an
			// execution-machinery error, so it carries no error tag.
			result.Success = exitErr.ExitCode() == 0
			result.ReturnCode = exitErr.ExitCode()
		} else {
			result.Success = false
			result.ReturnCode = -2
			result.Error = "exception"
		}
	}

	return result
}

func previewOutput(s string) string {
	if len(s) <= outputPreviewLimit {
		return s
	}
	return s[:outputPreviewLimit]
}

// buildEnvironment overlays the run's identity fields onto the inherited
// environment, adding the monitor endpoint/api key only when telemetry is
// active for this job.
func buildEnvironment(spec domain.JobSpec, script domain.ScriptSpec, runID string, scheduledFor *time.Time, monitorEnabled bool, monitor domain.MonitorSettings) []string {
	env := os.Environ()
	env = append(env,
		"CHIEF_RUN_ID="+runID,
		"CHIEF_JOB_NAME="+spec.Name,
		"CHIEF_SCRIPT_PATH="+script.Path,
	)
	if scheduledFor != nil {
		env = append(env, "CHIEF_SCHEDULED_FOR="+scheduledFor.UTC().Format(time.RFC3339Nano))
	}
	if monitorEnabled {
		env = append(env,
			"CHIEF_MONITOR_ENDPOINT="+monitor.Endpoint,
			"CHIEF_MONITOR_API_KEY="+monitor.APIKey,
		)
	}
	return env
}

// attachCheckMetadata forwards a job's external-monitor check expectations
// as opaque metadata; chief never acts on these itself, the collector
// backend interprets them.
func attachCheckMetadata(evt domain.MonitorEvent, check domain.MonitorCheckSettings) {
	if !check.Enabled {
		return
	}
	evt.Metadata["check"] = map[string]any{
		"graceSeconds":   check.GraceSeconds,
		"alertOnFailure": check.AlertOnFailure,
		"alertOnMiss":    check.AlertOnMiss,
	}
}

func levelForSuccess(success bool) string {
	if success {
		return "INFO"
	}
	return "WARN"
}

func jobEvent(eventType, level, message, jobName, runID string, scheduledFor *time.Time, success *bool, returnCode *int, durationMS *int64) domain.MonitorEvent {
	evt := telemetry.NewEvent("daemon", eventType, level, message)
	evt.JobName = jobName
	evt.RunID = runID
	evt.ScheduledFor = scheduledFor
	evt.Success = success
	evt.ReturnCode = returnCode
	evt.DurationMS = durationMS
	return evt
}

func scriptEvent(eventType, level, message, jobName, scriptPath, runID string, scheduledFor *time.Time, success *bool, returnCode *int, durationMS *int64) domain.MonitorEvent {
	evt := jobEvent(eventType, level, message, jobName, runID, scheduledFor, success, returnCode, durationMS)
	evt.ScriptPath = scriptPath
	return evt
}
