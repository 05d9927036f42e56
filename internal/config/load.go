package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/shared"
)

var validate = validator.New()

// Load reads, parses, and validates a chief.yaml document at path,
// returning compiled job runtimes and global monitor settings: top-level
// key validation, defaults resolution, per-job validation, and uniqueness
// of job names.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "reading %s: %v", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s is not valid YAML: %v", path, err)
	}
	for key := range raw {
		switch key {
		case "version", "defaults", "jobs", "monitor":
		default:
			return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s has unsupported top-level key %q", path, key)
		}
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s is not valid YAML: %v", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "resolving %s: %v", path, err)
	}
	configDir := filepath.Dir(absPath)

	defaultTZName := doc.Defaults.Timezone
	if defaultTZName == "" {
		// No configured default: prefer the system's local zone, falling
		// back to UTC on hosts without one.
		defaultTZName = time.Local.String()
		if defaultTZName == "" || defaultTZName == "UTC" {
			defaultTZName = "UTC"
		}
	}
	if _, err := time.LoadLocation(defaultTZName); err != nil {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "defaults.timezone %q is not a valid IANA timezone", defaultTZName)
	}

	defaultWorkingDir, err := resolveWorkingDir(doc.Defaults.WorkingDir, configDir, "defaults.working_dir")
	if err != nil {
		return nil, err
	}
	defaultStopOnFailure := true
	if doc.Defaults.StopOnFailure != nil {
		defaultStopOnFailure = *doc.Defaults.StopOnFailure
	}
	defaultOverlap := domain.OverlapSkip
	if doc.Defaults.Overlap != "" {
		o, err := parseOverlap(doc.Defaults.Overlap, "defaults.overlap")
		if err != nil {
			return nil, err
		}
		defaultOverlap = o
	}

	monitorSettings, err := parseMonitorSettings(doc.Monitor, configDir)
	if err != nil {
		return nil, err
	}

	if len(doc.Jobs) == 0 {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s: jobs must be a non-empty list", path)
	}

	seen := make(map[string]bool, len(doc.Jobs))
	jobs := make([]domain.JobRuntime, 0, len(doc.Jobs))
	for i, rj := range doc.Jobs {
		fieldPath := fmt.Sprintf("jobs[%d]", i)
		if rj.Name == "" {
			return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.name is required", fieldPath)
		}
		if seen[rj.Name] {
			return nil, shared.Wrapf(shared.ErrConfigInvalid, "duplicate job name %q", rj.Name)
		}
		seen[rj.Name] = true
		fieldPath = fmt.Sprintf("jobs[%s]", rj.Name)

		enabled := true
		if rj.Enabled != nil {
			enabled = *rj.Enabled
		}
		workingDir := defaultWorkingDir
		if rj.WorkingDir != "" {
			workingDir, err = resolveWorkingDir(rj.WorkingDir, configDir, fieldPath+".working_dir")
			if err != nil {
				return nil, err
			}
		}
		stopOnFailure := defaultStopOnFailure
		if rj.StopOnFailure != nil {
			stopOnFailure = *rj.StopOnFailure
		}
		overlap := defaultOverlap
		if rj.Overlap != "" {
			overlap, err = parseOverlap(rj.Overlap, fieldPath+".overlap")
			if err != nil {
				return nil, err
			}
		}

		scheduleSpec, err := parseScheduleSpec(rj.Schedule, defaultTZName, fieldPath+".schedule")
		if err != nil {
			return nil, err
		}
		compiled, err := compileJobSchedule(scheduleSpec, fieldPath+".schedule")
		if err != nil {
			return nil, err
		}

		scripts, err := parseScripts(rj.Scripts, workingDir, fieldPath)
		if err != nil {
			return nil, err
		}

		jobMonitor := parseJobMonitorSettings(rj.Monitor, monitorSettings.Enabled)

		spec := domain.JobSpec{
			Name:          rj.Name,
			Enabled:       enabled,
			WorkingDir:    workingDir,
			StopOnFailure: stopOnFailure,
			Overlap:       overlap,
			Scripts:       scripts,
			Schedule:      scheduleSpec,
			Monitor:       jobMonitor,
		}
		if err := validate.Struct(spec); err != nil {
			return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s: %v", fieldPath, err)
		}

		jobs = append(jobs, domain.JobRuntime{Spec: spec, Compiled: compiled, Index: i})
	}

	return &Document{Path: absPath, Dir: configDir, Jobs: jobs, Monitor: monitorSettings}, nil
}

func parseOverlap(raw, fieldPath string) (domain.OverlapPolicy, error) {
	switch domain.OverlapPolicy(raw) {
	case domain.OverlapSkip, domain.OverlapQueue, domain.OverlapParallel:
		return domain.OverlapPolicy(raw), nil
	default:
		return "", shared.Wrapf(shared.ErrConfigInvalid, "%s: overlap must be one of skip/queue/parallel, got %q", fieldPath, raw)
	}
}
