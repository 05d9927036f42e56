package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/shlex"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/shared"
)

const defaultTimeoutSeconds = 3600

// parseScripts validates a job's "scripts" list and resolves each script's
// path against workingDir.
func parseScripts(raw []rawScript, workingDir, fieldPath string) ([]domain.ScriptSpec, error) {
	if len(raw) == 0 {
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.scripts must be a non-empty list", fieldPath)
	}
	out := make([]domain.ScriptSpec, 0, len(raw))
	for i, rs := range raw {
		entryPath := fmt.Sprintf("%s.scripts[%d]", fieldPath, i)
		if rs.Path == "" {
			return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.path is required", entryPath)
		}
		args, err := parseScriptArgs(rs.Args, entryPath)
		if err != nil {
			return nil, err
		}
		timeout := defaultTimeoutSeconds
		if rs.Timeout != nil {
			if *rs.Timeout < 1 {
				return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.timeout must be >= 1", entryPath)
			}
			timeout = *rs.Timeout
		}
		resolved, err := resolveScriptPath(rs.Path, workingDir, entryPath)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ScriptSpec{
			Path:         rs.Path,
			Args:         args,
			Timeout:      time.Duration(timeout) * time.Second,
			ResolvedPath: resolved,
		})
	}
	return out, nil
}

// parseScriptArgs accepts either a shell-quoted string (split with the same
// rules as POSIX shlex.split) or a YAML list of scalars coerced to strings.
func parseScriptArgs(raw any, fieldPath string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		parts, err := shlex.Split(v)
		if err != nil {
			return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.args %q could not be tokenized: %v", fieldPath, v, err)
		}
		return parts, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalarToString(item)
			if err != nil {
				return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.args entry is not a scalar: %v", fieldPath, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, shared.Wrapf(shared.ErrConfigInvalid, "%s.args must be a string or a list of scalars", fieldPath)
	}
}

func scalarToString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return fmt.Sprintf("%d", t), nil
	case int64:
		return fmt.Sprintf("%d", t), nil
	case float64:
		return fmt.Sprintf("%v", t), nil
	case bool:
		return fmt.Sprintf("%v", t), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func resolveScriptPath(path, workingDir, fieldPath string) (string, error) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(workingDir, resolved)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", shared.Wrapf(shared.ErrConfigInvalid, "%s resolves to %q which does not exist", fieldPath, resolved)
	}
	if info.IsDir() {
		return "", shared.Wrapf(shared.ErrConfigInvalid, "%s resolves to %q which is a directory, not a file", fieldPath, resolved)
	}
	return resolved, nil
}

// resolveWorkingDir resolves a configured working_dir relative to
// configDir and requires the result to exist and be a directory.
func resolveWorkingDir(value, configDir, fieldPath string) (string, error) {
	if value == "" {
		value = "."
	}
	resolved := value
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(configDir, resolved)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", shared.Wrapf(shared.ErrConfigInvalid, "%s resolves to %q which does not exist", fieldPath, resolved)
	}
	if !info.IsDir() {
		return "", shared.Wrapf(shared.ErrConfigInvalid, "%s resolves to %q which is not a directory", fieldPath, resolved)
	}
	return resolved, nil
}
