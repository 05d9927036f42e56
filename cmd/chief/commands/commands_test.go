package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshelvn11/chief/cmd/chief/commands"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "backup.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	cfg := filepath.Join(dir, "chief.yaml")
	body := `
version: 1
defaults:
  timezone: UTC
jobs:
  - name: backup
    schedule:
      frequency: daily
      time: "02:00"
    scripts:
      - path: backup.sh
`
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))
	return cfg
}

func TestValidateCommandPrintsSummary(t *testing.T) {
	cfg := writeTestConfig(t)
	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"validate", "--config", cfg})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "backup")
	assert.Contains(t, out.String(), "1 job(s) validated")
}

func TestValidateCommandFailsOnBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "chief.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("bogus_key: true\n"), 0o644))

	root := commands.NewRootCmd("test", nil)
	root.SetArgs([]string{"validate", "--config", cfg})
	err := root.Execute()
	require.Error(t, err)

	var exitErr *commands.ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestPreviewCommandListsUpcomingFires(t *testing.T) {
	cfg := writeTestConfig(t)
	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"preview", "--config", cfg, "--count", "2"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "backup —")
}

func TestRunCommandExecutesJob(t *testing.T) {
	cfg := writeTestConfig(t)
	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--config", cfg, "--job", "backup"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "backup: success=true")
}

func TestExportCronCommandPrintsCronLine(t *testing.T) {
	cfg := writeTestConfig(t)
	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"export-cron", "--config", cfg})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "CRON_TZ=UTC")
	assert.Contains(t, out.String(), "0 2 * * *")
}

func TestExportCronRuntimeOnlyHasNoCronLine(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "sync.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	cfg := filepath.Join(dir, "chief.yaml")
	body := `
version: 1
defaults:
  timezone: UTC
jobs:
  - name: sync
    schedule:
      frequency: interval
      every: 90m
    scripts:
      - path: sync.sh
`
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"export-cron", "--config", cfg})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "# runtime-only schedule")
	assert.NotContains(t, out.String(), "--respect-schedule", "no runnable cron line for a runtime-only job")
}

func TestExportCronHybridCarriesGuardNote(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "report.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	cfg := filepath.Join(dir, "chief.yaml")
	body := `
version: 1
defaults:
  timezone: UTC
jobs:
  - name: report
    schedule:
      frequency: monthly
      ordinal: last
      day: friday
      time: "18:00"
    scripts:
      - path: report.sh
`
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"export-cron", "--config", cfg})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "# NOTE: runtime guard required (ordinal/exclusion/bounds).")
	assert.Contains(t, out.String(), "0 18 * * 5")
}

func TestRunCommandFailureSetsExitCodeOne(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755))
	cfg := filepath.Join(dir, "chief.yaml")
	body := `
version: 1
defaults:
  timezone: UTC
jobs:
  - name: flaky
    schedule:
      frequency: daily
      time: "02:00"
    scripts:
      - path: fail.sh
`
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	root := commands.NewRootCmd("test", nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--config", cfg, "--job", "flaky"})

	err := root.Execute()
	require.Error(t, err)
	var exitErr *commands.ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out.String(), "flaky: success=false")
}
