package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshelvn11/chief/internal/domain"
)

func writeTempConfig(t *testing.T, yamlBody string) string {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "backup.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\necho hi\n"), 0o755))
	cfgPath := filepath.Join(dir, "chief.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlBody), 0o644))
	return cfgPath
}

const minimalJob = `
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
        args: "--verbose --retries 3"
`

func TestLoadMinimalJob(t *testing.T) {
	path := writeTempConfig(t, minimalJob)
	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Jobs, 1)

	job := doc.Jobs[0]
	assert.Equal(t, "backup", job.Spec.Name)
	assert.True(t, job.Spec.Enabled)
	assert.Equal(t, domain.OverlapSkip, job.Spec.Overlap)
	assert.Equal(t, domain.KindPureCron, job.Compiled.Kind)
	require.Len(t, job.Spec.Scripts, 1)
	assert.Equal(t, []string{"--verbose", "--retries", "3"}, job.Spec.Scripts[0].Args)
}

func TestLoadRejectsDuplicateJobNames(t *testing.T) {
	path := writeTempConfig(t, minimalJob+`
  - name: backup
    schedule:
      frequency: daily
      time: "03:00"
    scripts:
      - path: backup.sh
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	path := writeTempConfig(t, minimalJob+"\nbogus: true\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMixedMonthlyFields(t *testing.T) {
	body := `
version: 1
jobs:
  - name: report
    schedule:
      frequency: monthly
      day_of_month: 1
      ordinal: first
      day: monday
      time: "09:00"
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsStartAfterEnd(t *testing.T) {
	body := `
version: 1
jobs:
  - name: bounded
    schedule:
      frequency: daily
      time: "09:00"
      timezone: UTC
      start: "2026-02-01T00:00:00Z"
      end: "2026-01-01T00:00:00Z"
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start must be <=")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	body := `
version: 1
jobs:
  - name: tz
    schedule:
      frequency: daily
      time: "09:00"
      timezone: Mars/Olympus_Mons
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoadRejectsBadTimeOfDay(t *testing.T) {
	body := `
version: 1
jobs:
  - name: late
    schedule:
      frequency: daily
      time: "24:00"
      timezone: UTC
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsSecondsInterval(t *testing.T) {
	body := `
version: 1
jobs:
  - name: rapid
    schedule:
      frequency: interval
      every: 30s
      timezone: UTC
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seconds intervals are unsupported")
}

func TestLoadRejectsHolidaysExcludeSyntax(t *testing.T) {
	body := `
version: 1
jobs:
  - name: excl
    schedule:
      frequency: daily
      time: "09:00"
      timezone: UTC
      exclude:
        holidays:
          - new-years
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude must be a list of dates")
}

func TestLoadAcceptsOffsetlessBounds(t *testing.T) {
	body := `
version: 1
jobs:
  - name: windowed
    schedule:
      frequency: daily
      time: "09:00"
      timezone: UTC
      start: "2026-01-01T00:00"
      end: "2026-01-31T23:59:59"
    scripts:
      - path: backup.sh
`
	path := writeTempConfig(t, body)
	doc, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, doc.Jobs[0].Compiled.Start)
	require.NotNil(t, doc.Jobs[0].Compiled.End)
}

func TestLoadDefaultsMonitorDisabled(t *testing.T) {
	path := writeTempConfig(t, minimalJob)
	doc, err := Load(path)
	require.NoError(t, err)
	assert.False(t, doc.Monitor.Enabled)
	assert.Equal(t, defaultMonitorEndpoint, doc.Monitor.Endpoint)
}
