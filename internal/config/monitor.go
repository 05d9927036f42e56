package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/shared"
)

const (
	defaultMonitorEndpoint         = "http://127.0.0.1:7410"
	defaultMonitorTimeoutMS        = 400
	defaultMonitorBufferMaxEvents  = 5000
	defaultMonitorBufferFlushMS    = 1000
	defaultMonitorSpoolFileRelPath = ".chief/telemetry_spool.jsonl"
)

// parseMonitorSettings parses the document-level "monitor" block, applying
// defaults when the block is absent.
func parseMonitorSettings(raw *rawMonitor, configDir string) (domain.MonitorSettings, error) {
	settings := domain.MonitorSettings{
		Enabled:   false,
		Endpoint:  defaultMonitorEndpoint,
		APIKey:    "",
		TimeoutMS: defaultMonitorTimeoutMS,
		Buffer: domain.MonitorBufferSettings{
			MaxEvents:       defaultMonitorBufferMaxEvents,
			FlushIntervalMS: defaultMonitorBufferFlushMS,
			SpoolFile:       filepath.Join(configDir, defaultMonitorSpoolFileRelPath),
		},
	}
	if raw == nil {
		return settings, nil
	}
	if raw.Enabled != nil {
		settings.Enabled = *raw.Enabled
	}
	if raw.Endpoint != "" {
		if !strings.HasPrefix(raw.Endpoint, "http://") && !strings.HasPrefix(raw.Endpoint, "https://") {
			return domain.MonitorSettings{}, shared.Wrapf(shared.ErrConfigInvalid, "monitor.endpoint %q must start with http:// or https://", raw.Endpoint)
		}
		settings.Endpoint = raw.Endpoint
	}
	if raw.APIKey != "" {
		// ${VAR} references let the document avoid embedding the secret
		// itself; the value typically arrives via .env loaded at startup.
		settings.APIKey = os.ExpandEnv(raw.APIKey)
	}
	if raw.TimeoutMS != nil {
		settings.TimeoutMS = *raw.TimeoutMS
	}
	if raw.Buffer != nil {
		if raw.Buffer.MaxEvents != nil {
			settings.Buffer.MaxEvents = *raw.Buffer.MaxEvents
		}
		if raw.Buffer.FlushIntervalMS != nil {
			settings.Buffer.FlushIntervalMS = *raw.Buffer.FlushIntervalMS
		}
		if raw.Buffer.SpoolFile != "" {
			spool := raw.Buffer.SpoolFile
			if !filepath.IsAbs(spool) {
				spool = filepath.Join(configDir, spool)
			}
			settings.Buffer.SpoolFile = spool
		}
	}
	return settings, nil
}

// parseJobMonitorSettings parses a job's "monitor" override block. A job's
// enabled flag defaults to the global setting's enabled flag, and its
// check.enabled defaults to the job's own enabled flag.
func parseJobMonitorSettings(raw *rawJobMonitor, globalEnabled bool) domain.JobMonitorSettings {
	jm := domain.JobMonitorSettings{
		Enabled: globalEnabled,
		Check:   domain.DefaultMonitorCheckSettings(globalEnabled),
	}
	if raw == nil {
		return jm
	}
	if raw.Enabled != nil {
		jm.Enabled = *raw.Enabled
	}
	jm.Check = domain.DefaultMonitorCheckSettings(jm.Enabled)
	if raw.Check != nil {
		if raw.Check.Enabled != nil {
			jm.Check.Enabled = *raw.Check.Enabled
		}
		if raw.Check.GraceSeconds != nil {
			jm.Check.GraceSeconds = *raw.Check.GraceSeconds
		}
		if raw.Check.AlertOnFailure != nil {
			jm.Check.AlertOnFailure = *raw.Check.AlertOnFailure
		}
		if raw.Check.AlertOnMiss != nil {
			jm.Check.AlertOnMiss = *raw.Check.AlertOnMiss
		}
	}
	return jm
}

// EffectiveMonitorEnabled ORs the global monitor enablement with a job
// runtime's own monitor override: either side can turn monitoring on.
func EffectiveMonitorEnabled(global domain.MonitorSettings, job domain.JobMonitorSettings) bool {
	return global.Enabled || job.Enabled
}
