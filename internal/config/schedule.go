package config

import (
	"time"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/schedule"
	"github.com/joshelvn11/chief/internal/shared"
)

var validFrequencies = map[string]bool{
	"daily": true, "weekly": true, "monthly": true, "yearly": true, "interval": true, "custom": true,
}

var globalScheduleKeys = map[string]bool{
	"frequency": true, "timezone": true, "start": true, "end": true, "exclude": true,
}

var perFrequencyKeys = map[string]map[string]bool{
	"daily":    {"time": true, "weekdays_only": true},
	"weekly":   {"day": true, "time": true},
	"monthly":  {"day_of_month": true, "ordinal": true, "day": true, "time": true},
	"yearly":   {"month": true, "day_of_month": true, "time": true},
	"interval": {"every": true},
	"custom":   {"minute": true, "hour": true, "day_of_month": true, "month": true, "day_of_week": true},
}

// parseScheduleSpec validates a job's raw "schedule" block and turns it
// into a domain.ScheduleSpec ready for schedule.Compile, enforcing the
// allowed field keys per frequency.
func parseScheduleSpec(raw map[string]any, defaultTZName string, fieldPath string) (domain.ScheduleSpec, error) {
	freqVal, ok := raw["frequency"]
	if !ok {
		return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.frequency is required", fieldPath)
	}
	freq, ok := freqVal.(string)
	if !ok || !validFrequencies[freq] {
		return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.frequency %v is not one of the supported frequencies", fieldPath, freqVal)
	}

	allowed := perFrequencyKeys[freq]
	for key := range raw {
		if globalScheduleKeys[key] || allowed[key] {
			continue
		}
		return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s has unsupported key %q for frequency %q", fieldPath, key, freq)
	}

	tzName := defaultTZName
	if v, ok := raw["timezone"].(string); ok && v != "" {
		tzName = v
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.timezone %q is not a valid IANA timezone", fieldPath, tzName)
	}

	var start, end *time.Time
	if v, ok := raw["start"].(string); ok && v != "" {
		t, err := parseBoundTimestamp(v, loc)
		if err != nil {
			return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.start %q is not a valid timestamp", fieldPath, v)
		}
		start = &t
	}
	if v, ok := raw["end"].(string); ok && v != "" {
		t, err := parseBoundTimestamp(v, loc)
		if err != nil {
			return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.end %q is not a valid timestamp", fieldPath, v)
		}
		end = &t
	}
	if start != nil && end != nil && start.After(*end) {
		return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.start must be <= %s.end", fieldPath, fieldPath)
	}

	var exclude []time.Time
	if raw["exclude"] != nil {
		items, ok := raw["exclude"].([]any)
		if !ok {
			return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.exclude must be a list of dates", fieldPath)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.exclude entries must be date strings", fieldPath)
			}
			d, err := time.ParseInLocation("2006-01-02", s, loc)
			if err != nil {
				return domain.ScheduleSpec{}, shared.Wrapf(shared.ErrConfigInvalid, "%s.exclude entry %q must be YYYY-MM-DD", fieldPath, s)
			}
			exclude = append(exclude, d)
		}
	}

	if err := validateFrequencyPayload(freq, raw, fieldPath); err != nil {
		return domain.ScheduleSpec{}, err
	}

	return domain.ScheduleSpec{
		Frequency:    freq,
		Raw:          raw,
		Timezone:     loc,
		TimezoneName: tzName,
		Start:        start,
		End:          end,
		ExcludeDates: exclude,
	}, nil
}

// validateFrequencyPayload performs the content checks (beyond key-name
// allow-listing) specific to each frequency, so schedule.Compile can assume
// well-formed input.
func validateFrequencyPayload(freq string, raw map[string]any, fieldPath string) error {
	switch freq {
	case "daily":
		return requireString(raw, "time", fieldPath, true)
	case "weekly":
		if err := requireString(raw, "time", fieldPath, true); err != nil {
			return err
		}
		return requireString(raw, "day", fieldPath, true)
	case "monthly":
		_, hasDOM := raw["day_of_month"]
		_, hasOrdinal := raw["ordinal"]
		_, hasDay := raw["day"]
		if hasDOM && (hasOrdinal || hasDay) {
			return shared.Wrapf(shared.ErrConfigInvalid, "%s: day_of_month cannot be combined with ordinal/day", fieldPath)
		}
		if !hasDOM && !(hasOrdinal && hasDay) {
			return shared.Wrapf(shared.ErrConfigInvalid, "%s: monthly schedules need day_of_month, or both ordinal and day", fieldPath)
		}
		return requireString(raw, "time", fieldPath, true)
	case "yearly":
		if err := requireString(raw, "month", fieldPath, true); err != nil {
			return err
		}
		return requireString(raw, "time", fieldPath, true)
	case "interval":
		if _, hasTime := raw["time"]; hasTime {
			return shared.Wrapf(shared.ErrConfigInvalid, "%s: interval schedules do not accept a time field", fieldPath)
		}
		return requireString(raw, "every", fieldPath, true)
	case "custom":
		fields := []string{"minute", "hour", "day_of_month", "month", "day_of_week"}
		present := false
		for _, f := range fields {
			if _, ok := raw[f]; ok {
				present = true
			}
		}
		if !present {
			return shared.Wrapf(shared.ErrConfigInvalid, "%s: custom schedules need at least one of minute/hour/day_of_month/month/day_of_week", fieldPath)
		}
		return nil
	}
	return nil
}

// boundLayouts are the accepted start/end timestamp shapes, most specific
// first. Offset-less values are interpreted in the schedule's timezone.
var boundLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseBoundTimestamp(v string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range boundLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func requireString(raw map[string]any, key, fieldPath string, required bool) error {
	v, ok := raw[key]
	if !ok {
		if required {
			return shared.Wrapf(shared.ErrConfigInvalid, "%s.%s is required", fieldPath, key)
		}
		return nil
	}
	if _, ok := v.(string); !ok {
		return shared.Wrapf(shared.ErrConfigInvalid, "%s.%s must be a string", fieldPath, key)
	}
	return nil
}

// compileJobSchedule compiles and sanity-checks a parsed ScheduleSpec,
// wrapping schedule package errors with the job's field path for context.
func compileJobSchedule(spec domain.ScheduleSpec, fieldPath string) (domain.CompiledSchedule, error) {
	compiled, err := schedule.Compile(spec)
	if err != nil {
		return domain.CompiledSchedule{}, shared.Wrapf(err, "%s", fieldPath)
	}
	if err := schedule.SanityCheck(compiled); err != nil {
		return domain.CompiledSchedule{}, shared.Wrapf(err, "%s", fieldPath)
	}
	return compiled, nil
}
