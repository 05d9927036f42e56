package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/shared"
)

// Compile turns a validated ScheduleSpec into a CompiledSchedule, choosing
// pure_cron, hybrid, or runtime_only depending on what the frequency can
// express as a five-field expression.
func Compile(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	switch spec.Frequency {
	case "daily":
		return compileDaily(spec)
	case "weekly":
		return compileWeekly(spec)
	case "monthly":
		return compileMonthly(spec)
	case "yearly":
		return compileYearly(spec)
	case "interval":
		return compileInterval(spec)
	case "custom":
		return compileCustom(spec)
	default:
		return domain.CompiledSchedule{}, shared.Wrapf(shared.ErrScheduleCompile, "unsupported frequency %q", spec.Frequency)
	}
}

func compiledBase(spec domain.ScheduleSpec) domain.CompiledSchedule {
	return domain.CompiledSchedule{
		Timezone:     spec.Timezone,
		TimezoneName: spec.TimezoneName,
		Start:        spec.Start,
		End:          spec.End,
		ExcludeDates: spec.ExcludeDates,
	}
}

func rawString(spec domain.ScheduleSpec, key, def string) string {
	if v, ok := spec.Raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func rawBool(spec domain.ScheduleSpec, key string, def bool) bool {
	if v, ok := spec.Raw[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func compileDaily(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	hour, minute, err := validateHHMM(rawString(spec, "time", "00:00"))
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	dow := "*"
	desc := "every day"
	if rawBool(spec, "weekdays_only", false) {
		dow = "1-5"
		desc = "every weekday (Mon-Fri)"
	}
	c := compiledBase(spec)
	c.Kind = domain.KindPureCron
	c.CronExpr = fmt.Sprintf("%d %d * * %s", minute, hour, dow)
	c.Description = fmt.Sprintf("%s at %02d:%02d", desc, hour, minute)
	return c, nil
}

func compileWeekly(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	hour, minute, err := validateHHMM(rawString(spec, "time", "00:00"))
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	dayRaw, _ := spec.Raw["day"].(string)
	token, human, err := parseWeekdayExpression(dayRaw)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	c := compiledBase(spec)
	c.Kind = domain.KindPureCron
	c.CronExpr = fmt.Sprintf("%d %d * * %s", minute, hour, token)
	c.Description = fmt.Sprintf("every %s at %02d:%02d", human, hour, minute)
	return c, nil
}

func compileMonthly(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	hour, minute, err := validateHHMM(rawString(spec, "time", "00:00"))
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	c := compiledBase(spec)
	if dom, ok := spec.Raw["day_of_month"]; ok {
		n, err := toInt(dom)
		if err != nil {
			return domain.CompiledSchedule{}, err
		}
		if err := validateDayOfMonth(n); err != nil {
			return domain.CompiledSchedule{}, err
		}
		c.Kind = domain.KindPureCron
		c.CronExpr = fmt.Sprintf("%d %d %d * *", minute, hour, n)
		c.Description = fmt.Sprintf("day %d of every month at %02d:%02d", n, hour, minute)
		return c, nil
	}
	ordinalRaw, _ := spec.Raw["ordinal"].(string)
	dayRaw, _ := spec.Raw["day"].(string)
	ordinal := normalizeOrdinal(ordinalRaw)
	if _, ok := ordinalToIndex[ordinal]; !ok {
		return domain.CompiledSchedule{}, shared.Wrapf(shared.ErrConfigInvalid, "unrecognized ordinal %q", ordinalRaw)
	}
	targetWeekday, err := parseSingleWeekday(dayRaw)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	c.Kind = domain.KindHybrid
	c.CronExpr = fmt.Sprintf("%d %d * * %d", minute, hour, targetWeekday)
	c.Guard = func(candidate time.Time) bool {
		return int(candidate.Weekday()) == targetWeekday && isMonthlyOrdinalWeekday(candidate, targetWeekday, ordinal)
	}
	c.Description = fmt.Sprintf("the %s %s of every month at %02d:%02d", ordinal, weekdayNameFromCron(targetWeekday), hour, minute)
	return c, nil
}

func compileYearly(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	hour, minute, err := validateHHMM(rawString(spec, "time", "00:00"))
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	monthRaw, _ := spec.Raw["month"].(string)
	month, err := normalizeMonthToken(monthRaw)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	dom := 1
	if v, ok := spec.Raw["day_of_month"]; ok {
		dom, err = toInt(v)
		if err != nil {
			return domain.CompiledSchedule{}, err
		}
		if err := validateDayOfMonth(dom); err != nil {
			return domain.CompiledSchedule{}, err
		}
	}
	c := compiledBase(spec)
	c.Kind = domain.KindPureCron
	c.CronExpr = fmt.Sprintf("%d %d %d %d *", minute, hour, dom, month)
	c.Description = fmt.Sprintf("%02d/%02d at %02d:%02d every year", month, dom, hour, minute)
	return c, nil
}

func compileInterval(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	everyRaw, _ := spec.Raw["every"].(string)
	amount, unit, err := parseInterval(everyRaw)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	c := compiledBase(spec)
	switch unit {
	case "m":
		if 60%amount == 0 {
			c.Kind = domain.KindPureCron
			c.CronExpr = fmt.Sprintf("*/%d * * * *", amount)
			c.Description = fmt.Sprintf("every %d minutes", amount)
			return c, nil
		}
	case "h":
		if 24%amount == 0 {
			c.Kind = domain.KindPureCron
			c.CronExpr = fmt.Sprintf("0 */%d * * *", amount)
			c.Description = fmt.Sprintf("every %d hours", amount)
			return c, nil
		}
	case "d":
		if amount == 1 {
			c.Kind = domain.KindPureCron
			c.CronExpr = "0 0 * * *"
			c.Description = "every day"
			return c, nil
		}
	}
	c.Kind = domain.KindRuntimeOnly
	c.Interval = intervalDuration(amount, unit)
	c.IntervalText = everyRaw
	c.Description = fmt.Sprintf("every %s (runtime interval)", everyRaw)
	return c, nil
}

func intervalDuration(amount int, unit string) time.Duration {
	switch unit {
	case "m":
		return time.Duration(amount) * time.Minute
	case "h":
		return time.Duration(amount) * time.Hour
	case "d":
		return time.Duration(amount) * 24 * time.Hour
	default:
		return time.Duration(amount) * time.Second
	}
}

func compileCustom(spec domain.ScheduleSpec) (domain.CompiledSchedule, error) {
	minute, err := customField(spec, "minute", fieldMinute, nil)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	hour, err := customField(spec, "hour", fieldHour, nil)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	dom, err := customField(spec, "day_of_month", fieldDOM, nil)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	month, err := customField(spec, "month", fieldMonth, monthNameToNum)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	dow, err := customField(spec, "day_of_week", fieldDOW, dayNameToCron)
	if err != nil {
		return domain.CompiledSchedule{}, err
	}
	c := compiledBase(spec)
	c.Kind = domain.KindPureCron
	c.CronExpr = fmt.Sprintf("%s %s %s %s %s", minute, hour, dom, month, dow)
	c.Description = fmt.Sprintf("custom (%s)", c.CronExpr)
	return c, nil
}

func customField(spec domain.ScheduleSpec, key string, fieldIndex int, names map[string]int) (string, error) {
	v, ok := spec.Raw[key]
	if !ok {
		return "*", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", shared.Wrapf(shared.ErrConfigInvalid, "custom field %q must be a string", key)
	}
	return normalizeCustomField(s, fieldIndex, names)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, shared.Wrapf(shared.ErrConfigInvalid, "expected an integer, got %T", v)
	}
}

func normalizeOrdinal(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// isMonthlyOrdinalWeekday reports whether candidate is the ordinal-th
// occurrence of weekday within candidate's month ("last" selects the
// final occurrence).
func isMonthlyOrdinalWeekday(candidate time.Time, weekday int, ordinal string) bool {
	year, month := candidate.Year(), candidate.Month()
	first := time.Date(year, month, 1, 0, 0, 0, 0, candidate.Location())
	daysInMonth := first.AddDate(0, 1, -1).Day()
	var days []int
	for d := 1; d <= daysInMonth; d++ {
		dt := time.Date(year, month, d, 0, 0, 0, 0, candidate.Location())
		if int(dt.Weekday()) == weekday {
			days = append(days, d)
		}
	}
	if ordinal == "last" {
		return len(days) > 0 && candidate.Day() == days[len(days)-1]
	}
	idx, ok := ordinalToIndex[ordinal]
	if !ok || idx >= len(days) {
		return false
	}
	return candidate.Day() == days[idx]
}
