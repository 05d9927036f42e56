// Package schedule compiles declarative recurrence descriptions into
// CompiledSchedule values and answers "when does this next fire" queries
// against them. The five-field expression grammar and DST handling are
// implemented from scratch here; robfig/cron/v3 is used only as a
// defensive sanity check (see sanitycheck.go), never as the source of
// truth for "what time is next."
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joshelvn11/chief/internal/shared"
)

var (
	intervalRe = regexp.MustCompile(`^(\d+)([smhd])$`)
	hhmmRe     = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	fieldRe    = regexp.MustCompile(`^[0-9*,/\-]+$`)
)

var dayNameToCron = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

var cronToDayName = func() map[int]string {
	m := make(map[int]string, len(dayNameToCron))
	for name, n := range dayNameToCron {
		m[n] = name
	}
	return m
}()

var monthNameToNum = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var ordinalToIndex = map[string]int{
	"first": 0, "second": 1, "third": 2, "fourth": 3, "last": -1,
}

// fieldRange returns the inclusive [min, max] bounds for each of the five
// cron fields, indexed 0=minute 1=hour 2=day-of-month 3=month 4=day-of-week.
var fieldRange = [5][2]int{
	{0, 59}, // minute
	{0, 23}, // hour
	{1, 31}, // day-of-month
	{1, 12}, // month
	{0, 6},  // day-of-week
}

const (
	fieldMinute = iota
	fieldHour
	fieldDOM
	fieldMonth
	fieldDOW
)

// normalizeWeekdayToken accepts either a weekday name or a 0-7 cron number
// (7 folds to 0, Sunday) and returns the canonical 0-6 cron number.
func normalizeWeekdayToken(token string) (int, error) {
	lower := strings.ToLower(strings.TrimSpace(token))
	if n, ok := dayNameToCron[lower]; ok {
		return n, nil
	}
	if v, err := strconv.Atoi(lower); err == nil {
		if v == 7 {
			v = 0
		}
		if v < 0 || v > 6 {
			return 0, shared.Wrapf(shared.ErrConfigInvalid, "weekday %q out of range 0-7", token)
		}
		return v, nil
	}
	return 0, shared.Wrapf(shared.ErrConfigInvalid, "unrecognized weekday %q", token)
}

func weekdayNameFromCron(n int) string {
	return cronToDayName[n]
}

// parseWeekdayExpression parses a day selector that may be a single
// weekday, a comma list, or a hyphen range, and returns both the cron-field
// token string and a human-readable description.
func parseWeekdayExpression(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		tokens := make([]string, 0, len(parts))
		names := make([]string, 0, len(parts))
		for _, p := range parts {
			tok, human, err := parseWeekdayExpression(p)
			if err != nil {
				return "", "", err
			}
			tokens = append(tokens, tok)
			names = append(names, human)
		}
		return strings.Join(tokens, ","), strings.Join(names, ", "), nil
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		left, err := normalizeWeekdayToken(parts[0])
		if err != nil {
			return "", "", err
		}
		right, err := normalizeWeekdayToken(parts[1])
		if err != nil {
			return "", "", err
		}
		if left > right {
			return "", "", shared.Wrapf(shared.ErrConfigInvalid, "weekday range %q is inverted", raw)
		}
		return fmt.Sprintf("%d-%d", left, right), fmt.Sprintf("%s-%s", weekdayNameFromCron(left), weekdayNameFromCron(right)), nil
	}
	n, err := normalizeWeekdayToken(raw)
	if err != nil {
		return "", "", err
	}
	return strconv.Itoa(n), weekdayNameFromCron(n), nil
}

// parseSingleWeekday requires exactly one weekday (no list, no range) and
// returns it as a Go time.Weekday-compatible value (0=Sunday..6=Saturday,
// same numbering chief uses internally).
func parseSingleWeekday(raw string) (int, error) {
	tok, _, err := parseWeekdayExpression(raw)
	if err != nil {
		return 0, err
	}
	if strings.ContainsAny(tok, ",-") {
		return 0, shared.Wrapf(shared.ErrConfigInvalid, "expected a single weekday, got %q", raw)
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func normalizeMonthToken(raw string) (int, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if n, ok := monthNameToNum[lower]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(lower)
	if err != nil {
		return 0, shared.Wrapf(shared.ErrConfigInvalid, "unrecognized month %q", raw)
	}
	if n < 1 || n > 12 {
		return 0, shared.Wrapf(shared.ErrConfigInvalid, "month %q out of range 1-12", raw)
	}
	return n, nil
}

func validateDayOfMonth(n int) error {
	if n < 1 || n > 31 {
		return shared.Wrapf(shared.ErrConfigInvalid, "day_of_month %d out of range 1-31", n)
	}
	return nil
}

func validateHHMM(raw string) (hour, minute int, err error) {
	m := hhmmRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, shared.Wrapf(shared.ErrConfigInvalid, "time %q must be HH:MM (24h)", raw)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// parseInterval parses an "every" token like "15m", "2h", or "1d". Second
// granularity is explicitly rejected: an interval below a minute cannot be
// represented against a minute-grained cron core.
func parseInterval(raw string) (amount int, unit string, err error) {
	m := intervalRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, "", shared.Wrapf(shared.ErrConfigInvalid, `every %q must match "<number><s|m|h|d>"`, raw)
	}
	amount, _ = strconv.Atoi(m[1])
	unit = m[2]
	if amount <= 0 {
		return 0, "", shared.Wrapf(shared.ErrConfigInvalid, "every %q must be a positive amount", raw)
	}
	if unit == "s" {
		return 0, "", shared.Wrap(shared.ErrConfigInvalid, `seconds intervals are unsupported; use m, h, or d in "every"`)
	}
	return amount, unit, nil
}

// replaceNamedTokens substitutes alphabetic tokens in a custom cron field
// using the supplied name table, leaving digits/operators untouched.
func replaceNamedTokens(field string, names map[string]int) (string, error) {
	var b strings.Builder
	var tok strings.Builder
	flush := func() error {
		if tok.Len() == 0 {
			return nil
		}
		word := strings.ToLower(tok.String())
		n, ok := names[word]
		if !ok {
			return shared.Wrapf(shared.ErrConfigInvalid, "unrecognized token %q in custom field %q", tok.String(), field)
		}
		b.WriteString(strconv.Itoa(n))
		tok.Reset()
		return nil
	}
	for _, r := range field {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			tok.WriteRune(r)
			continue
		}
		if err := flush(); err != nil {
			return "", err
		}
		b.WriteRune(r)
	}
	if err := flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// validateCronToken validates a single custom cron field (already
// name-resolved to digits) against the bounds for fieldIndex, per the
// grammar: comma-separated parts, each either "*", "base/step", "lo-hi", or
// a single value.
func validateCronToken(token string, fieldIndex int) error {
	if !fieldRe.MatchString(token) {
		return shared.Wrapf(shared.ErrConfigInvalid, "field %q contains invalid characters", token)
	}
	lo, hi := fieldRange[fieldIndex][0], fieldRange[fieldIndex][1]
	for _, part := range strings.Split(token, ",") {
		if part == "" {
			return shared.Wrapf(shared.ErrConfigInvalid, "field %q has an empty list entry", token)
		}
		if strings.Contains(part, "/") {
			sp := strings.SplitN(part, "/", 2)
			base, step := sp[0], sp[1]
			stepN, err := strconv.Atoi(step)
			if err != nil || stepN <= 0 {
				return shared.Wrapf(shared.ErrConfigInvalid, "step %q in field %q must be a positive integer", step, token)
			}
			if stepN > hi-lo+1 {
				return shared.Wrapf(shared.ErrConfigInvalid, "step %d in field %q exceeds the field's range", stepN, token)
			}
			if base != "*" {
				if err := validateRangeOrSingle(base, lo, hi); err != nil {
					return err
				}
			}
			continue
		}
		if err := validateRangeOrSingle(part, lo, hi); err != nil {
			return err
		}
	}
	return nil
}

func validateRangeOrSingle(part string, lo, hi int) error {
	if part == "*" {
		return nil
	}
	if strings.Contains(part, "-") {
		sp := strings.SplitN(part, "-", 2)
		left, err1 := strconv.Atoi(sp[0])
		right, err2 := strconv.Atoi(sp[1])
		if err1 != nil || err2 != nil {
			return shared.Wrapf(shared.ErrConfigInvalid, "range %q is not numeric", part)
		}
		if left > right {
			return shared.Wrapf(shared.ErrConfigInvalid, "range %q is inverted", part)
		}
		if left < lo || right > hi {
			return shared.Wrapf(shared.ErrConfigInvalid, "range %q out of bounds [%d,%d]", part, lo, hi)
		}
		return nil
	}
	v, err := strconv.Atoi(part)
	if err != nil {
		return shared.Wrapf(shared.ErrConfigInvalid, "value %q is not numeric", part)
	}
	if v < lo || v > hi {
		return shared.Wrapf(shared.ErrConfigInvalid, "value %d out of bounds [%d,%d]", v, lo, hi)
	}
	return nil
}

// normalizeCustomField resolves named tokens then validates the result for
// the given field index, returning the canonical cron token.
func normalizeCustomField(raw string, fieldIndex int, names map[string]int) (string, error) {
	resolved := raw
	if names != nil {
		var err error
		resolved, err = replaceNamedTokens(raw, names)
		if err != nil {
			return "", err
		}
	}
	if fieldIndex == fieldDOW {
		resolved = foldSundaySeven(resolved)
	}
	if err := validateCronToken(resolved, fieldIndex); err != nil {
		return "", err
	}
	return resolved, nil
}

// foldSundaySeven maps a bare "7" day-of-week entry to the canonical "0"
// (both mean Sunday). A 7 inside a range or step expression is left for
// validation to reject rather than guessing at wrap-around semantics.
func foldSundaySeven(token string) string {
	parts := strings.Split(token, ",")
	for i, p := range parts {
		if p == "7" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, ",")
}
