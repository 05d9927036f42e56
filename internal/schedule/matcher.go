package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/joshelvn11/chief/internal/shared"
)

// fieldSet is a bitset over a cron field's legal values, keyed by the raw
// integer value (not an offset), since the smallest field minimum is 0.
type fieldSet struct {
	bits    uint64
	allStar bool // true when the original token was unrestricted ("*")
}

func (s *fieldSet) set(v int) { s.bits |= 1 << uint(v) }

func (s fieldSet) has(v int) bool { return s.bits&(1<<uint(v)) != 0 }

// parseFieldSet expands a validated cron token into a fieldSet.
func parseFieldSet(token string, fieldIndex int) fieldSet {
	lo, hi := fieldRange[fieldIndex][0], fieldRange[fieldIndex][1]
	if token == "*" {
		s := fieldSet{allStar: true}
		for v := lo; v <= hi; v++ {
			s.set(v)
		}
		return s
	}
	var s fieldSet
	for _, part := range strings.Split(token, ",") {
		if strings.Contains(part, "/") {
			sp := strings.SplitN(part, "/", 2)
			base, step := sp[0], sp[1]
			stepN, _ := strconv.Atoi(step)
			start, end := lo, hi
			if base != "*" {
				start, end = rangeBounds(base, lo, hi)
			}
			for v := start; v <= end; v += stepN {
				s.set(v)
			}
			continue
		}
		start, end := rangeBounds(part, lo, hi)
		for v := start; v <= end; v++ {
			s.set(v)
		}
	}
	return s
}

func rangeBounds(part string, lo, hi int) (int, int) {
	if part == "*" {
		return lo, hi
	}
	if strings.Contains(part, "-") {
		sp := strings.SplitN(part, "-", 2)
		l, _ := strconv.Atoi(sp[0])
		r, _ := strconv.Atoi(sp[1])
		return l, r
	}
	v, _ := strconv.Atoi(part)
	return v, v
}

// FiveFieldExpr is a compiled five-field cron expression: minute hour
// day-of-month month day-of-week.
type FiveFieldExpr struct {
	Minute, Hour, DOM, Month, DOW fieldSet
	raw                           string
}

// ParseFiveFieldExpr parses and validates a raw "m h dom mon dow"
// expression string built by the compiler (already using canonical 0-6
// day-of-week numbering, Sunday=0).
func ParseFiveFieldExpr(expr string) (*FiveFieldExpr, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, shared.Wrapf(shared.ErrScheduleCompile, "expression %q must have exactly 5 fields", expr)
	}
	for i, f := range fields {
		if err := validateCronToken(normalizeStar(f), i); err != nil {
			return nil, err
		}
	}
	return &FiveFieldExpr{
		Minute: parseFieldSet(fields[0], fieldMinute),
		Hour:   parseFieldSet(fields[1], fieldHour),
		DOM:    parseFieldSet(fields[2], fieldDOM),
		Month:  parseFieldSet(fields[3], fieldMonth),
		DOW:    parseFieldSet(fields[4], fieldDOW),
		raw:    expr,
	}, nil
}

func normalizeStar(f string) string {
	if f == "" {
		return "*"
	}
	return f
}

// domRestricted reports whether the day-of-month field of a five-field
// expression restricts anything beyond "every day".
func (e *FiveFieldExpr) domRestricted() bool { return !allStarFromSet(e.DOM, fieldDOM) }
func (e *FiveFieldExpr) dowRestricted() bool { return !allStarFromSet(e.DOW, fieldDOW) }

func allStarFromSet(s fieldSet, fieldIndex int) bool {
	lo, hi := fieldRange[fieldIndex][0], fieldRange[fieldIndex][1]
	for v := lo; v <= hi; v++ {
		if !s.has(v) {
			return false
		}
	}
	return true
}

// Match reports whether t (truncated to the minute, in whatever location it
// already carries) satisfies the expression. Day-of-month and day-of-week
// combine with OR semantics when both are restricted, matching standard
// cron behavior, and with AND (i.e. the unrestricted field is ignored) when
// only one is restricted.
func (e *FiveFieldExpr) Match(t time.Time) bool {
	if !e.Minute.has(t.Minute()) || !e.Hour.has(t.Hour()) || !e.Month.has(int(t.Month())) {
		return false
	}
	domOK := e.DOM.has(t.Day())
	dowOK := e.DOW.has(goWeekdayToCron(t.Weekday()))
	domR, dowR := e.domRestricted(), e.dowRestricted()
	switch {
	case domR && dowR:
		return domOK || dowOK
	case domR:
		return domOK
	case dowR:
		return dowOK
	default:
		return true
	}
}

func goWeekdayToCron(w time.Weekday) int { return int(w) }

// Next finds the first minute-aligned time strictly after `after` (which
// need not itself be minute-aligned) that satisfies the expression, in
// after's location. The walk advances absolute instants minute by minute
// and matches against their wall-clock projection, so it is monotonic
// across DST transitions: a fall-back hour is visited twice (both real
// instants), a spring-forward gap is never visited at all. Truncation is
// done on the absolute timeline rather than by rebuilding wall-clock
// fields, which would snap a repeated-hour instant back to its earlier
// twin. Gives up after maxIterations candidate minutes.
func (e *FiveFieldExpr) Next(after time.Time, maxIterations int) (time.Time, bool) {
	t := after.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < maxIterations; i++ {
		if e.Match(t) {
			return t, true
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}, false
}
