package schedule

import (
	"time"

	"github.com/joshelvn11/chief/internal/domain"
)

const (
	// maxCronCandidates bounds how many expression-matching candidates
	// NextRunAfter will examine before giving up, defending against
	// pathological exclusion patterns that reject every match.
	maxCronCandidates = 10000
	// minuteScanLimit bounds the minute walk between two consecutive
	// expression matches: a five-field expression that can match at all
	// matches at least once every eight years (29 February waits eight years
	// across a non-leap century year), and 4300000 minutes is over 2986 days.
	minuteScanLimit = 4300000
)

// candidateAllowed applies the bounds/exclusion/DST/guard checks against a
// candidate already expressed in the compiled schedule's timezone.
func candidateAllowed(c domain.CompiledSchedule, candidateLocal time.Time) bool {
	loc := c.Timezone
	if loc == nil {
		loc = time.UTC
	}
	if isNonexistentLocal(candidateLocal, loc) {
		return false
	}
	if isFoldLater(candidateLocal) {
		return false
	}
	if c.Start != nil && candidateLocal.Before(*c.Start) {
		return false
	}
	if c.End != nil && candidateLocal.After(*c.End) {
		return false
	}
	for _, ex := range c.ExcludeDates {
		if sameDate(ex, candidateLocal) {
			return false
		}
	}
	if c.Guard != nil {
		return c.Guard(candidateLocal)
	}
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NextRunAfter returns the first UTC instant strictly after afterUTC at
// which compiled fires, or false if none could be found (end-of-window
// exceeded, or the search was exhausted).
func NextRunAfter(c domain.CompiledSchedule, afterUTC time.Time) (time.Time, bool) {
	if c.Kind == domain.KindRuntimeOnly {
		return nextIntervalAfter(c, afterUTC)
	}
	return nextCronAfter(c, afterUTC)
}

func nextCronAfter(c domain.CompiledSchedule, afterUTC time.Time) (time.Time, bool) {
	expr, err := ParseFiveFieldExpr(c.CronExpr)
	if err != nil {
		return time.Time{}, false
	}
	loc := c.Timezone
	if loc == nil {
		loc = time.UTC
	}
	cursor := afterUTC.In(loc)
	if c.Start != nil && cursor.Before(*c.Start) {
		cursor = c.Start.In(loc).Add(-time.Minute)
	}
	for i := 0; i < maxCronCandidates; i++ {
		candidate, ok := expr.Next(cursor, minuteScanLimit)
		if !ok {
			return time.Time{}, false
		}
		if c.End != nil && candidate.After(*c.End) {
			return time.Time{}, false
		}
		if candidateAllowed(c, candidate) {
			return candidate.In(time.UTC), true
		}
		cursor = candidate
	}
	return time.Time{}, false
}

func nextIntervalAfter(c domain.CompiledSchedule, afterUTC time.Time) (time.Time, bool) {
	loc := c.Timezone
	if loc == nil {
		loc = time.UTC
	}
	localAfter := afterUTC.In(loc)
	var candidate time.Time
	if c.Start != nil {
		if localAfter.Before(*c.Start) {
			candidate = *c.Start
			if later := localAfter.Add(c.Interval); later.After(candidate) {
				candidate = later
			}
		} else {
			elapsed := localAfter.Sub(*c.Start)
			steps := int64(elapsed/c.Interval) + 1
			candidate = c.Start.Add(time.Duration(steps) * c.Interval)
		}
	} else {
		candidate = localAfter.Add(c.Interval)
	}
	for i := 0; i < maxCronCandidates; i++ {
		if c.End != nil && candidate.After(*c.End) {
			return time.Time{}, false
		}
		if candidateAllowed(c, candidate) {
			return candidate.In(time.UTC), true
		}
		candidate = candidate.Add(c.Interval)
	}
	return time.Time{}, false
}

// NextRunTimes returns up to count future fire times strictly after
// afterUTC, used by the preview command. Fires are deduplicated by their
// local YYYY-MM-DD HH:MM slot, collapsing distinct instants that project
// onto the same wall-clock minute across a fold transition.
func NextRunTimes(c domain.CompiledSchedule, afterUTC time.Time, count int) []time.Time {
	loc := c.Timezone
	if loc == nil {
		loc = time.UTC
	}
	out := make([]time.Time, 0, count)
	seen := make(map[string]bool, count)
	cursor := afterUTC
	for len(out) < count {
		next, ok := NextRunAfter(c, cursor)
		if !ok {
			break
		}
		slot := next.In(loc).Format("2006-01-02 15:04")
		if !seen[slot] {
			seen[slot] = true
			out = append(out, next)
		}
		cursor = next
	}
	return out
}

// IsDueNow reports whether compiled is due at atUTC, truncated to the
// minute. For runtime_only schedules this checks whether the interval
// walk lands within one second of the truncated minute; for cron-bearing
// schedules it checks both candidateAllowed and a direct expression match.
func IsDueNow(c domain.CompiledSchedule, atUTC time.Time) bool {
	loc := c.Timezone
	if loc == nil {
		loc = time.UTC
	}
	marker := atUTC.Truncate(time.Minute)
	if c.Kind == domain.KindRuntimeOnly {
		candidate, ok := nextIntervalAfter(c, marker.Add(-time.Second))
		if !ok {
			return false
		}
		diff := candidate.Sub(marker)
		if diff < 0 {
			diff = -diff
		}
		return diff < time.Second
	}
	local := marker.In(loc)
	expr, err := ParseFiveFieldExpr(c.CronExpr)
	if err != nil {
		return false
	}
	return candidateAllowed(c, local) && expr.Match(local)
}
