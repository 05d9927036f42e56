package schedule

import "time"

// isNonexistentLocal reports whether localDT's wall-clock reading,
// interpreted in loc, falls inside a forward DST transition gap (e.g. 2:30
// AM on a "spring forward" day that jumps from 1:59:59 to 3:00:00).
// Detected by round-tripping the naive wall-clock value through loc and
// checking whether it survives unchanged: time.Date normalizes a reading
// inside the gap onto one of its edges, so the round trip comes back with
// different components.
func isNonexistentLocal(localDT time.Time, loc *time.Location) bool {
	naive := stripLocation(localDT)
	assumed := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), loc)
	return !sameWallClock(assumed, naive)
}

// isFoldLater reports whether t is the second of two real instants sharing
// the same wall-clock reading in t's location — the repeated hour after a
// fall-back transition. Scheduled fires happen on the first occurrence
// only, so the oracle rejects any candidate for which this returns true.
// An instant in the later fold sits a whole offset-change behind an
// earlier instant with the identical wall reading, which the shifted
// comparisons below detect without needing an explicit fold API.
func isFoldLater(t time.Time) bool {
	for _, d := range []time.Duration{30 * time.Minute, time.Hour, 2 * time.Hour} {
		if sameWallClock(t.Add(-d), t) {
			return true
		}
	}
	return false
}

func stripLocation(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func sameWallClock(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
