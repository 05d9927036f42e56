package schedule

import (
	"github.com/robfig/cron/v3"

	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/shared"
)

// SanityCheck parses a compiled schedule's cron expression with
// robfig/cron/v3's standard parser purely as a second opinion: if a widely
// used, independently maintained cron parser rejects an expression our own
// compiler produced, that is almost certainly a bug in the compiler, not a
// legitimate expression robfig fails to understand. The oracle never reads
// anything back from this parser — Next/IsDueNow are answered exclusively
// by the hand-rolled evaluator in matcher.go and oracle.go.
func SanityCheck(c domain.CompiledSchedule) error {
	if c.Kind == domain.KindRuntimeOnly {
		return nil
	}
	if _, err := cron.ParseStandard(c.CronExpr); err != nil {
		return shared.Wrapf(shared.ErrScheduleCompile, "expression %q failed robfig/cron sanity check: %v", c.CronExpr, err)
	}
	return nil
}
