package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshelvn11/chief/internal/domain"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestCompileDaily(t *testing.T) {
	loc := mustLoc(t, "UTC")
	spec := domain.ScheduleSpec{
		Frequency: "daily",
		Raw:       map[string]any{"time": "06:30"},
		Timezone:  loc,
	}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, domain.KindPureCron, c.Kind)
	assert.Equal(t, "30 6 * * *", c.CronExpr)
}

func TestCompileDailyWeekdaysOnly(t *testing.T) {
	spec := domain.ScheduleSpec{
		Frequency: "daily",
		Raw:       map[string]any{"time": "09:00", "weekdays_only": true},
		Timezone:  mustLoc(t, "UTC"),
	}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * 1-5", c.CronExpr)
}

func TestCompileMonthlyOrdinal(t *testing.T) {
	spec := domain.ScheduleSpec{
		Frequency: "monthly",
		Raw:       map[string]any{"ordinal": "last", "day": "friday", "time": "17:00"},
		Timezone:  mustLoc(t, "UTC"),
	}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, domain.KindHybrid, c.Kind)
	assert.Equal(t, "0 17 * * 5", c.CronExpr)
	require.NotNil(t, c.Guard)

	lastFriday := time.Date(2026, 1, 30, 17, 0, 0, 0, time.UTC)
	assert.True(t, c.Guard(lastFriday))
	notLastFriday := time.Date(2026, 1, 23, 17, 0, 0, 0, time.UTC)
	assert.False(t, c.Guard(notLastFriday))
}

func TestCompileIntervalPureCronWhenDivisible(t *testing.T) {
	spec := domain.ScheduleSpec{Frequency: "interval", Raw: map[string]any{"every": "15m"}, Timezone: mustLoc(t, "UTC")}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, domain.KindPureCron, c.Kind)
	assert.Equal(t, "*/15 * * * *", c.CronExpr)
}

func TestCompileIntervalRuntimeOnlyWhenNotDivisible(t *testing.T) {
	spec := domain.ScheduleSpec{Frequency: "interval", Raw: map[string]any{"every": "7m"}, Timezone: mustLoc(t, "UTC")}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, domain.KindRuntimeOnly, c.Kind)
	assert.Equal(t, 7*time.Minute, c.Interval)
}

func TestCompileIntervalRejectsSeconds(t *testing.T) {
	spec := domain.ScheduleSpec{Frequency: "interval", Raw: map[string]any{"every": "30s"}, Timezone: mustLoc(t, "UTC")}
	_, err := Compile(spec)
	require.Error(t, err)
}

func TestCompileCustomNamedTokens(t *testing.T) {
	spec := domain.ScheduleSpec{
		Frequency: "custom",
		Raw: map[string]any{
			"minute":       "0",
			"hour":         "3",
			"day_of_week":  "monday,friday",
			"month":        "january,june",
			"day_of_month": "*",
		},
		Timezone: mustLoc(t, "UTC"),
	}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * 1,6 1,5", c.CronExpr)
}

func TestCompileCustomFoldsSundaySeven(t *testing.T) {
	spec := domain.ScheduleSpec{
		Frequency: "custom",
		Raw:       map[string]any{"minute": "0", "hour": "8", "day_of_week": "7"},
		Timezone:  mustLoc(t, "UTC"),
	}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, "0 8 * * 0", c.CronExpr)
}

func TestCompileWeeklyNumericSevenIsSunday(t *testing.T) {
	spec := domain.ScheduleSpec{
		Frequency: "weekly",
		Raw:       map[string]any{"day": "7", "time": "10:00"},
		Timezone:  mustLoc(t, "UTC"),
	}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.Equal(t, "0 10 * * 0", c.CronExpr)
}

func TestSanityCheckAcceptsCompiledExpressions(t *testing.T) {
	spec := domain.ScheduleSpec{Frequency: "daily", Raw: map[string]any{"time": "00:00"}, Timezone: mustLoc(t, "UTC")}
	c, err := Compile(spec)
	require.NoError(t, err)
	assert.NoError(t, SanityCheck(c))
}
