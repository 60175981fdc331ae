package triggers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

func ptr(s string) *string { return &s }

func byKind(entries []models.ScheduleEntry, kind models.JobKind) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func windowed(seconds int, start, end string) models.Trigger {
	return models.Trigger{
		Kind:     models.TriggerInterval,
		Interval: &models.IntervalTrigger{Seconds: seconds, StartTime: start, EndTime: end},
	}
}

func TestCompile_WindowWrapsMidnight(t *testing.T) {
	entries, err := Compile("cam", []models.Trigger{windowed(10, "22:00", "06:00")}, false)
	require.NoError(t, err)

	captures := byKind(entries, models.JobCapture)
	require.Len(t, captures, 2)

	assert.Equal(t, "22-23", captures[0].Rule.Cron.Hour)
	assert.Equal(t, "0-5", captures[1].Rule.Cron.Hour)
	assert.Equal(t, "cam_0_22-23", captures[0].ID)
	assert.Equal(t, "cam_0_0-5", captures[1].ID)

	for _, c := range captures {
		assert.Equal(t, "*/10", c.Rule.Cron.Second)
		assert.Equal(t, "*", c.Rule.Cron.Minute)
	}

	flushes := byKind(entries, models.JobBoundaryFlush)
	require.Len(t, flushes, 1)
	assert.Equal(t, "cam_0_flush", flushes[0].ID)
	assert.Equal(t, "0", flushes[0].Rule.Cron.Second)
	assert.Equal(t, "0", flushes[0].Rule.Cron.Minute)
	assert.Equal(t, "6", flushes[0].Rule.Cron.Hour)
}

func TestCompile_WindowSameDay(t *testing.T) {
	entries, err := Compile("cam", []models.Trigger{windowed(30, "08:00", "20:00")}, false)
	require.NoError(t, err)

	captures := byKind(entries, models.JobCapture)
	require.Len(t, captures, 1)
	assert.Equal(t, "8-19", captures[0].Rule.Cron.Hour)

	flushes := byKind(entries, models.JobBoundaryFlush)
	require.Len(t, flushes, 1)
	assert.Equal(t, "0 0 20 * * *", flushes[0].Rule.Cron.String())
}

func TestCompile_WindowEndingAtMidnight(t *testing.T) {
	entries, err := Compile("cam", []models.Trigger{windowed(5, "18:00", "00:00")}, false)
	require.NoError(t, err)

	captures := byKind(entries, models.JobCapture)
	require.Len(t, captures, 1)
	assert.Equal(t, "18-23", captures[0].Rule.Cron.Hour)
	assert.Equal(t, "0", byKind(entries, models.JobBoundaryFlush)[0].Rule.Cron.Hour)
}

func TestCompile_BoundaryFlushKeepsEndMinute(t *testing.T) {
	entries, err := Compile("cam", []models.Trigger{windowed(5, "08:00", "17:30")}, false)
	require.NoError(t, err)

	flush := byKind(entries, models.JobBoundaryFlush)[0]
	assert.Equal(t, "0 30 17 * * *", flush.Rule.Cron.String())
}

func TestCompile_LongPeriodsUseCoarserFields(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "sub minute", seconds: 15, want: "*/15 * 8-19 * * *"},
		{name: "one minute", seconds: 60, want: "0 * 8-19 * * *"},
		{name: "five minutes", seconds: 300, want: "0 */5 8-19 * * *"},
		{name: "one hour", seconds: 3600, want: "0 0 8-19 * * *"},
		{name: "two hours", seconds: 7200, want: "0 0 8-19/2 * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Compile("cam", []models.Trigger{windowed(tt.seconds, "08:00", "20:00")}, false)
			require.NoError(t, err)

			assert.Equal(t, tt.want, byKind(entries, models.JobCapture)[0].Rule.Cron.String())
		})
	}
}

func TestCompile_PlainInterval(t *testing.T) {
	trig := models.Trigger{Kind: models.TriggerInterval, Interval: &models.IntervalTrigger{Seconds: 45}}

	entries, err := Compile("cam", []models.Trigger{trig}, false)
	require.NoError(t, err)

	captures := byKind(entries, models.JobCapture)
	require.Len(t, captures, 1)
	assert.Equal(t, "cam_0", captures[0].ID)
	assert.Equal(t, 45*time.Second, captures[0].Rule.Every)
	assert.Nil(t, captures[0].Rule.Cron)
	assert.Empty(t, byKind(entries, models.JobBoundaryFlush))
}

func TestCompile_CronOnlyHour(t *testing.T) {
	trig := models.Trigger{Kind: models.TriggerCron, Cron: &models.CronTrigger{Hour: ptr("3")}}

	entries, err := Compile("cam", []models.Trigger{trig}, false)
	require.NoError(t, err)

	captures := byKind(entries, models.JobCapture)
	require.Len(t, captures, 1)

	fields := captures[0].Rule.Cron
	assert.Equal(t, "3", fields.Hour)
	assert.Equal(t, "*", fields.Second)
	assert.Equal(t, "*", fields.Minute)
	assert.Equal(t, "*", fields.Day)
	assert.Equal(t, "*", fields.Month)
	assert.Equal(t, "*", fields.DayOfWeek)
}

func TestCompile_CronFieldsVerbatim(t *testing.T) {
	trig := models.Trigger{Kind: models.TriggerCron, Cron: &models.CronTrigger{
		Second:    ptr("30"),
		Minute:    ptr("*/5"),
		DayOfWeek: ptr("mon-fri"),
	}}

	entries, err := Compile("cam", []models.Trigger{trig}, false)
	require.NoError(t, err)

	assert.Equal(t, "30 */5 * * * 1,2,3,4,5", entries[0].Rule.Cron.String())
}

func TestCompile_BadWeekday(t *testing.T) {
	trig := models.Trigger{Kind: models.TriggerCron, Cron: &models.CronTrigger{DayOfWeek: ptr("7")}}

	_, err := Compile("cam", []models.Trigger{trig}, false)
	assert.ErrorIs(t, err, errs.ErrInvalidCronField)
}

func TestWeekdays(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{expr: "*", want: "*"},
		{expr: "0", want: "1"},
		{expr: "6", want: "0"},
		{expr: "mon", want: "1"},
		{expr: "SUN", want: "0"},
		{expr: "0-4", want: "1,2,3,4,5"},
		{expr: "mon-fri", want: "1,2,3,4,5"},
		{expr: "fri-sun", want: "0,5,6"},
		{expr: "4-6", want: "0,5,6"},
		{expr: "*/2", want: "0,1,3,5"},
		{expr: "1/3", want: "2,5"},
		{expr: "0-6/3", want: "0,1,4"},
		{expr: "mon, wed,sat", want: "1,3,6"},
		{expr: "0,mon", want: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Weekdays(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"7", "-1", "sun-mon", "mon/0", "funday", ""} {
		_, err := Weekdays(bad)
		assert.ErrorIs(t, err, errs.ErrInvalidCronField, bad)
	}
}

func TestCompile_DailyFlushAlwaysPresent(t *testing.T) {
	trig := models.Trigger{Kind: models.TriggerCron, Cron: &models.CronTrigger{}}

	entries, err := Compile("cam", []models.Trigger{trig}, false)
	require.NoError(t, err)

	daily := byKind(entries, models.JobDailyFlush)
	require.Len(t, daily, 1)
	assert.Equal(t, "cam_flush", daily[0].ID)
	assert.Equal(t, "0 0 0 * * *", daily[0].Rule.Cron.String())
	assert.Empty(t, byKind(entries, models.JobHeartbeat))
}

func TestCompile_Heartbeat(t *testing.T) {
	cronTrig := models.Trigger{Kind: models.TriggerCron, Cron: &models.CronTrigger{Hour: ptr("3")}}

	t.Run("first interval period", func(t *testing.T) {
		trigs := []models.Trigger{
			cronTrig,
			windowed(20, "08:00", "20:00"),
			{Kind: models.TriggerInterval, Interval: &models.IntervalTrigger{Seconds: 90}},
		}

		entries, err := Compile("cam", trigs, true)
		require.NoError(t, err)

		hb := byKind(entries, models.JobHeartbeat)
		require.Len(t, hb, 1)
		assert.Equal(t, "cam_heartbeat", hb[0].ID)
		assert.Equal(t, 20*time.Second, hb[0].Rule.Every)
	})

	t.Run("default without interval triggers", func(t *testing.T) {
		entries, err := Compile("cam", []models.Trigger{cronTrig}, true)
		require.NoError(t, err)

		hb := byKind(entries, models.JobHeartbeat)
		require.Len(t, hb, 1)
		assert.Equal(t, time.Minute, hb[0].Rule.Every)
	})
}

func TestCompile_UniqueIDs(t *testing.T) {
	trigs := []models.Trigger{
		windowed(10, "22:00", "06:00"),
		windowed(10, "08:00", "20:00"),
		{Kind: models.TriggerInterval, Interval: &models.IntervalTrigger{Seconds: 5}},
		{Kind: models.TriggerCron, Cron: &models.CronTrigger{}},
	}

	entries, err := Compile("cam", trigs, true)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, e := range entries {
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
		assert.Equal(t, "cam", e.CameraID)
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile("cam", []models.Trigger{{Kind: "sunrise"}}, false)
	assert.ErrorIs(t, err, errs.ErrUnknownTrigger)

	_, err = Compile("cam", []models.Trigger{windowed(10, "25:00", "06:00")}, false)
	assert.ErrorIs(t, err, errs.ErrInvalidTimeWindow)
}

func TestHourRanges(t *testing.T) {
	assert.Equal(t, []string{"8-19"}, HourRanges(8, 20))
	assert.Equal(t, []string{"22-23", "0-5"}, HourRanges(22, 6))
	assert.Equal(t, []string{"18-23"}, HourRanges(18, 0))
}
