package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/services/triggers"
)

func newTestScheduler(opts Options) *Scheduler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, metrics.NewNop(), opts)
}

func every(id string, d time.Duration) models.ScheduleEntry {
	return models.ScheduleEntry{ID: id, CameraID: "cam", Kind: models.JobCapture, Rule: models.Rule{Every: d}}
}

func TestAdd_ReplacesExistingID(t *testing.T) {
	s := newTestScheduler(Options{})

	require.NoError(t, s.Add(every("cam_0", time.Second), func(context.Context) {}))
	require.NoError(t, s.Add(every("cam_0", 2*time.Second), func(context.Context) {}))

	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, 2*time.Second, jobs[0].Rule.Every)
}

func TestAdd_CronRule(t *testing.T) {
	s := newTestScheduler(Options{})

	entry := models.ScheduleEntry{ID: "cam_0_22-23", Rule: models.Rule{Cron: &models.CronFields{
		Second: "*/10", Minute: "*", Hour: "22-23", Day: "*", Month: "*", DayOfWeek: "*",
	}}}
	require.NoError(t, s.Add(entry, func(context.Context) {}))

	bad := models.ScheduleEntry{ID: "bad", Rule: models.Rule{Cron: &models.CronFields{
		Second: "61", Minute: "*", Hour: "*", Day: "*", Month: "*", DayOfWeek: "*",
	}}}
	assert.Error(t, s.Add(bad, func(context.Context) {}))

	assert.Error(t, s.Add(models.ScheduleEntry{ID: "empty"}, func(context.Context) {}))
	assert.Len(t, s.List(), 1)
}

func TestList_NextFireInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	s := newTestScheduler(Options{Location: loc})
	entry := models.ScheduleEntry{ID: "cam_flush", Kind: models.JobDailyFlush, Rule: models.Rule{Cron: &models.CronFields{
		Second: "0", Minute: "0", Hour: "0", Day: "*", Month: "*", DayOfWeek: "*",
	}}}
	require.NoError(t, s.Add(entry, func(context.Context) {}))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return !s.List()[0].Next.IsZero() }, time.Second, 10*time.Millisecond)

	next := s.List()[0].Next.In(loc)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, 0, next.Second())
}

func TestRemove(t *testing.T) {
	s := newTestScheduler(Options{})
	require.NoError(t, s.Add(every("cam_0", time.Second), func(context.Context) {}))

	assert.True(t, s.Remove("cam_0"))
	assert.False(t, s.Remove("cam_0"))
	assert.Empty(t, s.List())
}

func TestFailingJobKeepsFiring(t *testing.T) {
	s := newTestScheduler(Options{})

	var calls atomic.Int64
	require.NoError(t, s.Add(every("cam_0", time.Second), func(context.Context) {
		calls.Add(1)
		panic("camera exploded")
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
	assert.Len(t, s.List(), 1)
}

func TestTrigger_MaxInstances(t *testing.T) {
	s := newTestScheduler(Options{Workers: 5, MaxInstances: 3})

	block := make(chan struct{})
	var started atomic.Int64
	require.NoError(t, s.Add(every("cam_0", time.Hour), func(context.Context) {
		started.Add(1)
		<-block
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Trigger("cam_0"))
	}

	require.Eventually(t, func() bool { return started.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, started.Load())
	assert.EqualValues(t, 3, s.List()[0].Running)

	close(block)
	assert.Eventually(t, func() bool { return s.List()[0].Running == 0 }, time.Second, 5*time.Millisecond)
}

func TestTrigger_PoolExhaustedDropsTick(t *testing.T) {
	s := newTestScheduler(Options{Workers: 1, MaxInstances: 3, MisfireGrace: 20 * time.Millisecond})

	block := make(chan struct{})
	defer close(block)

	var first, second atomic.Int64
	require.NoError(t, s.Add(every("a", time.Hour), func(context.Context) {
		first.Add(1)
		<-block
	}))
	require.NoError(t, s.Add(every("b", time.Hour), func(context.Context) { second.Add(1) }))

	require.NoError(t, s.Trigger("a"))
	require.Eventually(t, func() bool { return first.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Trigger("b"))
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, second.Load())
}

func TestTrigger_UnknownJob(t *testing.T) {
	s := newTestScheduler(Options{})

	assert.ErrorIs(t, s.Trigger("missing"), errs.ErrJobNotFound)
}

func TestStop_DoesNotWaitOrCancelRunningJobs(t *testing.T) {
	s := newTestScheduler(Options{})

	block := make(chan struct{})
	done := make(chan error, 1)
	require.NoError(t, s.Add(every("cam_0", time.Hour), func(ctx context.Context) {
		<-block
		done <- ctx.Err()
	}))

	s.Start()
	require.NoError(t, s.Trigger("cam_0"))
	require.Eventually(t, func() bool { return s.List()[0].Running == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop waited for running job")
	}

	close(block)
	assert.NoError(t, <-done)
}

func cronTrigger(hour, day, dayOfWeek string) models.Trigger {
	trig := &models.CronTrigger{Hour: &hour}
	if day != "" {
		trig.Day = &day
	}
	if dayOfWeek != "" {
		trig.DayOfWeek = &dayOfWeek
	}

	return models.Trigger{Kind: models.TriggerCron, Cron: trig}
}

func TestSchedule_CronTriggerDays(t *testing.T) {
	// Monday.
	from := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		trig models.Trigger
		want time.Time
	}{
		{
			name: "zero is monday",
			trig: cronTrigger("3", "", "0"),
			want: time.Date(2026, 10, 26, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "six is sunday",
			trig: cronTrigger("3", "", "6"),
			want: time.Date(2026, 10, 25, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "weekend range by name",
			trig: cronTrigger("3", "", "sat-sun"),
			want: time.Date(2026, 10, 24, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "day and weekday must both match",
			trig: cronTrigger("3", "1", "mon"),
			want: time.Date(2027, 2, 1, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "day alone",
			trig: cronTrigger("3", "1", ""),
			want: time.Date(2026, 11, 1, 3, 0, 0, 0, time.UTC),
		},
	}

	s := newTestScheduler(Options{Location: time.UTC})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := triggers.Compile("cam", []models.Trigger{tt.trig}, false)
			require.NoError(t, err)

			schedule, err := s.schedule(entries[0].Rule)
			require.NoError(t, err)

			got := schedule.Next(from)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Weekday(), got.Weekday())
		})
	}
}

func TestSchedule_ImpossibleDaysNeverFire(t *testing.T) {
	s := newTestScheduler(Options{Location: time.UTC})

	schedule, err := s.schedule(models.Rule{Cron: &models.CronFields{
		Second: "0", Minute: "0", Hour: "0", Day: "30", Month: "2", DayOfWeek: "1",
	}})
	require.NoError(t, err)

	assert.True(t, schedule.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).IsZero())
}

func TestTrigger_AfterStop(t *testing.T) {
	s := newTestScheduler(Options{})

	var calls atomic.Int64
	require.NoError(t, s.Add(every("cam_0", time.Hour), func(context.Context) { calls.Add(1) }))

	s.Start()
	s.Stop()

	assert.ErrorIs(t, s.Trigger("cam_0"), errs.ErrSchedulerStopped)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
