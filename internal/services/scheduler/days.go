package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

// maxDaySearch bounds the search for a time matching both day fields.
// Impossible combinations, e.g. Feb 30th, give up and never fire.
const maxDaySearch = 1000

func restricted(field string) bool {
	return field != "" && field != models.Wildcard && field != "?"
}

// bothDays parses a rule whose day-of-month and day-of-week are both set.
// cron ORs the two in that case; the rule must fire only when both match.
func (s *Scheduler) bothDays(fields models.CronFields) (cron.Schedule, error) {
	byDay := fields
	byDay.DayOfWeek = models.Wildcard

	byWeekday := fields
	byWeekday.Day = models.Wildcard

	day, err := s.parser.Parse(byDay.String())
	if err != nil {
		return nil, err
	}

	weekday, err := s.parser.Parse(byWeekday.String())
	if err != nil {
		return nil, err
	}

	return allDays{day: day, weekday: weekday}, nil
}

type allDays struct {
	day     cron.Schedule
	weekday cron.Schedule
}

// Next returns the first time after t matched by both schedules. Both share
// the time-of-day fields, so they agree exactly on any day matching both.
func (a allDays) Next(t time.Time) time.Time {
	for i := 0; i < maxDaySearch; i++ {
		d, w := a.day.Next(t), a.weekday.Next(t)
		if d.IsZero() || w.IsZero() {
			return time.Time{}
		}
		if d.Equal(w) {
			return d
		}

		later := d
		if w.After(d) {
			later = w
		}
		t = later.Add(-time.Second)
	}

	return time.Time{}
}
