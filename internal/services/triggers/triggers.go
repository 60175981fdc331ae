// Package triggers compiles declarative camera triggers into concrete
// schedule entries.
package triggers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

const defaultHeartbeat = 60 * time.Second

// Compile expands the triggers of one camera, together with the implicit
// daily flush and optional heartbeat entries. Ids are deterministic:
// camera_index for plain triggers, camera_index_hours for windowed ranges,
// camera_index_flush for window boundary flushes, camera_flush and
// camera_heartbeat for the implicit entries.
func Compile(cameraID string, trigs []models.Trigger, withHeartbeat bool) ([]models.ScheduleEntry, error) {
	const op = "triggers.Compile"

	var entries []models.ScheduleEntry

	for idx, trig := range trigs {
		base := fmt.Sprintf("%s_%d", cameraID, idx)

		switch trig.Kind {
		case models.TriggerInterval:
			compiled, err := interval(cameraID, base, trig.Interval)
			if err != nil {
				return nil, fmt.Errorf("%s: trigger %s: %w", op, base, err)
			}
			entries = append(entries, compiled...)
		case models.TriggerCron:
			entry, err := cronLike(cameraID, base, trig.Cron)
			if err != nil {
				return nil, fmt.Errorf("%s: trigger %s: %w", op, base, err)
			}
			entries = append(entries, entry)
		default:
			return nil, fmt.Errorf("%s: trigger %s: %w: %q", op, base, errs.ErrUnknownTrigger, trig.Kind)
		}
	}

	entries = append(entries, models.ScheduleEntry{
		ID:       cameraID + "_flush",
		CameraID: cameraID,
		Kind:     models.JobDailyFlush,
		Rule:     models.Rule{Cron: at(0, 0)},
	})

	if withHeartbeat {
		entries = append(entries, models.ScheduleEntry{
			ID:       cameraID + "_heartbeat",
			CameraID: cameraID,
			Kind:     models.JobHeartbeat,
			Rule:     models.Rule{Every: HeartbeatPeriod(trigs)},
		})
	}

	return entries, nil
}

// HeartbeatPeriod is the period of the first interval trigger in declaration
// order, or one minute when there is none.
func HeartbeatPeriod(trigs []models.Trigger) time.Duration {
	for _, trig := range trigs {
		if trig.Kind == models.TriggerInterval && trig.Interval != nil {
			return seconds(trig.Interval.Seconds)
		}
	}

	return defaultHeartbeat
}

func interval(cameraID, base string, t *models.IntervalTrigger) ([]models.ScheduleEntry, error) {
	if t == nil || t.Seconds <= 0 {
		return nil, errs.ErrUnknownTrigger
	}

	if !t.Windowed() {
		return []models.ScheduleEntry{{
			ID:       base,
			CameraID: cameraID,
			Kind:     models.JobCapture,
			Rule:     models.Rule{Every: seconds(t.Seconds)},
		}}, nil
	}

	startHour, _, err := clock(t.StartTime)
	if err != nil {
		return nil, err
	}

	endHour, endMinute, err := clock(t.EndTime)
	if err != nil {
		return nil, err
	}

	second, minute, step := periodFields(t.Seconds)

	entries := make([]models.ScheduleEntry, 0, 3)
	for _, hours := range HourRanges(startHour, endHour) {
		fields := wildcard()
		fields.Second = second
		fields.Minute = minute
		fields.Hour = hours + step

		entries = append(entries, models.ScheduleEntry{
			ID:       base + "_" + hours,
			CameraID: cameraID,
			Kind:     models.JobCapture,
			Rule:     models.Rule{Cron: fields},
		})
	}

	// Encode buffered frames when the window closes so clips never span it.
	entries = append(entries, models.ScheduleEntry{
		ID:       base + "_flush",
		CameraID: cameraID,
		Kind:     models.JobBoundaryFlush,
		Rule:     models.Rule{Cron: at(endHour, endMinute)},
	})

	return entries, nil
}

// HourRanges converts a [start, end) hour window into cron hour ranges,
// splitting windows that wrap past midnight.
func HourRanges(startHour, endHour int) []string {
	if startHour < endHour {
		return []string{fmt.Sprintf("%d-%d", startHour, endHour-1)}
	}

	ranges := []string{fmt.Sprintf("%d-23", startHour)}
	if endHour > 0 {
		ranges = append(ranges, fmt.Sprintf("0-%d", endHour-1))
	}

	return ranges
}

// periodFields spreads a period over the second and minute fields. Periods
// longer than a minute are truncated to whole minutes, longer than an hour
// to whole hours.
func periodFields(period int) (second, minute, hourStep string) {
	switch {
	case period < 60:
		return "*/" + strconv.Itoa(period), models.Wildcard, ""
	case period < 3600:
		if period/60 == 1 {
			return "0", models.Wildcard, ""
		}
		return "0", "*/" + strconv.Itoa(period/60), ""
	default:
		if period/3600 == 1 {
			return "0", "0", ""
		}
		return "0", "0", "/" + strconv.Itoa(period/3600)
	}
}

// cronLike copies the set fields verbatim except day_of_week, which is
// written Monday-first in configs and rewritten to the scheduler's
// Sunday-first numbering.
func cronLike(cameraID, base string, t *models.CronTrigger) (models.ScheduleEntry, error) {
	fields := wildcard()

	if t != nil {
		set(&fields.Second, t.Second)
		set(&fields.Minute, t.Minute)
		set(&fields.Hour, t.Hour)
		set(&fields.Day, t.Day)
		set(&fields.Month, t.Month)

		if t.DayOfWeek != nil {
			dow, err := Weekdays(*t.DayOfWeek)
			if err != nil {
				return models.ScheduleEntry{}, err
			}
			fields.DayOfWeek = dow
		}
	}

	return models.ScheduleEntry{
		ID:       base,
		CameraID: cameraID,
		Kind:     models.JobCapture,
		Rule:     models.Rule{Cron: fields},
	}, nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func wildcard() *models.CronFields {
	return &models.CronFields{
		Second:    models.Wildcard,
		Minute:    models.Wildcard,
		Hour:      models.Wildcard,
		Day:       models.Wildcard,
		Month:     models.Wildcard,
		DayOfWeek: models.Wildcard,
	}
}

// at fires once a day at hour:minute:00.
func at(hour, minute int) *models.CronFields {
	fields := wildcard()
	fields.Second = "0"
	fields.Minute = strconv.Itoa(minute)
	fields.Hour = strconv.Itoa(hour)

	return fields
}

func clock(hhmm string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", errs.ErrInvalidTimeWindow, hhmm)
	}

	return t.Hour(), t.Minute(), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
