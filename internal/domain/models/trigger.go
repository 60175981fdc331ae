package models

type TriggerKind string

const (
	TriggerInterval TriggerKind = "interval"
	TriggerCron     TriggerKind = "cron"
)

// Trigger is a tagged union: exactly one of Interval or Cron is set, matching Kind.
type Trigger struct {
	Kind     TriggerKind      `json:"type" validate:"oneof=interval cron"`
	Interval *IntervalTrigger `json:"interval,omitempty" validate:"required_if=Kind interval"`
	Cron     *CronTrigger     `json:"cron,omitempty" validate:"required_if=Kind cron"`
}

type IntervalTrigger struct {
	Seconds   int    `json:"seconds" mapstructure:"seconds" validate:"gt=0"`
	StartTime string `json:"start_time,omitempty" mapstructure:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   string `json:"end_time,omitempty" mapstructure:"end_time" validate:"omitempty,datetime=15:04"`
}

func (t IntervalTrigger) Windowed() bool {
	return t.StartTime != "" && t.EndTime != ""
}

// CronTrigger fields are passed to the scheduler verbatim; nil means every value.
type CronTrigger struct {
	Second    *string `json:"second,omitempty" mapstructure:"second"`
	Minute    *string `json:"minute,omitempty" mapstructure:"minute"`
	Hour      *string `json:"hour,omitempty" mapstructure:"hour"`
	Day       *string `json:"day,omitempty" mapstructure:"day"`
	Month     *string `json:"month,omitempty" mapstructure:"month"`
	DayOfWeek *string `json:"day_of_week,omitempty" mapstructure:"day_of_week"`
}
