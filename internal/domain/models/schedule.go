package models

import (
	"strings"
	"time"
)

type JobKind string

const (
	JobCapture       JobKind = "capture"
	JobBoundaryFlush JobKind = "boundary-flush"
	JobDailyFlush    JobKind = "daily-flush"
	JobHeartbeat     JobKind = "heartbeat"
)

const Wildcard = "*"

// CronFields holds a six-field cron rule, seconds first.
type CronFields struct {
	Second    string `json:"second"`
	Minute    string `json:"minute"`
	Hour      string `json:"hour"`
	Day       string `json:"day"`
	Month     string `json:"month"`
	DayOfWeek string `json:"day_of_week"`
}

func (f CronFields) String() string {
	return strings.Join([]string{f.Second, f.Minute, f.Hour, f.Day, f.Month, f.DayOfWeek}, " ")
}

// Rule is either a fixed period (Every > 0) or a cron rule.
type Rule struct {
	Every time.Duration `json:"every,omitempty"`
	Cron  *CronFields   `json:"cron,omitempty"`
}

type ScheduleEntry struct {
	ID       string  `json:"job_id"`
	CameraID string  `json:"camera_id"`
	Kind     JobKind `json:"kind"`
	Rule     Rule    `json:"rule"`
}
