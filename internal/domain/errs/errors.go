package errs

import "errors"

var (
	ErrTransport  = errors.New("camera fetch failed")
	ErrProcessing = errors.New("post-processing failed")
	ErrStorage    = errors.New("failed to store frame")
	ErrEncode     = errors.New("video encoding failed")
	ErrNotify     = errors.New("monitoring notification failed")

	ErrUnknownTrigger     = errors.New("unknown trigger type")
	ErrUnknownStorage     = errors.New("unknown storage type")
	ErrUnknownProcessor   = errors.New("unknown postprocessor type")
	ErrInvalidTimeWindow  = errors.New("invalid time window")
	ErrInvalidCronField   = errors.New("invalid cron field")
	ErrSchedulerStopped   = errors.New("scheduler is stopped")
	ErrJobNotFound        = errors.New("job not found")
	ErrCameraNotFound     = errors.New("camera not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCatalogDisabled    = errors.New("media catalog is disabled")
)
