package models

type Camera struct {
	ID             string          `json:"camera_id" validate:"required"`
	URL            string          `json:"url" validate:"required,url"`
	Kuma           *Kuma           `json:"kuma,omitempty"`
	Storage        []Storage       `json:"storage" validate:"required,min=1,dive"`
	PostProcessors []PostProcessor `json:"postprocessors" validate:"dive"`
	Triggers       []Trigger       `json:"triggers" validate:"required,min=1,dive"`
}

// Kuma describes an Uptime Kuma push monitor.
type Kuma struct {
	PushURL          string `json:"push_url" mapstructure:"push_url" validate:"required,url"`
	HeartbeatURL     string `json:"heartbeat_url,omitempty" mapstructure:"heartbeat_url" validate:"omitempty,url"`
	FailureThreshold int    `json:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=1"`
}
