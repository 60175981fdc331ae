package models

type StorageKind string

const (
	StorageSingleImage  StorageKind = "single_image"
	StorageVideoSnippet StorageKind = "video_snippet"
	StorageLive         StorageKind = "live"
)

type Storage struct {
	Kind         StorageKind          `json:"type" validate:"oneof=single_image video_snippet live"`
	SingleImage  *SingleImageStorage  `json:"single_image,omitempty" validate:"required_if=Kind single_image"`
	VideoSnippet *VideoSnippetStorage `json:"video_snippet,omitempty" validate:"required_if=Kind video_snippet"`
	Live         *LiveStorage         `json:"live,omitempty" validate:"required_if=Kind live"`
}

type SingleImageStorage struct {
	Root string `json:"root" mapstructure:"root" validate:"required"`
}

type VideoSnippetStorage struct {
	Root      string `json:"root" mapstructure:"root" validate:"required"`
	BatchSize int    `json:"batch_size" mapstructure:"batch_size" validate:"gte=1"`
	FPS       int    `json:"fps" mapstructure:"fps" validate:"gte=1"`
	CRF       int    `json:"crf" mapstructure:"crf" validate:"gte=0,lte=51"`
	Preset    string `json:"preset" mapstructure:"preset" validate:"required"`
	Container string `json:"container" mapstructure:"container" validate:"required,alphanum"`
}

// LiveStorage fans processed frames out to websocket viewers.
type LiveStorage struct {
	Buffer int `json:"buffer" mapstructure:"buffer" validate:"gte=1"`
}
