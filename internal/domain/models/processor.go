package models

type PostProcessorKind string

const (
	ProcessorIdentity      PostProcessorKind = "identity"
	ProcessorRotate        PostProcessorKind = "rotate"
	ProcessorDateTimeStamp PostProcessorKind = "datetime_stamp"
)

type PostProcessor struct {
	Kind          PostProcessorKind `json:"type" validate:"oneof=identity rotate datetime_stamp"`
	Rotate        *Rotate           `json:"rotate,omitempty" validate:"required_if=Kind rotate"`
	DateTimeStamp *DateTimeStamp    `json:"datetime_stamp,omitempty" validate:"required_if=Kind datetime_stamp"`
}

type Rotate struct {
	Degrees float64 `json:"degrees" mapstructure:"degrees"`
	Expand  bool    `json:"expand" mapstructure:"expand"`
}

type DateTimeStamp struct {
	// Format is a Go time layout.
	Format   string `json:"fmt" mapstructure:"fmt" validate:"required"`
	Position []int  `json:"position" mapstructure:"position" validate:"len=2"`
	Color    string `json:"color" mapstructure:"color" validate:"hexcolor|len=6"`
	FontSize int    `json:"font_size" mapstructure:"font_size" validate:"gt=0"`
	FontPath string `json:"font_path,omitempty" mapstructure:"font_path"`
}
