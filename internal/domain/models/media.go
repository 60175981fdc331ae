package models

import "time"

const (
	MediaImage = "image"
	MediaVideo = "video"
)

type Media struct {
	MediaID   string    `json:"media_id" db:"media_id"`
	CameraID  string    `json:"camera_id" db:"camera_id"`
	Kind      string    `json:"kind" db:"kind"`
	FilePath  string    `json:"file_path" db:"file_path"`
	Frames    int       `json:"frames" db:"frames"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
