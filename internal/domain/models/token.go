package models

import "time"

type AuthToken struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
