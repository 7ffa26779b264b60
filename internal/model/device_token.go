package model

import (
	"errors"
	"time"
)

// DeviceToken is a push-notification registration for one device.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	Platform  string    `db:"platform" json:"platform"` // "ios", "android", "web"
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterDeviceRequest is the request body for POST /devices.
type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// ErrDeviceTokenRequired is returned when a device registration has an empty token
var ErrDeviceTokenRequired = errors.New("device token is required")
