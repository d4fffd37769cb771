package dto

import "time"

// StatusData reports the watcher state.
type StatusData struct {
	Mode           string     `json:"mode"`
	Camera         string     `json:"camera"`
	Interval       string     `json:"interval"`
	Frames         int64      `json:"frames"`
	Alerts         int64      `json:"alerts"`
	LastFrameAt    *time.Time `json:"lastFrameAt,omitempty"`
	LastFire       bool       `json:"lastFire"`
	LastConfidence float64    `json:"lastConfidence"`
	LastSource     string     `json:"lastSource,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	Viewers        int        `json:"viewers"`
}
