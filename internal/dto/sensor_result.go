package dto

// SensorResult is returned for an ingested gateway reading.
type SensorResult struct {
	NodeID        string  `json:"node_id"`
	Risk          string  `json:"risk_level"`
	Temperature   float64 `json:"temp"`
	Smoke         float64 `json:"smoke"`
	Flame         bool    `json:"flame"`
	Light         float64 `json:"light"`
	EventID       string  `json:"event_id,omitempty"`
	CameraChecked bool    `json:"camera_checked"`
	FireConfirmed bool    `json:"fire_confirmed"`
	CheckError    string  `json:"check_error,omitempty"`
}
