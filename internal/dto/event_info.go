package dto

import (
	"encoding/json"

	"firewatch/internal/model"
)

// EventInfo is the wire form of an event shown on the dashboard and pushed to viewers.
type EventInfo struct {
	model.Event
}

// MarshalJSON emits the timestamp in milliseconds plus display date and time-of-day.
func (e EventInfo) MarshalJSON() ([]byte, error) {
	type Alias model.Event
	var acknowledgedAt *int64
	if e.AcknowledgedAt != nil {
		ms := e.AcknowledgedAt.UnixMilli()
		acknowledgedAt = &ms
	}

	return json.Marshal(&struct {
		Alias
		Timestamp      int64  `json:"timestamp"`
		Date           string `json:"date"`
		TimeOfDay      string `json:"timeOfDay"`
		AcknowledgedAt *int64 `json:"acknowledged_at,omitempty"`
	}{
		Alias:          (Alias)(e.Event),
		Timestamp:      e.Timestamp.UnixMilli(),
		Date:           e.Timestamp.Format("02-01-2006"),
		TimeOfDay:      e.Timestamp.Format("15:04:05"),
		AcknowledgedAt: acknowledgedAt,
	})
}

// NewEventInfos wraps a list of events.
func NewEventInfos(events []model.Event) []EventInfo {
	infos := make([]EventInfo, 0, len(events))
	for _, e := range events {
		infos = append(infos, EventInfo{Event: e})
	}
	return infos
}
