package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EventTypeDanger marks an event raised by a positive fire verdict or critical sensor readings.
	EventTypeDanger = "DANGER"
	// EventTypeWarning marks elevated sensor readings.
	EventTypeWarning = "WARNING"
	// ReasonAIFire is the reason recorded for estimator-raised events.
	ReasonAIFire = "AI fire detection"
	// SourceSensor is the source of events raised from gateway readings.
	SourceSensor = "sensor"
)

// Event represents an alert record.
type Event struct {
	ID             string     `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	EventType      string     `json:"event_type"`
	Reason         string     `json:"reason"`
	Camera         string     `json:"camera"`
	AIFireDetected bool       `json:"ai_fire_detected"`
	AIConfidence   float64    `json:"ai_confidence"`
	Source         string     `json:"source"`
	ImageURL       string     `json:"image_url,omitempty"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// NewDangerEvent creates an unacknowledged DANGER event for a fire verdict.
func NewDangerEvent(camera string, confidence float64, source, imageURL string, at time.Time) *Event {
	return &Event{
		ID:             uuid.NewString(),
		Timestamp:      at,
		EventType:      EventTypeDanger,
		Reason:         ReasonAIFire,
		Camera:         camera,
		AIFireDetected: true,
		AIConfidence:   confidence,
		Source:         source,
		ImageURL:       imageURL,
	}
}

// NewSensorEvent creates an unacknowledged event for a sensor node. eventType is
// EventTypeWarning or EventTypeDanger.
func NewSensorEvent(node, eventType, reason string, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: at,
		EventType: eventType,
		Reason:    reason,
		Camera:    node,
		Source:    SourceSensor,
	}
}
