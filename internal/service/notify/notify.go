// Package notify delivers fire alerts to people.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"firewatch/internal/model"

	"go.uber.org/multierr"
)

// Notifier delivers an alert for an event.
type Notifier interface {
	Notify(ctx context.Context, event *model.Event) error
}

// Nop discards alerts. Used when no channel is configured.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(ctx context.Context, event *model.Event) error { return nil }

// Multi fans an alert out to several notifiers and joins their errors.
type Multi []Notifier

// Notify calls every notifier, even after a failure.
func (m Multi) Notify(ctx context.Context, event *model.Event) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Notify(ctx, event))
	}
	return err
}

// FormatAlert renders the alert text for an event in loc.
func FormatAlert(event *model.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 FIRE ALERT: %s 🚨\n\n", event.EventType)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "📅 Time: %s\n", event.Timestamp.In(loc).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "🏠 Camera: %s\n", event.Camera)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━")

	if event.AIFireDetected {
		b.WriteString("\n\n🤖 AI FIRE DETECTION:\n")
		b.WriteString("• Status: FIRE DETECTED\n")
		fmt.Fprintf(&b, "• Confidence: %.1f%%", event.AIConfidence*100)
		if event.Source != "" {
			fmt.Fprintf(&b, " (%s)", event.Source)
		}
		if event.ImageURL != "" {
			fmt.Fprintf(&b, "\n• Image: %s", event.ImageURL)
		}
	}

	if event.Source == model.SourceSensor && event.Reason != "" {
		fmt.Fprintf(&b, "\n\n📡 SENSORS:\n• %s", event.Reason)
	}

	if event.EventType == model.EventTypeDanger {
		b.WriteString("\n\n🚨 IMMEDIATE ACTION REQUIRED!\n")
		b.WriteString("• Evacuate the area\n")
		b.WriteString("• Call emergency services\n")
		b.WriteString("• Check fire extinguisher")
	}

	return b.String()
}
