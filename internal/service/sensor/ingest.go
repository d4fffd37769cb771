package sensor

import (
	"context"
	"encoding/json"

	"firewatch/internal/dto"
	"firewatch/internal/logger"
	"firewatch/internal/model"
	"firewatch/internal/service"
	"firewatch/internal/service/metrics"
	"firewatch/internal/service/notify"

	"github.com/benbjohnson/clock"
)

// FrameChecker runs one camera check, like service.Watcher.ProcessFrame.
type FrameChecker interface {
	ProcessFrame(ctx context.Context) (bool, error)
}

// Outcome is the result of ingesting one reading.
type Outcome struct {
	Log Log
	// Event is nil for NORMAL readings.
	Event         *model.Event
	CameraChecked bool
	FireConfirmed bool
	CheckError    string
}

// Ingestor records WARNING and DANGER readings, alerts on DANGER and asks the
// camera to confirm a WARNING.
type Ingestor struct {
	thresholds  Thresholds
	defaultNode string
	events      service.EventLog
	notifier    notify.Notifier
	checker     FrameChecker
	broadcaster service.Broadcaster
	clock       clock.Clock
	logger      *logger.Logger
}

// NewIngestor wires the collaborators. checker and broadcaster may be nil; a nil notifier is a Nop.
func NewIngestor(thresholds Thresholds, defaultNode string, events service.EventLog, notifier notify.Notifier,
	checker FrameChecker, broadcaster service.Broadcaster, logger *logger.Logger) *Ingestor {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Ingestor{
		thresholds:  thresholds,
		defaultNode: defaultNode,
		events:      events,
		notifier:    notifier,
		checker:     checker,
		broadcaster: broadcaster,
		clock:       clock.New(),
		logger:      logger,
	}
}

// SetClock replaces the wall clock.
func (i *Ingestor) SetClock(c clock.Clock) {
	i.clock = c
}

// Ingest classifies a reading and acts on its risk level. Failures of the
// side effects are logged and counted, never returned.
func (i *Ingestor) Ingest(ctx context.Context, r Reading) Outcome {
	log := Normalize(r, i.defaultNode, i.thresholds, i.clock.Now())
	metrics.ObserveSensorReading(log.NodeID, string(log.Risk))

	out := Outcome{Log: log}
	if log.Risk == RiskNormal {
		i.logger.Debug("Sensor %s normal: %s", log.NodeID, Describe(log))
		return out
	}

	event := model.NewSensorEvent(log.NodeID, string(log.Risk), Describe(log), log.Timestamp)
	out.Event = event
	i.logger.Warning("⚠️ Sensor %s %s: %s", log.NodeID, log.Risk, event.Reason)

	if err := i.events.Record(ctx, event); err != nil {
		i.logger.Error("Failed to record sensor event %s: %v", event.ID, err)
		metrics.ObserveFailure(metrics.StepRecord)
	}

	if log.Risk == RiskDanger {
		if err := i.notifier.Notify(ctx, event); err != nil {
			i.logger.Error("Failed to send alert for sensor event %s: %v", event.ID, err)
			metrics.ObserveFailure(metrics.StepNotify)
		}
	}

	i.broadcast(event)

	if log.Risk == RiskWarning && i.checker != nil {
		out.CameraChecked = true
		detected, err := i.checker.ProcessFrame(ctx)
		if err != nil {
			out.CheckError = err.Error()
			i.logger.Error("Camera check for sensor %s failed: %v", log.NodeID, err)
		}
		out.FireConfirmed = detected
		if detected {
			i.logger.Warning("🔥 Camera confirmed fire after %s warning", log.NodeID)
		}
	}

	return out
}

func (i *Ingestor) broadcast(event *model.Event) {
	if i.broadcaster == nil {
		return
	}
	message, err := json.Marshal(dto.EventInfo{Event: *event})
	if err != nil {
		i.logger.Error("Failed to encode event %s: %v", event.ID, err)
		return
	}
	i.broadcaster.Broadcast(message)
}
