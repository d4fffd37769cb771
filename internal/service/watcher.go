// Package service drives the capture, classify and alert loop.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"firewatch/internal/config"
	"firewatch/internal/dto"
	"firewatch/internal/logger"
	"firewatch/internal/model"
	"firewatch/internal/service/fire"
	"firewatch/internal/service/metrics"
	"firewatch/internal/service/notify"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron/v2"
)

// ImageSource yields the current camera frame.
type ImageSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// ArtifactStore keeps an image and returns a URL for it.
type ArtifactStore interface {
	Put(ctx context.Context, data []byte, name string) (string, error)
}

// EventLog appends alert events.
type EventLog interface {
	Record(ctx context.Context, event *model.Event) error
}

// Broadcaster pushes a message to live viewers.
type Broadcaster interface {
	Broadcast(message []byte)
}

// artifactName gives file names like fire_detection_20250615_143005_123456.jpg.
func artifactName(at time.Time) string {
	return fmt.Sprintf("fire_detection_%s_%06d.jpg", at.Format("20060102_150405"), at.Nanosecond()/1000)
}

// Watcher polls one camera and raises a DANGER event for every positive verdict.
type Watcher struct {
	camera      string
	interval    time.Duration
	source      ImageSource
	estimator   *fire.Estimator
	store       ArtifactStore
	events      EventLog
	notifier    notify.Notifier
	broadcaster Broadcaster
	clock       clock.Clock
	logger      *logger.Logger

	mu     sync.Mutex
	status dto.StatusData
}

// NewWatcher wires the collaborators. store and broadcaster may be nil; a nil notifier is a Nop.
func NewWatcher(cfg *config.Config, source ImageSource, estimator *fire.Estimator, store ArtifactStore,
	events EventLog, notifier notify.Notifier, broadcaster Broadcaster, logger *logger.Logger) *Watcher {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	w := &Watcher{
		camera:      cfg.CameraName,
		interval:    cfg.Interval,
		source:      source,
		estimator:   estimator,
		store:       store,
		events:      events,
		notifier:    notifier,
		broadcaster: broadcaster,
		clock:       clock.New(),
		logger:      logger,
	}
	w.status = dto.StatusData{
		Mode:     estimator.Mode().String(),
		Camera:   cfg.CameraName,
		Interval: cfg.Interval.String(),
	}
	return w
}

// SetClock replaces the wall clock.
func (w *Watcher) SetClock(c clock.Clock) {
	w.clock = c
}

// ProcessFrame captures one frame and acts on the verdict. It reports whether
// fire was detected. Only a capture failure is returned as an error; failures of
// the alert steps are logged and counted so that one bad step never hides an alert.
func (w *Watcher) ProcessFrame(ctx context.Context) (bool, error) {
	start := w.clock.Now()

	data, err := w.source.Capture(ctx)
	if err != nil {
		w.logger.Error("Capture from %s failed: %v", w.camera, err)
		metrics.ObserveFrame(w.camera, metrics.OutcomeCaptureError, w.clock.Since(start).Seconds())
		w.recordFrame(start, fire.Result{}, err)
		return false, fmt.Errorf("capture failed: %w", err)
	}

	result := w.estimator.Estimate(ctx, fire.Frame{Label: w.camera, Data: data})
	w.recordFrame(start, result, nil)

	if !result.Fire {
		w.logger.Debug("No fire on %s (confidence %.2f)", w.camera, result.Confidence)
		metrics.ObserveFrame(w.camera, metrics.OutcomeClear, w.clock.Since(start).Seconds())
		return false, nil
	}

	w.logger.Warning("🔥 Fire detected on %s: confidence %.2f (%s)", w.camera, result.Confidence, result.Source)
	metrics.ObserveVerdict(string(result.Source), result.Confidence)

	w.alert(ctx, start, data, result)

	metrics.ObserveFrame(w.camera, metrics.OutcomeFire, w.clock.Since(start).Seconds())
	return true, nil
}

func (w *Watcher) alert(ctx context.Context, at time.Time, data []byte, result fire.Result) {
	var imageURL string
	if w.store != nil {
		name := artifactName(at)
		url, err := w.store.Put(ctx, data, name)
		if err != nil {
			w.logger.Error("Failed to upload %s: %v", name, err)
			metrics.ObserveFailure(metrics.StepUpload)
		} else {
			imageURL = url
		}
	}

	event := model.NewDangerEvent(w.camera, result.Confidence, string(result.Source), imageURL, at)

	if err := w.events.Record(ctx, event); err != nil {
		w.logger.Error("Failed to record event %s: %v", event.ID, err)
		metrics.ObserveFailure(metrics.StepRecord)
	} else {
		w.logger.Info("Recorded DANGER event %s", event.ID)
	}

	if err := w.notifier.Notify(ctx, event); err != nil {
		w.logger.Error("Failed to send alert for event %s: %v", event.ID, err)
		metrics.ObserveFailure(metrics.StepNotify)
	}

	w.mu.Lock()
	w.status.Alerts++
	w.mu.Unlock()

	if w.broadcaster != nil {
		message, err := json.Marshal(dto.EventInfo{Event: *event})
		if err != nil {
			w.logger.Error("Failed to encode event %s: %v", event.ID, err)
			return
		}
		w.broadcaster.Broadcast(message)
	}
}

func (w *Watcher) recordFrame(at time.Time, result fire.Result, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.Frames++
	w.status.LastFrameAt = &at
	w.status.LastFire = result.Fire
	w.status.LastConfidence = result.Confidence
	w.status.LastSource = string(result.Source)
	w.status.LastError = ""
	if err != nil {
		w.status.LastError = err.Error()
	}
}

// Status returns a snapshot of the watcher state.
func (w *Watcher) Status() dto.StatusData {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := w.status
	if status.LastFrameAt != nil {
		t := *status.LastFrameAt
		status.LastFrameAt = &t
	}
	return status
}

// Run processes a frame every interval until ctx is cancelled. A frame that
// overruns the interval delays the next one instead of overlapping it.
func (w *Watcher) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("invalid detection interval %s", w.interval)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(w.logger.Slog()))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			// errors are already logged and counted
			_, _ = w.ProcessFrame(ctx)
		}),
		gocron.WithName("watch-"+w.camera),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		scheduler.Shutdown()
		return fmt.Errorf("failed to schedule detection: %w", err)
	}

	w.logger.Info("Watching %s every %s (%s mode)", w.camera, w.interval, w.estimator.Mode())
	scheduler.Start()

	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	w.logger.Info("Watcher for %s stopped", w.camera)
	return nil
}
