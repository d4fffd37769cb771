package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/model"
	"firewatch/internal/service/fire"

	"github.com/benbjohnson/clock"
)

// ========================================
// Fakes
// ========================================

type fakeSource struct {
	data []byte
	err  error
}

func (s *fakeSource) Capture(ctx context.Context) ([]byte, error) {
	return s.data, s.err
}

type fakeStore struct {
	names []string
	err   error
}

func (s *fakeStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.names = append(s.names, name)
	return "https://storage.googleapis.com/bucket/" + name, nil
}

type fakeEventLog struct {
	mu     sync.Mutex
	events []*model.Event
	err    error
}

func (l *fakeEventLog) Record(ctx context.Context, event *model.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, event)
	return nil
}

type fakeNotifier struct {
	events []*model.Event
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, event *model.Event) error {
	n.events = append(n.events, event)
	return n.err
}

type fakeBroadcaster struct {
	messages [][]byte
}

func (b *fakeBroadcaster) Broadcast(message []byte) {
	b.messages = append(b.messages, message)
}

// ========================================
// Test Setup Helpers
// ========================================

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
	return buf.Bytes()
}

type watcherFixture struct {
	watcher     *Watcher
	source      *fakeSource
	store       *fakeStore
	events      *fakeEventLog
	notifier    *fakeNotifier
	broadcaster *fakeBroadcaster
	clock       *clock.Mock
}

func setupWatcher(t *testing.T, frame []byte) *watcherFixture {
	t.Helper()

	log := logger.NewConsoleLogger(io.Discard, "debug")
	cfg := &config.Config{CameraName: "kitchen", Interval: 2 * time.Second}
	estimator := fire.NewEstimator(fire.Options{Heuristic: fire.DefaultHeuristicParams()}, nil, log)

	f := &watcherFixture{
		source:      &fakeSource{data: frame},
		store:       &fakeStore{},
		events:      &fakeEventLog{},
		notifier:    &fakeNotifier{},
		broadcaster: &fakeBroadcaster{},
		clock:       clock.NewMock(),
	}
	f.clock.Set(time.Date(2025, 6, 15, 14, 30, 5, 123456000, time.UTC))

	f.watcher = NewWatcher(cfg, f.source, estimator, f.store, f.events, f.notifier, f.broadcaster, log)
	f.watcher.SetClock(f.clock)
	return f
}

// ========================================
// ProcessFrame Tests
// ========================================

func TestProcessFrame_Fire(t *testing.T) {
	f := setupWatcher(t, solidPNG(t, color.RGBA{255, 255, 255, 255}))

	detected, err := f.watcher.ProcessFrame(context.Background())
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if !detected {
		t.Fatal("Expected fire to be detected")
	}

	if len(f.store.names) != 1 || f.store.names[0] != "fire_detection_20250615_143005_123456.jpg" {
		t.Errorf("Unexpected artifact names: %v", f.store.names)
	}

	if len(f.events.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(f.events.events))
	}
	event := f.events.events[0]
	if event.EventType != model.EventTypeDanger || event.Reason != model.ReasonAIFire {
		t.Errorf("Expected DANGER / %q, got %s / %q", model.ReasonAIFire, event.EventType, event.Reason)
	}
	if event.Camera != "kitchen" {
		t.Errorf("Expected camera kitchen, got %s", event.Camera)
	}
	if event.AIConfidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %v", event.AIConfidence)
	}
	if event.Source != string(fire.SourceHeuristic) {
		t.Errorf("Expected source %s, got %s", fire.SourceHeuristic, event.Source)
	}
	if event.ImageURL != "https://storage.googleapis.com/bucket/fire_detection_20250615_143005_123456.jpg" {
		t.Errorf("Unexpected image URL %s", event.ImageURL)
	}

	if len(f.notifier.events) != 1 || f.notifier.events[0] != event {
		t.Error("Expected the recorded event to be notified")
	}

	if len(f.broadcaster.messages) != 1 {
		t.Fatalf("Expected 1 broadcast, got %d", len(f.broadcaster.messages))
	}
	var pushed map[string]interface{}
	if err := json.Unmarshal(f.broadcaster.messages[0], &pushed); err != nil {
		t.Fatalf("Broadcast is not JSON: %v", err)
	}
	if pushed["id"] != event.ID {
		t.Errorf("Expected broadcast of event %s, got %v", event.ID, pushed["id"])
	}

	status := f.watcher.Status()
	if status.Frames != 1 || status.Alerts != 1 || !status.LastFire {
		t.Errorf("Unexpected status: %+v", status)
	}
	if status.Mode != "heuristic" {
		t.Errorf("Expected heuristic mode, got %s", status.Mode)
	}
}

func TestProcessFrame_NoFire(t *testing.T) {
	f := setupWatcher(t, solidPNG(t, color.RGBA{0, 0, 0, 255}))

	detected, err := f.watcher.ProcessFrame(context.Background())
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if detected {
		t.Error("Expected no fire")
	}
	if len(f.store.names) != 0 || len(f.events.events) != 0 || len(f.notifier.events) != 0 {
		t.Error("Expected no side effects for a clear frame")
	}
	if len(f.broadcaster.messages) != 0 {
		t.Error("Expected no broadcast for a clear frame")
	}

	status := f.watcher.Status()
	if status.Frames != 1 || status.Alerts != 0 || status.LastFire {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestProcessFrame_CaptureError(t *testing.T) {
	f := setupWatcher(t, nil)
	f.source.err = errors.New("connection refused")

	detected, err := f.watcher.ProcessFrame(context.Background())
	if err == nil {
		t.Fatal("Expected capture error")
	}
	if detected {
		t.Error("Expected no fire on capture error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Expected wrapped capture error, got %v", err)
	}

	status := f.watcher.Status()
	if status.LastError == "" {
		t.Error("Expected status to carry the capture error")
	}
}

func TestProcessFrame_UndecodableFrameIsClear(t *testing.T) {
	f := setupWatcher(t, []byte("not an image"))

	detected, err := f.watcher.ProcessFrame(context.Background())
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if detected {
		t.Error("Expected undecodable frame to be treated as no fire")
	}
}

func TestProcessFrame_UploadFailureStillRecords(t *testing.T) {
	f := setupWatcher(t, solidPNG(t, color.RGBA{255, 255, 255, 255}))
	f.store.err = errors.New("bucket unavailable")

	detected, err := f.watcher.ProcessFrame(context.Background())
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if !detected {
		t.Fatal("Expected fire to be detected")
	}

	if len(f.events.events) != 1 {
		t.Fatalf("Expected event despite upload failure, got %d", len(f.events.events))
	}
	if f.events.events[0].ImageURL != "" {
		t.Errorf("Expected empty image URL, got %s", f.events.events[0].ImageURL)
	}
	if len(f.notifier.events) != 1 {
		t.Error("Expected alert despite upload failure")
	}
}

func TestProcessFrame_RecordAndNotifyFailuresAreNotFatal(t *testing.T) {
	f := setupWatcher(t, solidPNG(t, color.RGBA{255, 255, 255, 255}))
	f.events.err = errors.New("database is locked")
	f.notifier.err = errors.New("telegram unavailable")

	detected, err := f.watcher.ProcessFrame(context.Background())
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if !detected {
		t.Error("Expected fire to be detected")
	}
	if len(f.notifier.events) != 1 {
		t.Error("Expected notify to run after a record failure")
	}
	if len(f.broadcaster.messages) != 1 {
		t.Error("Expected broadcast after notify failure")
	}
}

func TestProcessFrame_NilStoreAndBroadcaster(t *testing.T) {
	log := logger.NewConsoleLogger(io.Discard, "info")
	cfg := &config.Config{CameraName: "garage", Interval: time.Second}
	estimator := fire.NewEstimator(fire.Options{Heuristic: fire.DefaultHeuristicParams()}, nil, log)
	events := &fakeEventLog{}

	watcher := NewWatcher(cfg, &fakeSource{data: solidPNG(t, color.RGBA{255, 255, 255, 255})},
		estimator, nil, events, nil, nil, log)

	detected, err := watcher.ProcessFrame(context.Background())
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if !detected || len(events.events) != 1 {
		t.Errorf("Expected one recorded event, got detected=%v events=%d", detected, len(events.events))
	}
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		at       time.Time
		expected string
	}{
		{time.Date(2025, 6, 15, 14, 30, 5, 123456789, time.UTC), "fire_detection_20250615_143005_123456.jpg"},
		{time.Date(2025, 6, 15, 14, 30, 5, 7000, time.UTC), "fire_detection_20250615_143005_000007.jpg"},
		{time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), "fire_detection_20250102_030405_000000.jpg"},
	}

	for _, tt := range tests {
		if got := artifactName(tt.at); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestProcessFrame_SameSecondAlertsGetDistinctArtifacts(t *testing.T) {
	f := setupWatcher(t, solidPNG(t, color.RGBA{255, 255, 255, 255}))

	if _, err := f.watcher.ProcessFrame(context.Background()); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	f.clock.Add(250 * time.Millisecond)
	if _, err := f.watcher.ProcessFrame(context.Background()); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	if len(f.store.names) != 2 {
		t.Fatalf("Expected 2 artifacts, got %v", f.store.names)
	}
	if f.store.names[0] == f.store.names[1] {
		t.Errorf("Expected distinct artifact names, got %v", f.store.names)
	}
	if f.store.names[1] != "fire_detection_20250615_143005_373456.jpg" {
		t.Errorf("Unexpected second artifact name %s", f.store.names[1])
	}
}

// ========================================
// Run Tests
// ========================================

func TestRun_ProcessesUntilCancelled(t *testing.T) {
	log := logger.NewConsoleLogger(io.Discard, "info")
	cfg := &config.Config{CameraName: "hall", Interval: 20 * time.Millisecond}
	estimator := fire.NewEstimator(fire.Options{Heuristic: fire.DefaultHeuristicParams()}, nil, log)

	watcher := NewWatcher(cfg, &fakeSource{data: solidPNG(t, color.RGBA{0, 0, 0, 255})},
		estimator, nil, &fakeEventLog{}, nil, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for watcher.Status().Frames < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if frames := watcher.Status().Frames; frames < 2 {
		t.Errorf("Expected at least 2 frames, got %d", frames)
	}
}

func TestRun_RejectsInvalidInterval(t *testing.T) {
	log := logger.NewConsoleLogger(io.Discard, "info")
	estimator := fire.NewEstimator(fire.Options{}, nil, log)
	watcher := NewWatcher(&config.Config{CameraName: "x"}, &fakeSource{}, estimator, nil, &fakeEventLog{}, nil, nil, log)

	if err := watcher.Run(context.Background()); err == nil {
		t.Error("Expected error for zero interval")
	}
}
