package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"firewatch/internal/config"
	"firewatch/internal/dto"
	"firewatch/internal/logger"
	"firewatch/internal/model"
	"firewatch/internal/repository"
	"firewatch/internal/repository/sqlite"
	"firewatch/internal/service"
	"firewatch/internal/service/fire"
	"firewatch/internal/service/sensor"
	"firewatch/internal/service/storage"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestRepo(t *testing.T) (*sqlite.EventRepository, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "handler_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return sqlite.NewEventRepository(db), cleanup
}

func testLogger() *logger.Logger {
	return logger.NewConsoleLogger(io.Discard, "info")
}

func insertEvents(t *testing.T, repo *sqlite.EventRepository, camera string, n int) []*model.Event {
	t.Helper()

	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	events := make([]*model.Event, 0, n)
	for i := 0; i < n; i++ {
		e := model.NewDangerEvent(camera, 0.8, "heuristic-color", "", base.Add(time.Duration(i)*time.Minute))
		if err := repo.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		events = append(events, e)
	}
	return events
}

// ========================================
// Events Handler Tests
// ========================================

func TestGetEventsHandler_Pagination(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	insertEvents(t, repo, "kitchen", 5)
	insertEvents(t, repo, "garage", 2)

	req := httptest.NewRequest(http.MethodGet, "/api/events?page=2&limit=2&camera=kitchen", nil)
	rec := httptest.NewRecorder()

	GetEventsHandler(repo, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var data struct {
		Events []struct {
			ID        string `json:"id"`
			Camera    string `json:"camera"`
			Timestamp int64  `json:"timestamp"`
			Date      string `json:"date"`
		} `json:"events"`
		Length      int `json:"length"`
		TotalPages  int `json:"totalPages"`
		CurrentPage int `json:"currentPage"`
		PageSize    int `json:"pageSize"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if data.Length != 5 {
		t.Errorf("Expected length 5, got %d", data.Length)
	}
	if data.TotalPages != 3 {
		t.Errorf("Expected 3 pages, got %d", data.TotalPages)
	}
	if data.CurrentPage != 2 || data.PageSize != 2 {
		t.Errorf("Expected page 2 of size 2, got page %d size %d", data.CurrentPage, data.PageSize)
	}
	if len(data.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(data.Events))
	}
	for _, e := range data.Events {
		if e.Camera != "kitchen" {
			t.Errorf("Expected kitchen events only, got %s", e.Camera)
		}
		if e.Date != "15-06-2025" {
			t.Errorf("Expected date 15-06-2025, got %s", e.Date)
		}
		if e.Timestamp <= 0 {
			t.Errorf("Expected millisecond timestamp, got %d", e.Timestamp)
		}
	}
}

func TestGetEventsHandler_AcknowledgedFilter(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	events := insertEvents(t, repo, "cam", 3)

	if _, err := repo.Acknowledge(context.Background(), events[0].ID, time.Now()); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?acknowledged=false", nil)
	rec := httptest.NewRecorder()
	GetEventsHandler(repo, testLogger())(rec, req)

	var data dto.EventsData
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if err := json.Unmarshal(raw["length"], &data.Length); err != nil {
		t.Fatalf("Failed to decode length: %v", err)
	}
	if data.Length != 2 {
		t.Errorf("Expected 2 pending events, got %d", data.Length)
	}
}

func TestAcknowledgeEventHandler(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	events := insertEvents(t, repo, "cam", 1)

	ackAt := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	h := AcknowledgeEventHandler(repo, func() time.Time { return ackAt }, testLogger())

	tests := []struct {
		name     string
		method   string
		target   string
		expected int
	}{
		{"wrong method", http.MethodGet, "/api/events/ack?id=" + events[0].ID, http.StatusMethodNotAllowed},
		{"missing id", http.MethodPost, "/api/events/ack", http.StatusBadRequest},
		{"unknown id", http.MethodPost, "/api/events/ack?id=nope", http.StatusNotFound},
		{"acknowledged", http.MethodPost, "/api/events/ack?id=" + events[0].ID, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(tt.method, tt.target, nil))
			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
		})
	}

	got, err := repo.GetByID(context.Background(), events[0].ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Acknowledged || got.AcknowledgedAt == nil || !got.AcknowledgedAt.Equal(ackAt) {
		t.Errorf("Expected event acknowledged at %v, got %+v", ackAt, got)
	}
}

func TestClearEventsHandler(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	insertEvents(t, repo, "cam", 3)

	rec := httptest.NewRecorder()
	ClearEventsHandler(repo, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/api/events/clear", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	count, _ := repo.GetTotalCount(context.Background(), nil)
	if count != 0 {
		t.Errorf("Expected 0 events, got %d", count)
	}
}

func TestGetCamerasHandler(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	GetCamerasHandler(repo, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/cameras", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %s", rec.Body.String())
	}

	insertEvents(t, repo, "kitchen", 1)
	rec = httptest.NewRecorder()
	GetCamerasHandler(repo, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/cameras", nil))
	if strings.TrimSpace(rec.Body.String()) != `["kitchen"]` {
		t.Errorf("Expected [\"kitchen\"], got %s", rec.Body.String())
	}
}

// ========================================
// Artifact Handler Tests
// ========================================

func TestViewArtifactHandler(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "artifact_view")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := storage.NewLocalStore(&config.Config{ImageDirectory: tempDir}, testLogger())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if _, err := store.Put(context.Background(), []byte("jpeg"), "fire_detection_1.jpg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	tests := []struct {
		name     string
		target   string
		expected int
	}{
		{"existing", "/api/artifacts/view?name=fire_detection_1.jpg", http.StatusOK},
		{"missing name", "/api/artifacts/view", http.StatusBadRequest},
		{"traversal", "/api/artifacts/view?name=../../etc/passwd", http.StatusBadRequest},
		{"unknown", "/api/artifacts/view?name=other.jpg", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ViewArtifactHandler(store)(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	ViewArtifactHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/api/artifacts/view?name=x.jpg", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without local store, got %d", rec.Code)
	}
}

// ========================================
// Status and Logs Handler Tests
// ========================================

func TestStatusHandler(t *testing.T) {
	log := testLogger()
	cfg := &config.Config{CameraName: "kitchen", Interval: 2 * time.Second}
	estimator := fire.NewEstimator(fire.Options{Heuristic: fire.DefaultHeuristicParams()}, nil, log)
	watcher := service.NewWatcher(cfg, nil, estimator, nil, nil, nil, nil, log)

	rec := httptest.NewRecorder()
	StatusHandler(watcher, nil, log)(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var status dto.StatusData
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.Mode != "heuristic" || status.Camera != "kitchen" || status.Interval != "2s" {
		t.Errorf("Unexpected status: %+v", status)
	}
	if status.LastFrameAt != nil {
		t.Error("Expected no frame yet")
	}
}

func TestLogsHandlers(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logs_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	log := logger.NewLogger(&config.Config{LogDirectory: tempDir, LogLevel: "error"})
	defer log.Close()
	log.Info("camera online")

	rec := httptest.NewRecorder()
	ShowLogsHandler(log, logger.InfoFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "camera online") {
		t.Errorf("Expected log content, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ClearLogsHandler(log, logger.InfoFile)(rec, httptest.NewRequest(http.MethodPost, "/logs/info/clear", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ShowLogsHandler(testLogger(), logger.InfoFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for console-only logger, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("Expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

// ========================================
// Sensor Handler Tests
// ========================================

func TestIngestSensorHandler(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	log := testLogger()
	ingestor := sensor.NewIngestor(sensor.DefaultThresholds(), "gw-1", repository.NewEventLog(repo), nil, nil, nil, log)
	handlerFunc := IngestSensorHandler(ingestor, log)

	tests := []struct {
		name      string
		body      string
		risk      string
		withEvent bool
	}{
		{"normal", `{"temperature":22.5,"ldrValue":3000,"flameDO":1,"mqValue":200}`, "NORMAL", false},
		{"warning", `{"node_id":"hall","temperature":24,"ldrValue":120,"flameDO":0,"mqValue":200}`, "WARNING", true},
		{"danger", `{"temperature":61,"ldrValue":3000,"mqValue":200}`, "DANGER", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlerFunc(rec, httptest.NewRequest(http.MethodPost, "/api/sensors", strings.NewReader(tt.body)))

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var result dto.SensorResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if result.Risk != tt.risk {
				t.Errorf("Expected risk %s, got %s", tt.risk, result.Risk)
			}
			if (result.EventID != "") != tt.withEvent {
				t.Errorf("Expected event=%v, got event id %q", tt.withEvent, result.EventID)
			}
		})
	}

	events, err := repo.GetAll(context.Background(), &dto.EventFilters{EventType: model.EventTypeWarning, Limit: 10})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(events) != 1 || events[0].Camera != "hall" || events[0].Source != model.SourceSensor {
		t.Errorf("Expected one WARNING event from hall, got %+v", events)
	}
}

func TestIngestSensorHandler_RejectsBadRequests(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	log := testLogger()
	ingestor := sensor.NewIngestor(sensor.DefaultThresholds(), "gw-1", repository.NewEventLog(repo), nil, nil, nil, log)
	handlerFunc := IngestSensorHandler(ingestor, log)

	rec := httptest.NewRecorder()
	handlerFunc(rec, httptest.NewRequest(http.MethodGet, "/api/sensors", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handlerFunc(rec, httptest.NewRequest(http.MethodPost, "/api/sensors", strings.NewReader("Temperature: 24")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
