package route

import (
	"net/http"
	"time"

	"firewatch/internal/config"
	"firewatch/internal/handler"
	"firewatch/internal/logger"
	"firewatch/internal/middleware"
	"firewatch/internal/repository"
	"firewatch/internal/service"
	"firewatch/internal/service/sensor"
	"firewatch/internal/service/storage"
	"firewatch/internal/service/websocket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the dashboard API, log endpoints, health and metrics,
// and wraps the mux with the token middleware. localStore is nil when images
// are kept in a cloud bucket.
func SetupRoutes(cfg *config.Config, log *logger.Logger, watcher *service.Watcher, ingestor *sensor.Ingestor,
	hub *websocket.HubService, eventRepo repository.EventRepository, localStore *storage.LocalStore) http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/events", handler.GetEventsHandler(eventRepo, log))
	mux.HandleFunc("/api/events/ack", handler.AcknowledgeEventHandler(eventRepo, time.Now, log))
	mux.HandleFunc("/api/events/clear", handler.ClearEventsHandler(eventRepo, log))
	mux.HandleFunc("/api/cameras", handler.GetCamerasHandler(eventRepo, log))
	mux.HandleFunc("/api/artifacts/view", handler.ViewArtifactHandler(localStore))
	mux.HandleFunc("/api/live", handler.LiveWebsocketHandler(hub, log))
	mux.HandleFunc("/api/status", handler.StatusHandler(watcher, hub, log))
	mux.HandleFunc("/api/sensors", handler.IngestSensorHandler(ingestor, log))

	// Log endpoints
	for level, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(log, file))
	}

	mux.HandleFunc("/healthz", handler.HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.AuthMiddleware(cfg.APIToken, mux)
}
