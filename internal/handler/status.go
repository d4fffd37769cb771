package handler

import (
	"net/http"

	"firewatch/internal/logger"
	"firewatch/internal/service"
	"firewatch/internal/service/websocket"
)

// StatusHandler reports the estimator mode and the last frame result.
func StatusHandler(watcher *service.Watcher, hub *websocket.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := watcher.Status()
		if hub != nil {
			status.Viewers = hub.GetClientCount()
		}
		writeJSON(w, http.StatusOK, status, logger)
	}
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
