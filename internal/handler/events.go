package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"firewatch/internal/dto"
	"firewatch/internal/logger"
	"firewatch/internal/repository"
	"firewatch/internal/service/storage"
)

// GetEventsHandler returns a filtered, paginated list of events, newest first.
func GetEventsHandler(repo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.EventFilters{
			Camera:       q.Get("camera"),
			EventType:    q.Get("type"),
			Acknowledged: parseBool(q.Get("acknowledged")),
			DateAfter:    parseDate(q.Get("dateAfter")),
			DateBefore:   endOfDay(parseDate(q.Get("dateBefore"))),
			Limit:        limit,
			Offset:       (page - 1) * limit,
		}

		events, err := repo.GetAll(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying events from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.GetTotalCount(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting events: %v", err)
			totalCount = len(events)
		}

		data := dto.EventsData{
			Events:      dto.NewEventInfos(events),
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		writeJSON(w, http.StatusOK, data, logger)
	}
}

// GetCamerasHandler lists the cameras that have raised events.
func GetCamerasHandler(repo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameras, err := repo.GetCameras(r.Context())
		if err != nil {
			logger.Error("Error querying cameras: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if cameras == nil {
			cameras = []string{}
		}
		writeJSON(w, http.StatusOK, cameras, logger)
	}
}

// AcknowledgeEventHandler marks the event given by the "id" query parameter as handled.
func AcknowledgeEventHandler(repo repository.EventRepository, now func() time.Time, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Event id required", http.StatusBadRequest)
			return
		}

		found, err := repo.Acknowledge(r.Context(), id, now())
		if err != nil {
			logger.Error("Failed to acknowledge event %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Event not found", http.StatusNotFound)
			return
		}

		logger.Info("Acknowledged event: %s", id)
		writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged", "id": id}, logger)
	}
}

// ClearEventsHandler deletes every event.
func ClearEventsHandler(repo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := repo.DeleteAll(r.Context()); err != nil {
			logger.Error("Error clearing events: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("All events cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewArtifactHandler serves a locally stored image given by the "name" query parameter.
// store is nil when images go to a cloud bucket.
func ViewArtifactHandler(store *storage.LocalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.NotFound(w, r)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name parameter is required", http.StatusBadRequest)
			return
		}

		filePath, err := store.Path(name)
		if err != nil {
			http.Error(w, "Invalid image name", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseBool returns nil for an empty or invalid value so the filter is skipped.
func parseBool(v string) *bool {
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// endOfDay makes a dateBefore filter include the whole day.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Nanosecond)
}
