package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"firewatch/internal/dto"
	"firewatch/internal/logger"
	"firewatch/internal/service/sensor"
)

// maxSensorPayload bounds a pushed reading.
const maxSensorPayload = 64 << 10

// IngestSensorHandler accepts a JSON reading pushed by a sensor gateway.
func IngestSensorHandler(ingestor *sensor.Ingestor, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var reading sensor.Reading
		if err := json.NewDecoder(io.LimitReader(r.Body, maxSensorPayload)).Decode(&reading); err != nil {
			logger.Warning("Rejected sensor payload: %v", err)
			http.Error(w, "Invalid sensor reading", http.StatusBadRequest)
			return
		}

		out := ingestor.Ingest(r.Context(), reading)

		result := dto.SensorResult{
			NodeID:        out.Log.NodeID,
			Risk:          string(out.Log.Risk),
			Temperature:   out.Log.Temperature,
			Smoke:         out.Log.Smoke,
			Flame:         out.Log.Flame,
			Light:         out.Log.Light,
			CameraChecked: out.CameraChecked,
			FireConfirmed: out.FireConfirmed,
			CheckError:    out.CheckError,
		}
		if out.Event != nil {
			result.EventID = out.Event.ID
		}
		writeJSON(w, http.StatusOK, result, logger)
	}
}
