package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	APIToken     string
	LogDirectory string
	LogLevel     string

	// Camera capture
	CameraURL      string
	CameraUDPAddr  string // non-empty switches to UDP push frames
	CameraName     string
	CaptureTimeout time.Duration
	Interval       time.Duration

	// Estimator
	Mock                bool
	ModelPath           string
	DefaultModelPath    string
	LabelsPath          string
	ConfidenceThreshold float64
	Heuristic           HeuristicConfig

	// Artifact storage: "local" or "gcs"
	ArtifactBackend       string
	ImageDirectory        string
	MaxImageDirectorySize int64 // GB, 0 disables pruning
	PublicBaseURL         string
	GCSBucket             string
	GCSCredentials        string

	// Event log: sqlite unless DatabaseURL is set
	DatabasePath string
	DatabaseURL  string

	// Alerts
	TelegramToken  string
	TelegramChatID int64

	// Sensor gateway
	SensorNodeID        string
	SensorURL           string // non-empty polls the gateway for JSON readings
	SensorPollInterval  time.Duration
	SensorCameraConfirm bool // a WARNING reading triggers a camera check
	Sensor              SensorConfig
}

// SensorConfig holds the risk thresholds applied to gateway readings.
type SensorConfig struct {
	DangerTemperature  float64
	DangerSmoke        float64
	WarningTemperature float64
	WarningSmoke       float64
	DarkLDR            float64
}

// HeuristicConfig mirrors the tunable constants of the colour classifier.
type HeuristicConfig struct {
	CoreBrightness float64
	WarmRed        float64
	WarmBrightness float64
	MinFireRatio   float64
	BaseConfidence float64
	RatioGain      float64
	MaxConfidence  float64
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// missing .env is fine, real env vars still apply
	_ = godotenv.Load()

	return &Config{
		Port:         getEnvAsInt("PORT", 8080),
		APIToken:     getEnv("API_TOKEN", ""),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		CameraURL:      getEnv("CAMERA_URL", "http://192.168.1.100/capture"),
		CameraUDPAddr:  getEnv("CAMERA_UDP_ADDR", ""),
		CameraName:     getEnv("CAMERA_NAME", "esp32-cam"),
		CaptureTimeout: getEnvAsDuration("CAPTURE_TIMEOUT", 5*time.Second),
		Interval:       getEnvAsDuration("DETECTION_INTERVAL", 2*time.Second),

		Mock:                getEnvAsBool("FIRE_MOCK", false),
		ModelPath:           getEnv("FIRE_MODEL_PATH", ""),
		DefaultModelPath:    getEnv("DEFAULT_MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
		LabelsPath:          getEnv("FIRE_LABELS_PATH", ""),
		ConfidenceThreshold: getEnvAsFloat("YOLO_CONF", 0.5),
		Heuristic: HeuristicConfig{
			CoreBrightness: getEnvAsFloat("HEURISTIC_CORE_BRIGHTNESS", 200),
			WarmRed:        getEnvAsFloat("HEURISTIC_WARM_RED", 100),
			WarmBrightness: getEnvAsFloat("HEURISTIC_WARM_BRIGHTNESS", 100),
			MinFireRatio:   getEnvAsFloat("HEURISTIC_MIN_RATIO", 0.003),
			BaseConfidence: getEnvAsFloat("HEURISTIC_BASE_CONFIDENCE", 0.5),
			RatioGain:      getEnvAsFloat("HEURISTIC_RATIO_GAIN", 30),
			MaxConfidence:  getEnvAsFloat("HEURISTIC_MAX_CONFIDENCE", 0.95),
		},

		ArtifactBackend:       strings.ToLower(getEnv("ARTIFACT_BACKEND", "local")),
		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		MaxImageDirectorySize: getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", 4),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		GCSBucket:             getEnv("GCS_BUCKET", "household-fire-images"),
		GCSCredentials:        getEnv("GCS_SERVICE_ACCOUNT", ""),

		DatabasePath: getEnv("DB_PATH", filepath.Join(".", "data", "events.db")),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnvAsInt64("TELEGRAM_CHAT_ID", 0),

		SensorNodeID:        getEnv("SENSOR_NODE_ID", "gw-1"),
		SensorURL:           getEnv("SENSOR_URL", ""),
		SensorPollInterval:  getEnvAsDuration("SENSOR_POLL_INTERVAL", 3*time.Second),
		SensorCameraConfirm: getEnvAsBool("SENSOR_CAMERA_CONFIRM", true),
		Sensor: SensorConfig{
			DangerTemperature:  getEnvAsFloat("SENSOR_DANGER_TEMPERATURE", 55),
			DangerSmoke:        getEnvAsFloat("SENSOR_DANGER_SMOKE", 1000),
			WarningTemperature: getEnvAsFloat("SENSOR_WARNING_TEMPERATURE", 35),
			WarningSmoke:       getEnvAsFloat("SENSOR_WARNING_SMOKE", 850),
			DarkLDR:            getEnvAsFloat("SENSOR_DARK_LDR", 250),
		},
	}
}

// ActiveModelPath returns the trained model when configured, otherwise the general-purpose one.
func (c *Config) ActiveModelPath() string {
	if c.ModelPath != "" {
		return c.ModelPath
	}
	return c.DefaultModelPath
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// ParseDuration accepts Go durations ("2s") or plain seconds ("2.5").
func ParseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
