// Package sensor turns gateway readings (temperature, smoke, flame, light) into
// risk levels and WARNING/DANGER events.
package sensor

import (
	"fmt"
	"math"
	"time"

	"firewatch/internal/config"
)

// Risk is the level assigned to a reading.
type Risk string

const (
	RiskNormal  Risk = "NORMAL"
	RiskWarning Risk = "WARNING"
	RiskDanger  Risk = "DANGER"
)

// maxLDR is the full scale of the gateway's 12-bit light ADC (0 dark, 4095 bright).
const maxLDR = 4095

// Thresholds decide the risk level of a reading.
type Thresholds struct {
	DangerTemperature  float64
	DangerSmoke        float64
	WarningTemperature float64
	WarningSmoke       float64
	// A flame reported while the LDR reads below DarkLDR is treated as a real fire.
	DarkLDR float64
}

// DefaultThresholds returns the levels the gateway ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DangerTemperature:  55,
		DangerSmoke:        1000,
		WarningTemperature: 35,
		WarningSmoke:       850,
		DarkLDR:            250,
	}
}

// ThresholdsFromConfig maps the configuration onto thresholds.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		DangerTemperature:  cfg.Sensor.DangerTemperature,
		DangerSmoke:        cfg.Sensor.DangerSmoke,
		WarningTemperature: cfg.Sensor.WarningTemperature,
		WarningSmoke:       cfg.Sensor.WarningSmoke,
		DarkLDR:            cfg.Sensor.DarkLDR,
	}
}

// Risk classifies raw values. DANGER wins over WARNING.
func (t Thresholds) Risk(temperature, smoke float64, flame bool, ldr float64) Risk {
	if temperature >= t.DangerTemperature || smoke >= t.DangerSmoke {
		return RiskDanger
	}
	if (flame && ldr < t.DarkLDR) || temperature >= t.WarningTemperature || smoke >= t.WarningSmoke {
		return RiskWarning
	}
	return RiskNormal
}

// ComputeRiskLevel classifies raw values with the default thresholds.
func ComputeRiskLevel(temperature, smoke float64, flame bool, ldr float64) Risk {
	return DefaultThresholds().Risk(temperature, smoke, flame, ldr)
}

// Reading is the JSON payload sent by the gateway.
type Reading struct {
	NodeID      string  `json:"node_id,omitempty"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	LDR         float64 `json:"ldrValue"`
	// FlameDO is the flame sensor's digital output, 0 when a flame is seen.
	FlameDO *int    `json:"flameDO,omitempty"`
	Flame   bool    `json:"flame,omitempty"`
	FlameAO float64 `json:"flameAO"`
	MQ      float64 `json:"mqValue"`
}

// FlameDetected reports the flame sensor state, preferring the digital output.
func (r Reading) FlameDetected() bool {
	if r.FlameDO != nil {
		return *r.FlameDO == 0
	}
	return r.Flame
}

// Log is a normalised reading.
type Log struct {
	Timestamp   time.Time `json:"timestamp"`
	NodeID      string    `json:"node_id"`
	Temperature float64   `json:"temp"`
	Humidity    float64   `json:"humidity"`
	Smoke       float64   `json:"smoke"`
	Flame       bool      `json:"flame"`
	FlameLevel  float64   `json:"flame_level"`
	// Light is 1 for full brightness and 0 for darkness.
	Light float64 `json:"light"`
	Risk  Risk    `json:"risk_level"`
}

// Normalize rounds the reading for storage and assigns its risk level. The risk
// uses the unrounded values.
func Normalize(r Reading, defaultNode string, t Thresholds, at time.Time) Log {
	node := r.NodeID
	if node == "" {
		node = defaultNode
	}
	flame := r.FlameDetected()

	return Log{
		Timestamp:   at,
		NodeID:      node,
		Temperature: round(r.Temperature, 1),
		Humidity:    round(r.Humidity, 1),
		Smoke:       math.Round(finite(r.MQ)),
		Flame:       flame,
		FlameLevel:  finite(r.FlameAO),
		Light:       round(clamp(1-finite(r.LDR)/maxLDR, 0, 1), 2),
		Risk:        t.Risk(finite(r.Temperature), finite(r.MQ), flame, finite(r.LDR)),
	}
}

// Describe summarises a log for an event reason or an alert.
func Describe(l Log) string {
	flame := "no"
	if l.Flame {
		flame = "yes"
	}
	return fmt.Sprintf("temperature %.1f°C, smoke %.0f, flame %s, light %.2f", l.Temperature, l.Smoke, flame, l.Light)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(finite(v)*p) / p
}
