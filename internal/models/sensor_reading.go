package models

import (
	"fmt"
	"strings"
	"time"
)

// SensorReading is one poll of all sensors. A nil value means the sensor was
// unavailable or faulted during this poll; it never means zero.
type SensorReading struct {
	TemperatureC    *float64  `json:"temperature_c"`    // °C
	HumidityPercent *float64  `json:"humidity_percent"` // 0..100
	FlowRateLPM     *float64  `json:"flow_rate_lpm"`    // L/min
	Timestamp       time.Time `json:"timestamp"`
	Faults          []Sensor  `json:"faults,omitempty"`

	// MoistureChannels holds each soil probe's percentage in channel order.
	// HumidityPercent is their mean.
	MoistureChannels []float64 `json:"moisture_channels,omitempty"`
}

// Float returns a pointer to v, for building readings.
func Float(v float64) *float64 { return &v }

// Value returns the reading for s, or nil when it is absent.
func (r SensorReading) Value(s Sensor) *float64 {
	switch s {
	case SensorFlow:
		return r.FlowRateLPM
	case SensorTemperature:
		return r.TemperatureC
	case SensorHumidity:
		return r.HumidityPercent
	default:
		return nil
	}
}

// HasFault reports whether s was flagged as faulted in this reading.
func (r SensorReading) HasFault(s Sensor) bool {
	for _, f := range r.Faults {
		if f == s {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no pointers with r.
func (r SensorReading) Clone() SensorReading {
	out := SensorReading{Timestamp: r.Timestamp}
	if r.TemperatureC != nil {
		out.TemperatureC = Float(*r.TemperatureC)
	}
	if r.HumidityPercent != nil {
		out.HumidityPercent = Float(*r.HumidityPercent)
	}
	if r.FlowRateLPM != nil {
		out.FlowRateLPM = Float(*r.FlowRateLPM)
	}
	if len(r.Faults) > 0 {
		out.Faults = append([]Sensor(nil), r.Faults...)
	}
	if len(r.MoistureChannels) > 0 {
		out.MoistureChannels = append([]float64(nil), r.MoistureChannels...)
	}
	return out
}

func (r SensorReading) String() string {
	parts := []string{
		"temp=" + formatOptional(r.TemperatureC, "%.1f°C"),
		"humidity=" + formatOptional(r.HumidityPercent, "%.0f%%"),
		"flow=" + formatOptional(r.FlowRateLPM, "%.2f L/min"),
	}
	return strings.Join(parts, " ")
}

func formatOptional(v *float64, layout string) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf(layout, *v)
}
