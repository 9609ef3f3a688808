package engine

import (
	"fmt"

	"controlling_pump/internal/config"
	"controlling_pump/internal/models"
)

// Evaluate checks r against t for every enabled sensor and returns the
// violations ordered from the highest priority (flow) to the lowest
// (humidity). An enabled sensor with no value is a violation.
func Evaluate(r models.SensorReading, t models.Thresholds, enabled config.SensorsConfig) []models.Violation {
	var out []models.Violation
	for _, s := range models.SensorPriority {
		if !enabled.Enabled(s) {
			continue
		}
		if v, ok := check(s, r.Value(s), t); !ok {
			out = append(out, v)
		}
	}
	return out
}

func check(s models.Sensor, value *float64, t models.Thresholds) (models.Violation, bool) {
	v := models.Violation{Sensor: s, Value: value}
	switch s {
	case models.SensorFlow:
		v.Limit = t.MinFlowToRun
	case models.SensorTemperature:
		v.Limit = t.MaxTempToRun
	case models.SensorHumidity:
		v.Limit = t.MinHumidityToRun
	}

	if value == nil {
		v.Reason = fmt.Sprintf("%s sensor unavailable", s)
		return v, false
	}

	switch s {
	case models.SensorFlow:
		if *value < t.MinFlowToRun {
			v.Reason = fmt.Sprintf("flow %.2f L/min below minimum %.2f", *value, t.MinFlowToRun)
			return v, false
		}
	case models.SensorTemperature:
		if *value > t.MaxTempToRun {
			v.Reason = fmt.Sprintf("temperature %.1f°C above maximum %.1f", *value, t.MaxTempToRun)
			return v, false
		}
	case models.SensorHumidity:
		if *value < t.MinHumidityToRun {
			v.Reason = fmt.Sprintf("humidity %.0f%% below minimum %.0f", *value, t.MinHumidityToRun)
			return v, false
		}
	}
	return v, true
}
