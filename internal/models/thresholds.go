package models

// Thresholds gate whether the pump may run.
type Thresholds struct {
	MinFlowToRun     float64 `json:"min_flow_to_run" mapstructure:"min_flow_to_run"`         // L/min
	MaxTempToRun     float64 `json:"max_temp_to_run" mapstructure:"max_temp_to_run"`         // °C
	MinHumidityToRun float64 `json:"min_humidity_to_run" mapstructure:"min_humidity_to_run"` // %
}

// Violation describes one threshold that the latest reading does not satisfy.
type Violation struct {
	Sensor Sensor   `json:"sensor"`
	Value  *float64 `json:"value"` // nil when the sensor was absent
	Limit  float64  `json:"limit"`
	Reason string   `json:"reason"`
}
