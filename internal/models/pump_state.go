package models

import "strings"

// PumpState is the engine-owned state of the pump relay.
type PumpState string

const (
	StateOff     PumpState = "OFF"
	StateRunning PumpState = "RUNNING"
	StateFault   PumpState = "FAULT"
)

// Mode tells whether the poll cycle may switch the pump on by itself.
type Mode string

const (
	ModeManual Mode = "MANUAL"
	ModeAuto   Mode = "AUTO"
)

// ParseMode accepts "auto" or "manual" in any case.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeAuto:
		return ModeAuto, true
	case ModeManual:
		return ModeManual, true
	default:
		return "", false
	}
}

// Sensor names one of the three physical inputs. The declaration order is
// also the violation priority: flow > temperature > humidity.
type Sensor string

const (
	SensorFlow        Sensor = "flow"
	SensorTemperature Sensor = "temperature"
	SensorHumidity    Sensor = "humidity"
)

// SensorPriority lists sensors from the highest to the lowest reporting priority.
var SensorPriority = []Sensor{SensorFlow, SensorTemperature, SensorHumidity}
