package metrics

import (
	"context"
	"strconv"

	"controlling_pump/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PumpState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "pump_state",
			Namespace: PumpNamespace,
			Help:      "1 for the current pump state, 0 for the others.",
		},
		[]string{"state"},
	)

	PumpAutoMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      "pump_auto_mode",
			Namespace: PumpNamespace,
			Help:      "1 while the engine decides on its own each poll.",
		},
	)

	RelayOn = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      "relay_on",
			Namespace: PumpNamespace,
			Help:      "1 while the relay is confirmed energized.",
		},
	)

	PumpSpeedPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      "pump_speed_percent",
			Namespace: PumpNamespace,
			Help:      "Motor duty cycle, 0 while stopped.",
		},
	)

	MoistureChannel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "moisture_channel_percent",
			Namespace: PumpNamespace,
			Help:      "Soil moisture per ADC channel position.",
		},
		[]string{"channel"},
	)

	SensorValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "sensor_value",
			Namespace: PumpNamespace,
			Help:      "Latest sensor reading (°C, %, L/min). Absent sensors are not exported.",
		},
		[]string{"sensor"},
	)

	SensorFault = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "sensor_fault",
			Namespace: PumpNamespace,
			Help:      "1 when the sensor failed on the latest poll.",
		},
		[]string{"sensor"},
	)

	PulseRemainingSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      "pulse_remaining_seconds",
			Namespace: PumpNamespace,
			Help:      "Seconds left on the current timed run.",
		},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "events_total",
			Namespace: PumpNamespace,
			Help:      "Pump events by type.",
		},
		[]string{"type"},
	)
)

var states = []models.PumpState{models.StateOff, models.StateRunning, models.StateFault}

// ObserveStatus updates the gauges from a status snapshot. It is registered
// as an engine listener.
func ObserveStatus(st models.Status) {
	for _, s := range states {
		PumpState.WithLabelValues(string(s)).Set(boolToFloat(st.State == s))
	}
	PumpAutoMode.Set(boolToFloat(st.Mode == models.ModeAuto))
	RelayOn.Set(boolToFloat(st.RelayOn))
	PumpSpeedPercent.Set(float64(st.SpeedPercent))
	PulseRemainingSeconds.Set(float64(st.PulseRemainingSeconds))

	MoistureChannel.Reset()
	for i, v := range st.Reading.MoistureChannels {
		MoistureChannel.WithLabelValues(strconv.Itoa(i)).Set(v)
	}

	for _, s := range models.SensorPriority {
		if v := st.Reading.Value(s); v != nil {
			SensorValue.WithLabelValues(string(s)).Set(*v)
		} else {
			SensorValue.DeleteLabelValues(string(s))
		}
		SensorFault.WithLabelValues(string(s)).Set(boolToFloat(st.Reading.HasFault(s)))
	}
}

// EventCounter counts engine events. It satisfies engine.EventSink.
type EventCounter struct{}

func (EventCounter) Append(_ context.Context, e models.PumpEvent) error {
	EventsTotal.WithLabelValues(e.Type).Inc()
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
