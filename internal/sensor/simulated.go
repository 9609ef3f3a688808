package sensor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"controlling_pump/internal/config"
	"controlling_pump/internal/models"
)

// Simulation patterns.
const (
	PatternFixed  = "fixed"
	PatternSine   = "sine"
	PatternRandom = "random"
)

// SimulatedSensor produces synthetic readings for development and tests.
// Values follow the configured pattern unless a script is queued.
type SimulatedSensor struct {
	mu      sync.Mutex
	cfg     config.SimulationConfig
	enabled config.SensorsConfig
	rng     *rand.Rand
	sample  int
	script  []models.SensorReading
	faulty  map[models.Sensor]bool
	now     func() time.Time
}

// NewSimulated builds a simulated adapter. Sensors listed in cfg.Faulty
// always report a fault.
func NewSimulated(cfg config.SimulationConfig, enabled config.SensorsConfig) *SimulatedSensor {
	if cfg.PeriodPolls <= 0 {
		cfg.PeriodPolls = 30
	}
	s := &SimulatedSensor{
		cfg:     cfg,
		enabled: enabled,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		faulty:  make(map[models.Sensor]bool),
		now:     time.Now,
	}
	for _, name := range cfg.Faulty {
		s.faulty[models.Sensor(name)] = true
	}
	return s
}

// Script queues exact readings. Each Read consumes one; the last one repeats
// until a new script is set. Script() with no arguments returns to the pattern.
func (s *SimulatedSensor) Script(readings ...models.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append([]models.SensorReading(nil), readings...)
}

// SetFaulty replaces the set of failing sensors.
func (s *SimulatedSensor) SetFaulty(sensors ...models.Sensor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faulty = make(map[models.Sensor]bool, len(sensors))
	for _, name := range sensors {
		s.faulty[name] = true
	}
}

func (s *SimulatedSensor) Read(_ context.Context) models.SensorReading {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r models.SensorReading
	if len(s.script) > 0 {
		r = s.script[0].Clone()
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
	} else {
		r = s.generate()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	for _, name := range models.SensorPriority {
		switch {
		case !s.enabled.Enabled(name):
			setValue(&r, name, nil)
			r.Faults = without(r.Faults, name)
		case s.faulty[name]:
			setValue(&r, name, nil)
			if !r.HasFault(name) {
				r.Faults = append(r.Faults, name)
			}
		}
	}
	sortFaults(r.Faults)
	return r
}

func (s *SimulatedSensor) Close() error { return nil }

func (s *SimulatedSensor) generate() models.SensorReading {
	s.sample++
	return models.SensorReading{
		TemperatureC:    models.Float(round(s.vary(s.cfg.TemperatureC, 0), 1)),
		HumidityPercent: models.Float(clamp(round(s.vary(s.cfg.HumidityPct, math.Pi/2), 1), 0, 100)),
		FlowRateLPM:     models.Float(math.Max(0, round(s.vary(s.cfg.FlowLPM, math.Pi), 2))),
	}
}

// vary applies the pattern to base. phase keeps the three sine curves apart.
func (s *SimulatedSensor) vary(base, phase float64) float64 {
	switch s.cfg.Pattern {
	case PatternSine:
		angle := 2*math.Pi*float64(s.sample)/float64(s.cfg.PeriodPolls) + phase
		return base * (1 + s.cfg.Amplitude*math.Sin(angle))
	case PatternRandom:
		return base * (1 + s.cfg.Amplitude*(2*s.rng.Float64()-1))
	default:
		return base
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func without(list []models.Sensor, s models.Sensor) []models.Sensor {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
