package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_pump/internal/config"
	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"

	"github.com/reef-pi/rpi/i2c"
)

// HardwareSensor reads the DS18B20, the ADS1115 moisture probes and the flow
// meter. The three sensors are read concurrently so one slow bus never costs
// more than a single timeout per poll.
type HardwareSensor struct {
	probes  map[models.Sensor]probe
	timeout time.Duration
	closers []func() error
	log     *logger.Logger
	now     func() time.Time
}

// OpenHardware acquires the buses and lines for every enabled sensor. On
// error anything already acquired is released.
func OpenHardware(hw config.HardwareConfig, enabled config.SensorsConfig, timeout time.Duration, log *logger.Logger) (*HardwareSensor, error) {
	s := &HardwareSensor{
		probes:  make(map[models.Sensor]probe),
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}

	if enabled.Temperature {
		t, err := newDS18B20(hw.W1DevicesDir, hw.DS18B20ID)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open ds18b20: %w", err), s.Close())
		}
		s.probes[models.SensorTemperature] = t
	}

	if enabled.Humidity {
		bus, err := i2c.New()
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open i2c bus: %w", err), s.Close())
		}
		s.closers = append(s.closers, bus.Close)
		s.probes[models.SensorHumidity] = &moistureProbe{
			adc:      newADS1115(bus, byte(hw.ADS1115Address)),
			channels: hw.MoistureChannels,
			dry:      hw.MoistureDry,
			wet:      hw.MoistureWet,
		}
	}

	if enabled.Flow {
		counter, err := openPulseCounter(hw.GPIOChip, hw.FlowPin)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open flow line %s/%d: %w", hw.GPIOChip, hw.FlowPin, err), s.Close())
		}
		s.closers = append(s.closers, counter.Close)
		s.probes[models.SensorFlow] = newFlowMeter(counter, hw.FlowPulsesPerLPM, time.Now)
	}

	return s, nil
}

// Read polls every enabled sensor in parallel.
func (s *HardwareSensor) Read(ctx context.Context) models.SensorReading {
	reading := models.SensorReading{Timestamp: s.now()}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, p := range s.probes {
		wg.Add(1)
		go func(name models.Sensor, p probe) {
			defer wg.Done()
			var (
				v        float64
				channels []float64
				err      error
			)
			if cp, ok := p.(channelProbe); ok {
				channels, err = withTimeout(ctx, s.timeout, cp.ReadChannels)
				if err == nil {
					v = mean(channels)
				}
			} else {
				v, err = readWithTimeout(ctx, s.timeout, p)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if s.log != nil {
					s.log.Warnw("sensor read failed", "sensor", name, "error", err)
				}
				reading.Faults = append(reading.Faults, name)
				return
			}
			setValue(&reading, name, models.Float(v))
			if name == models.SensorHumidity {
				reading.MoistureChannels = channels
			}
		}(name, p)
	}
	wg.Wait()

	sortFaults(reading.Faults)
	return reading
}

// Close releases the I2C bus and the flow GPIO line.
func (s *HardwareSensor) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// sortFaults orders faults by reporting priority so output is stable.
func sortFaults(faults []models.Sensor) {
	if len(faults) < 2 {
		return
	}
	ordered := faults[:0:0]
	for _, s := range models.SensorPriority {
		for _, f := range faults {
			if f == s {
				ordered = append(ordered, f)
			}
		}
	}
	copy(faults, ordered)
}
