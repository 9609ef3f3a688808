package sensor

import (
	"context"
	"fmt"
	"time"

	"controlling_pump/internal/models"
)

// Adapter produces one SensorReading per call. Implementations never return
// an error: a sensor that cannot be read is reported as a nil value and listed
// in Faults so the engine can degrade instead of stopping.
type Adapter interface {
	Read(ctx context.Context) models.SensorReading
	Close() error
}

// probe reads a single physical quantity.
type probe interface {
	Read(ctx context.Context) (float64, error)
}

type probeFunc func(ctx context.Context) (float64, error)

func (f probeFunc) Read(ctx context.Context) (float64, error) { return f(ctx) }

// channelProbe is a probe backed by several physical channels.
type channelProbe interface {
	probe
	ReadChannels(ctx context.Context) ([]float64, error)
}

// readWithTimeout bounds p by timeout. A probe stuck on the bus keeps its
// goroutine until the driver returns, but the caller is released on time.
func readWithTimeout(ctx context.Context, timeout time.Duration, p probe) (float64, error) {
	return withTimeout(ctx, timeout, p.Read)
}

func withTimeout[T any](ctx context.Context, timeout time.Duration, read func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := read(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("read timed out after %s: %w", timeout, ctx.Err())
	}
}

func setValue(r *models.SensorReading, s models.Sensor, v *float64) {
	switch s {
	case models.SensorFlow:
		r.FlowRateLPM = v
	case models.SensorTemperature:
		r.TemperatureC = v
	case models.SensorHumidity:
		r.HumidityPercent = v
		if v == nil {
			r.MoistureChannels = nil
		}
	}
}
