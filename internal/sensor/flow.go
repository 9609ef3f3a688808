package sensor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// pulseSource counts flow meter pulses.
type pulseSource interface {
	Pulses() uint64
}

// pulseCounter counts rising edges on a GPIO line in the kernel event handler.
type pulseCounter struct {
	line  *gpiocdev.Line
	count atomic.Uint64
}

func openPulseCounter(chip string, offset int) (*pulseCounter, error) {
	pc := &pulseCounter{}
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			pc.count.Add(1)
		}),
	)
	if err != nil {
		return nil, err
	}
	pc.line = l
	return pc, nil
}

func (p *pulseCounter) Pulses() uint64 { return p.count.Load() }

func (p *pulseCounter) Close() error {
	if p.line == nil {
		return nil
	}
	return p.line.Close()
}

// flowMeter turns the pulse count into L/min over the window since the
// previous read.
type flowMeter struct {
	mu           sync.Mutex
	src          pulseSource
	pulsesPerLPM float64
	now          func() time.Time
	lastCount    uint64
	lastAt       time.Time
}

func newFlowMeter(src pulseSource, pulsesPerLPM float64, now func() time.Time) *flowMeter {
	return &flowMeter{
		src:          src,
		pulsesPerLPM: pulsesPerLPM,
		now:          now,
		lastCount:    src.Pulses(),
		lastAt:       now(),
	}
}

func (f *flowMeter) Read(_ context.Context) (float64, error) {
	if f.pulsesPerLPM <= 0 {
		return 0, errors.New("flow: pulses per L/min must be positive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	count, at := f.src.Pulses(), f.now()
	elapsed := at.Sub(f.lastAt).Seconds()
	delta := count - f.lastCount
	f.lastCount, f.lastAt = count, at

	if elapsed <= 0 {
		return 0, nil
	}
	return float64(delta) / elapsed / f.pulsesPerLPM, nil
}
