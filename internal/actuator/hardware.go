package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_pump/internal/config"

	"github.com/warthog618/go-gpiocdev"
)

// line is the subset of *gpiocdev.Line used to drive the relay.
type line interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

// HardwareActuator drives the relay on a GPIO line it owns exclusively and,
// when a PWM pin is wired, the motor driver's duty cycle.
type HardwareActuator struct {
	mu     sync.Mutex
	line   line
	pwm    *softPWM
	on     bool
	speed  int
	closed bool
	now    func() time.Time
}

// OpenHardware requests the relay line as an output driven inactive. With
// RelayActiveLow the line is inverted so logical 1 still means "pump on".
// A negative PWMPin leaves speed control out.
func OpenHardware(hw config.HardwareConfig) (*HardwareActuator, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("controlling_pump")}
	if hw.RelayActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	l, err := gpiocdev.RequestLine(hw.GPIOChip, hw.RelayPin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request relay line %s/%d: %w", hw.GPIOChip, hw.RelayPin, err)
	}
	h := newHardware(l)
	if hw.PWMPin >= 0 {
		p, err := openPWM(hw.GPIOChip, hw.PWMPin, hw.PWMFrequencyHz)
		if err != nil {
			return nil, errors.Join(err, l.Close())
		}
		h.pwm = p
	}
	return h, nil
}

func newHardware(l line) *HardwareActuator {
	return &HardwareActuator{line: l, now: time.Now}
}

func (h *HardwareActuator) SetState(ctx context.Context, on bool) Ack {
	h.mu.Lock()
	defer h.mu.Unlock()

	ack := Ack{Requested: on, At: h.now()}
	if h.closed {
		ack.Err = errors.New("relay line released")
		return ack
	}
	if err := ctx.Err(); err != nil {
		ack.Err = err
		ack.Confirmed = h.on
		return ack
	}

	if on != h.on {
		if err := h.line.SetValue(boolToLevel(on)); err != nil {
			ack.Err = fmt.Errorf("set relay %s: %w", onOff(on), err)
			ack.Confirmed = h.on
			return ack
		}
		ack.Changed = true
	}

	v, err := h.line.Value()
	if err != nil {
		ack.Err = fmt.Errorf("read back relay: %w", err)
		return ack
	}
	h.on = v == 1
	ack.Confirmed = h.on
	return ack
}

// SetSpeed sets the motor duty cycle. Without a PWM line the value is only
// recorded and the relay runs the motor at full power.
func (h *HardwareActuator) SetSpeed(_ context.Context, percent int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("relay line released")
	}
	percent = clampSpeed(percent)
	if h.pwm != nil {
		if err := h.pwm.Set(percent); err != nil {
			return fmt.Errorf("set speed %d%%: %w", percent, err)
		}
	}
	h.speed = percent
	return nil
}

func (h *HardwareActuator) Speed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.speed
}

// State returns the last confirmed relay state.
func (h *HardwareActuator) State() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.on
}

// Close drives the relay off and releases the lines.
func (h *HardwareActuator) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	offErr := h.line.SetValue(0)
	h.on = false
	h.speed = 0
	var pwmErr error
	if h.pwm != nil {
		pwmErr = h.pwm.Close()
	}
	return errors.Join(offErr, h.line.Close(), pwmErr)
}

func boolToLevel(on bool) int {
	if on {
		return 1
	}
	return 0
}
