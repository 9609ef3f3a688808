package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// softPWM toggles a GPIO line to drive the BTS7960 RPWM input. Duty 0 and
// 100 hold the line steady; anything between is generated by a goroutine.
type softPWM struct {
	line   line
	period time.Duration
	duty   chan int
	done   chan struct{}
	exited chan struct{}
}

// openPWM requests the PWM line driven low.
func openPWM(chip string, offset, freqHz int) (*softPWM, error) {
	if freqHz < 1 {
		return nil, fmt.Errorf("pwm frequency must be >= 1 Hz, got %d", freqHz)
	}
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("controlling_pump-pwm"))
	if err != nil {
		return nil, fmt.Errorf("request pwm line %s/%d: %w", chip, offset, err)
	}
	return newSoftPWM(l, freqHz), nil
}

func newSoftPWM(l line, freqHz int) *softPWM {
	p := &softPWM{
		line:   l,
		period: time.Second / time.Duration(freqHz),
		duty:   make(chan int),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go p.run()
	return p
}

// Set changes the duty cycle. It blocks until the generator has taken it.
func (p *softPWM) Set(pct int) error {
	select {
	case p.duty <- clampSpeed(pct):
		return nil
	case <-p.done:
		return errors.New("pwm line released")
	}
}

// Close stops the generator, drives the line low and releases it.
func (p *softPWM) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	close(p.done)
	<-p.exited
	return errors.Join(p.line.SetValue(0), p.line.Close())
}

func (p *softPWM) run() {
	defer close(p.exited)

	duty := 0
	for {
		if duty <= 0 || duty >= 100 {
			_ = p.line.SetValue(boolToLevel(duty >= 100))
			select {
			case duty = <-p.duty:
			case <-p.done:
				return
			}
			continue
		}

		high := p.period * time.Duration(duty) / 100
		_ = p.line.SetValue(1)
		next, stop := p.hold(high)
		if stop {
			return
		}
		if next >= 0 {
			duty = next
			continue
		}
		_ = p.line.SetValue(0)
		if next, stop = p.hold(p.period - high); stop {
			return
		}
		if next >= 0 {
			duty = next
		}
	}
}

// hold waits d and returns a new duty when one arrives first, or -1.
func (p *softPWM) hold(d time.Duration) (int, bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return -1, false
	case v := <-p.duty:
		return v, false
	case <-p.done:
		return -1, true
	}
}
