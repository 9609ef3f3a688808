package sensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// i2cBus is the part of reef-pi's i2c.Bus the ADC needs.
type i2cBus interface {
	WriteBytes(addr byte, value []byte) error
	ReadBytes(addr byte, num int) ([]byte, error)
}

const (
	adsRegConversion = 0x00
	adsRegConfig     = 0x01

	adsOSSingle   = 0x8000
	adsMuxSingle0 = 0x4000 // AINx vs GND starts here, channel n adds n<<12
	adsPGA4V      = 0x0200 // ±4.096V
	adsModeSingle = 0x0100
	adsRate128SPS = 0x0080
	adsCompQueOff = 0x0003

	adsConversionDelay = 8 * time.Millisecond
)

// ads1115 does single-shot conversions on one ADS1115.
type ads1115 struct {
	mu   sync.Mutex
	bus  i2cBus
	addr byte
}

func newADS1115(bus i2cBus, addr byte) *ads1115 {
	return &ads1115{bus: bus, addr: addr}
}

// ReadChannel returns the signed 16-bit conversion for channel 0..3.
func (a *ads1115) ReadChannel(ctx context.Context, ch int) (int16, error) {
	if ch < 0 || ch > 3 {
		return 0, fmt.Errorf("ads1115: invalid channel %d", ch)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := uint16(adsOSSingle | (adsMuxSingle0 + ch<<12) | adsPGA4V | adsModeSingle | adsRate128SPS | adsCompQueOff)
	if err := a.bus.WriteBytes(a.addr, []byte{adsRegConfig, byte(cfg >> 8), byte(cfg)}); err != nil {
		return 0, fmt.Errorf("ads1115 config ch%d: %w", ch, err)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(adsConversionDelay):
	}

	if err := a.bus.WriteBytes(a.addr, []byte{adsRegConversion}); err != nil {
		return 0, fmt.Errorf("ads1115 select ch%d: %w", ch, err)
	}
	data, err := a.bus.ReadBytes(a.addr, 2)
	if err != nil {
		return 0, fmt.Errorf("ads1115 read ch%d: %w", ch, err)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("ads1115 read ch%d: short read", ch)
	}
	return int16(binary.BigEndian.Uint16(data)), nil
}

// moistureProbe reads capacitive soil probes on several ADC channels.
type moistureProbe struct {
	adc      *ads1115
	channels []int
	dry, wet float64
}

// Read returns the mean moisture over all channels.
func (m *moistureProbe) Read(ctx context.Context) (float64, error) {
	pcts, err := m.ReadChannels(ctx)
	if err != nil {
		return 0, err
	}
	return mean(pcts), nil
}

// ReadChannels returns one percentage per configured channel. Any channel
// error fails the whole read.
func (m *moistureProbe) ReadChannels(ctx context.Context) ([]float64, error) {
	if len(m.channels) == 0 {
		return nil, fmt.Errorf("no moisture channels configured")
	}
	pcts := make([]float64, 0, len(m.channels))
	for _, ch := range m.channels {
		raw, err := m.adc.ReadChannel(ctx, ch)
		if err != nil {
			return nil, err
		}
		pcts = append(pcts, moisturePercent(raw, m.dry, m.wet))
	}
	return pcts, nil
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// moisturePercent maps a conversion to 0..100 %. The raw value is reduced to
// 10 bits first so the dry/wet calibration points stay in 0..1023.
func moisturePercent(raw int16, dry, wet float64) float64 {
	if raw < 0 {
		raw = 0
	}
	v := float64(raw >> 5)
	pct := (dry - v) / (dry - wet) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
