package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ds18b20 reads the kernel w1_therm driver output for one probe.
type ds18b20 struct {
	path string
}

func newDS18B20(devicesDir, id string) (*ds18b20, error) {
	if id == "" {
		matches, err := filepath.Glob(filepath.Join(devicesDir, "28-*"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no 1-wire temperature probe under %s", devicesDir)
		}
		return &ds18b20{path: filepath.Join(matches[0], "w1_slave")}, nil
	}
	return &ds18b20{path: filepath.Join(devicesDir, id, "w1_slave")}, nil
}

func (d *ds18b20) Read(_ context.Context) (float64, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return 0, err
	}
	return parseW1Slave(data)
}

var errCRC = errors.New("ds18b20 crc check failed")

// parseW1Slave parses the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(data []byte) (float64, error) {
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) < 2 {
		return 0, fmt.Errorf("ds18b20: short read (%d lines)", len(lines))
	}
	if !bytes.HasSuffix(bytes.TrimSpace(lines[0]), []byte("YES")) {
		return 0, errCRC
	}
	i := bytes.LastIndex(lines[1], []byte("t="))
	if i < 0 {
		return 0, errors.New("ds18b20: missing t= field")
	}
	milli, err := strconv.Atoi(string(bytes.TrimSpace(lines[1][i+2:])))
	if err != nil {
		return 0, fmt.Errorf("ds18b20: bad temperature %q: %w", lines[1][i+2:], err)
	}
	// 85000 is the power-on reset value, returned when no conversion ran.
	if milli == 85000 {
		return 0, errors.New("ds18b20: power-on reset value")
	}
	return float64(milli) / 1000, nil
}
