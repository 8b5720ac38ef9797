// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maruel/thermalcam/thermal/internal"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// EEPROM is the calibration memory dumped once at initialization.
type EEPROM [internal.EEPROMWords]uint16

// RawFrame is one subpage as read from the device RAM.
type RawFrame struct {
	RAM     [internal.RAMWords]uint16
	Control uint16
	SubPage int
}

// CalibrateFunc converts a raw subpage into temperatures in °C, updating dst
// in place. dst is row-major, Rows×Cols, and persists across calls so a
// calibration can update only the pixels of the current subpage.
type CalibrateFunc func(ee *EEPROM, f *RawFrame, dst []float64) error

// Uncalibrated maps the raw signed pixel counts linearly, one hundredth of a
// count per unit, for the pixels of the current chess subpage.
//
// The values track relative intensity only. Plug a real calibration in
// Opts.Calibrate for radiometric values.
func Uncalibrated(ee *EEPROM, f *RawFrame, dst []float64) error {
	if len(dst) != internal.Pixels {
		return fmt.Errorf("expected %d pixels, got %d", internal.Pixels, len(dst))
	}
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			if (x+y)&1 != f.SubPage {
				continue
			}
			i := y*Cols + x
			dst[i] = float64(int16(f.RAM[i])) / 100
		}
	}
	return nil
}

// Opts holds the MLX90640 configuration.
type Opts struct {
	Addr        uint16           // Default: 0x33
	RefreshRate physic.Frequency // Default: 8Hz
	Calibrate   CalibrateFunc    // Default: Uncalibrated
	// Poll is the delay between two status reads while waiting for a frame.
	// Default: a quarter of the frame period.
	Poll time.Duration
}

// DefaultOpts is the configuration used when nil is passed to NewMLX90640.
var DefaultOpts = Opts{
	Addr:        0x33,
	RefreshRate: 8 * physic.Hertz,
	Calibrate:   Uncalibrated,
}

// ValidRefreshRate returns an error if the MLX90640 doesn't support f.
func ValidRefreshRate(f physic.Frequency) error {
	_, err := internal.RefreshCode(f)
	return err
}

// Settings is the device configuration as read back from the control
// register.
type Settings struct {
	RefreshRate physic.Frequency
	Chess       bool
	ADCBits     int
}

// MLX90640 is a Melexis 32x24 far infrared sensor on an I²C bus.
type MLX90640 struct {
	mu     sync.Mutex
	d      i2c.Dev
	opts   Opts
	ee     EEPROM
	raw    RawFrame
	buf    [internal.Pixels]float64
	// seen marks the subpages read at least once.
	seen   [2]bool
	closed bool
}

// NewMLX90640 configures the refresh rate and chess mode then dumps the
// calibration EEPROM.
func NewMLX90640(bus i2c.Bus, opts *Opts) (*MLX90640, error) {
	o := DefaultOpts
	if opts != nil {
		if opts.Addr != 0 {
			o.Addr = opts.Addr
		}
		if opts.RefreshRate != 0 {
			o.RefreshRate = opts.RefreshRate
		}
		if opts.Calibrate != nil {
			o.Calibrate = opts.Calibrate
		}
		o.Poll = opts.Poll
	}
	code, err := internal.RefreshCode(o.RefreshRate)
	if err != nil {
		return nil, err
	}
	if o.Poll == 0 {
		o.Poll = time.Duration(float64(time.Second) * float64(physic.Hertz) / float64(o.RefreshRate) / 4)
	}
	d := &MLX90640{d: i2c.Dev{Bus: bus, Addr: o.Addr}, opts: o}
	ctrl, err := d.readWord(internal.RegControl)
	if err != nil {
		return nil, fmt.Errorf("mlx90640: %w", err)
	}
	ctrl = ctrl&^internal.ControlRateMask | code<<internal.ControlRateShift | internal.ControlChess
	if err := d.d.Tx(internal.RegControl.Write(ctrl), nil); err != nil {
		return nil, fmt.Errorf("mlx90640: %w", err)
	}
	if err := d.readWords(internal.EEPROM, d.ee[:]); err != nil {
		return nil, fmt.Errorf("mlx90640: dumping EEPROM: %w", err)
	}
	d.raw.Control = ctrl
	return d, nil
}

func (d *MLX90640) String() string {
	return fmt.Sprintf("MLX90640{%s, 0x%02x}", d.d.Bus, d.opts.Addr)
}

// EEPROM returns a copy of the calibration memory.
func (d *MLX90640) EEPROM() EEPROM {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ee
}

// Settings reads back the control register.
func (d *MLX90640) Settings() (Settings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Settings{}, ErrClosed
	}
	ctrl, err := d.readWord(internal.RegControl)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		RefreshRate: internal.RefreshRates[(ctrl&internal.ControlRateMask)>>internal.ControlRateShift],
		Chess:       ctrl&internal.ControlChess != 0,
		ADCBits:     16 + int((ctrl&internal.ControlResMask)>>internal.ControlResShift),
	}, nil
}

// Sample implements Source.
//
// It polls the status register until a new subpage is ready, reads it and
// restarts the measurement. The first call reads both subpages so no pixel
// of the returned matrix is left unset.
func (d *MLX90640) Sample() (*Matrix, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	for i := 0; ; i++ {
		if err := d.readSubPage(); err != nil {
			return nil, err
		}
		if d.seen[0] && d.seen[1] {
			break
		}
		if i == 3 {
			return nil, fmt.Errorf("mlx90640: subpage %d never reported", d.raw.SubPage^1)
		}
	}
	return NewMatrix(Rows, Cols, d.buf[:])
}

// Close implements Source. It does not close the bus.
func (d *MLX90640) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("mlx90640: already closed")
	}
	d.closed = true
	return nil
}

// Private details.

func (d *MLX90640) readSubPage() error {
	var status uint16
	for {
		var err error
		if status, err = d.readWord(internal.RegStatus); err != nil {
			return fmt.Errorf("mlx90640: status: %w", err)
		}
		if status&internal.StatusNewData != 0 {
			break
		}
		time.Sleep(d.opts.Poll)
	}
	if err := d.readWords(internal.RAM, d.raw.RAM[:]); err != nil {
		return fmt.Errorf("mlx90640: frame: %w", err)
	}
	if err := d.d.Tx(internal.RegStatus.Write(internal.StatusStart), nil); err != nil {
		return fmt.Errorf("mlx90640: restart: %w", err)
	}
	d.raw.SubPage = int(status & internal.StatusSubPage)
	if err := d.opts.Calibrate(&d.ee, &d.raw, d.buf[:]); err != nil {
		return fmt.Errorf("mlx90640: calibration: %w", err)
	}
	d.seen[d.raw.SubPage] = true
	return nil
}

func (d *MLX90640) readWord(r internal.Register) (uint16, error) {
	var v [1]uint16
	err := d.readWords(r, v[:])
	return v[0], err
}

func (d *MLX90640) readWords(r internal.Register, dst []uint16) error {
	b := make([]byte, 2*len(dst))
	if err := d.d.Tx(r.Addr(), b); err != nil {
		return err
	}
	internal.Words(dst, b)
	return nil
}
