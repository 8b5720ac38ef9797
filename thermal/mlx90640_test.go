// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"periph.io/x/periph/conn/i2c/i2ctest"
	"periph.io/x/periph/conn/physic"
)

func TestNewMLX90640(t *testing.T) {
	i := i2ctest.Playback{Ops: initSequence(0x1901, 0x1A01)}
	d, err := NewMLX90640(&i, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ee := d.EEPROM(); ee[0] != 0 || ee[len(ee)-1] != 831 {
		t.Fatalf("unexpected EEPROM %d %d", ee[0], ee[len(ee)-1])
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err == nil {
		t.Fatal("second Close() should fail")
	}
	if _, err := d.Sample(); err != ErrClosed {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewMLX90640_rate(t *testing.T) {
	i := i2ctest.Playback{}
	if _, err := NewMLX90640(&i, &Opts{RefreshRate: 3 * physic.Hertz}); err == nil {
		t.Fatal("3Hz is not supported")
	}
	// 2Hz is code 2; chess is set, the resolution bits are kept.
	j := i2ctest.Playback{Ops: initSequence(0x0901, 0x1901)}
	if _, err := NewMLX90640(&j, &Opts{RefreshRate: 2 * physic.Hertz}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
}

func subPage(page byte, v int16) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: 0x33, W: []byte{0x80, 0x00}, R: []byte{0x00, 0x08 | page}},
		{Addr: 0x33, W: []byte{0x04, 0x00}, R: ramDump(v)},
		{Addr: 0x33, W: []byte{0x80, 0x00, 0x00, 0x30}},
	}
}

func TestMLX90640_Sample(t *testing.T) {
	ops := initSequence(0x1901, 0x1A01)
	// No data yet.
	ops = append(ops, i2ctest.IO{Addr: 0x33, W: []byte{0x80, 0x00}, R: []byte{0x00, 0x00}})
	ops = append(ops, subPage(0, 2000)...)
	ops = append(ops, subPage(1, 3000)...)
	ops = append(ops, subPage(0, 4000)...)
	i := i2ctest.Playback{Ops: ops}
	d, err := NewMLX90640(&i, &Opts{Poll: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	// The first sample reads both subpages.
	m, err := d.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if v := m.At(0, 0); v != 20 {
		t.Fatalf("subpage 0 pixel: %v", v)
	}
	if v := m.At(0, 1); v != 30 {
		t.Fatalf("subpage 1 pixel: %v", v)
	}
	if s := Stats(m); s.Min != 20 || s.Max != 30 {
		t.Fatalf("first frame stats: %s", s)
	}
	// Then one subpage per sample.
	m, err = d.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if v := m.At(0, 0); v != 40 {
		t.Fatalf("subpage 0 pixel: %v", v)
	}
	if v := m.At(0, 1); v != 30 {
		t.Fatalf("subpage 1 pixel kept: %v", v)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMLX90640_Sample_stuckSubPage(t *testing.T) {
	ops := initSequence(0x1901, 0x1A01)
	for j := 0; j < 4; j++ {
		ops = append(ops, subPage(0, 100)...)
	}
	i := i2ctest.Playback{Ops: ops}
	d, err := NewMLX90640(&i, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Sample(); err == nil {
		t.Fatal("expected failure")
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMLX90640_Sample_calibrate(t *testing.T) {
	ops := initSequence(0x1901, 0x1A01)
	ops = append(ops,
		i2ctest.IO{Addr: 0x33, W: []byte{0x80, 0x00}, R: []byte{0x00, 0x08}},
		i2ctest.IO{Addr: 0x33, W: []byte{0x04, 0x00}, R: ramDump(0)},
		i2ctest.IO{Addr: 0x33, W: []byte{0x80, 0x00, 0x00, 0x30}},
	)
	i := i2ctest.Playback{Ops: ops}
	fail := errors.New("bad")
	d, err := NewMLX90640(&i, &Opts{Calibrate: func(*EEPROM, *RawFrame, []float64) error { return fail }})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Sample(); !errors.Is(err, fail) {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMLX90640_Settings(t *testing.T) {
	ops := append(initSequence(0x1901, 0x1A01),
		i2ctest.IO{Addr: 0x33, W: []byte{0x80, 0x0D}, R: []byte{0x1A, 0x01}})
	i := i2ctest.Playback{Ops: ops}
	d, err := NewMLX90640(&i, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := d.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Settings{RefreshRate: 8 * physic.Hertz, Chess: true, ADCBits: 18}, s); diff != "" {
		t.Fatalf("Settings() mismatch (-want +got):\n%s", diff)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestValidRefreshRate(t *testing.T) {
	if err := ValidRefreshRate(500 * physic.MilliHertz); err != nil {
		t.Fatal(err)
	}
	if err := ValidRefreshRate(10 * physic.Hertz); err == nil {
		t.Fatal("expected failure")
	}
}

func TestUncalibrated(t *testing.T) {
	f := RawFrame{SubPage: 1}
	f.RAM[1] = 0xFFFF // -1
	dst := make([]float64, Rows*Cols)
	dst[0] = 42
	if err := Uncalibrated(nil, &f, dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 42 || dst[1] != -0.01 {
		t.Fatalf("%v %v", dst[0], dst[1])
	}
	if err := Uncalibrated(nil, &f, dst[:10]); err == nil {
		t.Fatal("expected size failure")
	}
}

//

func initSequence(ctrl, want uint16) []i2ctest.IO {
	ee := make([]byte, 2*832)
	for i := 0; i < 832; i++ {
		binary.BigEndian.PutUint16(ee[2*i:], uint16(i))
	}
	return []i2ctest.IO{
		{Addr: 0x33, W: []byte{0x80, 0x0D}, R: []byte{byte(ctrl >> 8), byte(ctrl)}},
		{Addr: 0x33, W: []byte{0x80, 0x0D, byte(want >> 8), byte(want)}},
		{Addr: 0x33, W: []byte{0x24, 0x00}, R: ee},
	}
}

// ramDump returns a RAM content where every pixel reads v raw counts.
func ramDump(v int16) []byte {
	b := make([]byte, 2*832)
	for i := 0; i < 768; i++ {
		binary.BigEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}
