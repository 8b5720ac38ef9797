// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal reads temperature frames from a thermal sensor.
//
// A frame is a Matrix of temperatures in °C. The MLX90640 is the supported
// device; its per-pixel calibration is delegated to a CalibrateFunc.
//
// References:
// MLX90640 datasheet:
//   https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90640
//   p. 9-10  Memory map; RAM at 0x0400, EEPROM at 0x2400.
//   p. 13-14 Status register 0x8000 and Control register 1 0x800D.
//   p. 17    Chess reading pattern.
package thermal

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"gonum.org/v1/gonum/mat"
)

// Geometry of the MLX90640.
const (
	Rows = 24
	Cols = 32
)

// Source produces temperature matrices. This interface can be mocked.
type Source interface {
	io.Closer

	// Sample blocks until the next frame is available. An error is fatal; the
	// device should not be used afterward.
	Sample() (*Matrix, error)
}

// Matrix is an immutable 2D array of temperatures in °C.
type Matrix struct {
	d *mat.Dense
}

// NewMatrix returns a Matrix of rows×cols from row-major data. data is
// copied.
func NewMatrix(rows, cols int, data []float64) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid matrix size %dx%d", cols, rows)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("expected %d values, got %d", rows*cols, len(data))
	}
	c := make([]float64, len(data))
	copy(c, data)
	return &Matrix{d: mat.NewDense(rows, cols, c)}, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	r, _ := m.d.Dims()
	return r
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	_, c := m.d.Dims()
	return c
}

// At returns the temperature at row, col.
func (m *Matrix) At(row, col int) float64 {
	return m.d.At(row, col)
}

func (m *Matrix) Min() float64 {
	return mat.Min(m.d)
}

func (m *Matrix) Max() float64 {
	return mat.Max(m.d)
}

// Values returns a row-major copy of the temperatures.
func (m *Matrix) Values() []float64 {
	raw := m.d.RawMatrix()
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for y := 0; y < raw.Rows; y++ {
		out = append(out, raw.Data[y*raw.Stride:y*raw.Stride+raw.Cols]...)
	}
	return out
}

// Gray16 returns the temperatures as centi-Kelvin stored in an image.Gray16.
// Values below 0°K or above 655.35°K are clamped.
func (m *Matrix) Gray16() *image.Gray16 {
	rows, cols := m.Rows(), m.Cols()
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := (m.At(y, x) + 273.15) * 100
			if !(v > 0) {
				v = 0
			} else if v > 65535 {
				v = 65535
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v + 0.5)})
		}
	}
	return img
}

// Statistics summarizes one Matrix.
type Statistics struct {
	Min float64
	Max float64
	// Mid is the value at row Rows/2, col Cols/2. For the 32x24 sensor it is
	// [12, 16], an interior pixel and not the geometric center.
	Mid float64
}

func (s Statistics) String() string {
	return fmt.Sprintf("min %.1f°C max %.1f°C mid %.1f°C", s.Min, s.Max, s.Mid)
}

// Stats computes the Statistics of m.
func Stats(m *Matrix) Statistics {
	return Statistics{Min: m.Min(), Max: m.Max(), Mid: m.At(m.Rows()/2, m.Cols()/2)}
}

// ErrClosed is returned by a Source used after Close.
var ErrClosed = errors.New("thermal: device closed")
