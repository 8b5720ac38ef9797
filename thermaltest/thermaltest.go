// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermaltest implements fake thermal sources.
package thermaltest

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/maruel/thermalcam/thermal"
)

// Fake is a thermal.Source producing slowly drifting warm and cold blobs over
// a room temperature background.
type Fake struct {
	// Period is the delay per frame. Defaults to 125ms, ~8Hz.
	Period time.Duration

	mu     sync.Mutex
	noise  *noise
	closed bool
}

// New returns a fake for thermal.MLX90640.
func New() *Fake {
	return &Fake{Period: 125 * time.Millisecond, noise: makeNoise()}
}

// Sample implements thermal.Source.
func (f *Fake) Sample() (*thermal.Matrix, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, thermal.ErrClosed
	}
	time.Sleep(f.Period)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noise.update()
	return thermal.NewMatrix(thermal.Rows, thermal.Cols, f.noise.render())
}

// Close implements thermal.Source.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Scripted is a thermal.Source returning the given matrices in order, then Err.
type Scripted struct {
	// Err is returned once the script is exhausted. Defaults to
	// thermal.ErrClosed.
	Err error

	mu     sync.Mutex
	frames []*thermal.Matrix
	closed bool
}

// NewScripted returns a Source replaying frames.
func NewScripted(frames ...*thermal.Matrix) *Scripted {
	return &Scripted{frames: frames}
}

// Sample implements thermal.Source.
func (s *Scripted) Sample() (*thermal.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, thermal.ErrClosed
	}
	if len(s.frames) == 0 {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, thermal.ErrClosed
	}
	m := s.frames[0]
	s.frames = s.frames[1:]
	return m, nil
}

// Close implements thermal.Source.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("thermaltest: already closed")
	}
	s.closed = true
	return nil
}

// Closed returns true once Close was called.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Uniform returns a Rows×Cols matrix where every value is v.
func Uniform(v float64) *thermal.Matrix {
	d := make([]float64, thermal.Rows*thermal.Cols)
	for i := range d {
		d[i] = v
	}
	m, _ := thermal.NewMatrix(thermal.Rows, thermal.Cols, d)
	return m
}

// Gradient returns a Rows×Cols matrix going linearly from lo at the left to
// hi at the right.
func Gradient(lo, hi float64) *thermal.Matrix {
	d := make([]float64, thermal.Rows*thermal.Cols)
	for y := 0; y < thermal.Rows; y++ {
		for x := 0; x < thermal.Cols; x++ {
			d[y*thermal.Cols+x] = lo + (hi-lo)*float64(x)/float64(thermal.Cols-1)
		}
	}
	m, _ := thermal.NewMatrix(thermal.Rows, thermal.Cols, d)
	return m
}

//

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	rand    *rand.Rand
	vectors []vector
}

func makeNoise() *noise {
	n := &noise{rand: rand.New(rand.NewSource(0))}
	n.vectors = make([]vector, 6)
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 40
		n.vectors[i].x = n.rand.NormFloat64()*6 + thermal.Cols/2
		n.vectors[i].y = n.rand.NormFloat64()*4 + thermal.Rows/2
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.5
		n.vectors[i].x += n.rand.NormFloat64() * 0.2
		n.vectors[i].y += n.rand.NormFloat64() * 0.2
	}
}

func (n *noise) render() []float64 {
	const ambient = 22.
	const dynamicRange = 15.
	out := make([]float64, thermal.Rows*thermal.Cols)
	for y := 0; y < thermal.Rows; y++ {
		fy := float64(y)
		for x := 0; x < thermal.Cols; x++ {
			fx := float64(x)
			value := ambient
			for _, vect := range n.vectors {
				distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy) + 1
				value += vect.intensity / distance
			}
			if value > ambient+dynamicRange {
				value = ambient + dynamicRange
			}
			if value < ambient-dynamicRange {
				value = ambient - dynamicRange
			}
			out[y*thermal.Cols+x] = value
		}
	}
	return out
}
