// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sampler runs the thermal sampling loop.
package sampler

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/maruel/thermalcam/colormap"
	"github.com/maruel/thermalcam/handoff"
	"github.com/maruel/thermalcam/mode"
	"github.com/maruel/thermalcam/thermal"

	"periph.io/x/periph/conn/physic"
)

// StatsSink receives the statistics of every sampled matrix. Add must not
// block.
type StatsSink interface {
	Add(s thermal.Statistics)
}

// Option configures a Loop.
type Option func(l *Loop)

// WithSink forwards the statistics of every frame to s.
func WithSink(s StatsSink) Option {
	return func(l *Loop) {
		l.sink = s
	}
}

// Loop samples a thermal.Source, colorizes each matrix with the scale
// currently selected and publishes it to the slot.
type Loop struct {
	src    thermal.Source
	ctrl   *mode.Controller
	scales colormap.Scales
	slot   *handoff.Slot
	sink   StatsSink
	rate   atomic.Int64
}

// New returns a Loop. The Loop owns src and closes it when Run returns.
func New(src thermal.Source, ctrl *mode.Controller, scales colormap.Scales, slot *handoff.Slot, opts ...Option) *Loop {
	l := &Loop{src: src, ctrl: ctrl, scales: scales, slot: slot}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Rate is the measured iteration rate.
func (l *Loop) Rate() physic.Frequency {
	return physic.Frequency(l.rate.Load())
}

// Run samples until done is closed, the slot is closed or the source fails.
//
// A source failure is returned; the other conditions return nil.
func (l *Loop) Run(done <-chan struct{}) (err error) {
	defer func() {
		if err2 := l.src.Close(); err == nil && err2 != nil {
			err = err2
		}
	}()
	for {
		select {
		case <-done:
			return nil
		default:
		}
		start := time.Now()
		if err := l.once(); err != nil {
			if errors.Is(err, handoff.ErrClosed) || errors.Is(err, thermal.ErrClosed) {
				return nil
			}
			return err
		}
		l.rate.Store(int64(handoff.RateOf(time.Since(start))))
	}
}

func (l *Loop) once() error {
	m, err := l.src.Sample()
	if err != nil {
		if errors.Is(err, thermal.ErrClosed) {
			return err
		}
		return fmt.Errorf("sample: %w", err)
	}
	stats := thermal.Stats(m)
	if l.sink != nil {
		l.sink.Add(stats)
	}
	img := colormap.Mirror(colormap.Render(m, l.scales.At(l.ctrl.Scale())))
	if err := l.slot.Publish(handoff.Pair{Image: img, Stats: stats, Rate: l.Rate()}); err != nil {
		return err
	}
	log.Printf("sampler: %s", stats)
	return nil
}
