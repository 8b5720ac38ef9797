// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mode holds the user selected display state.
//
// Each field is independently atomic. Readers may observe a mode and enabled
// flags from two different selections for one tick; no cross-field
// consistency is provided.
package mode

import (
	"fmt"
	"sync/atomic"

	"github.com/maruel/thermalcam/handoff"
)

// Display is what is shown to the user.
type Display int32

const (
	VideoOnly Display = iota
	ThermalOnly
	Hybrid
)

func (d Display) String() string {
	switch d {
	case VideoOnly:
		return "VideoOnly"
	case ThermalOnly:
		return "ThermalOnly"
	case Hybrid:
		return "Hybrid"
	default:
		return "Display(?)"
	}
}

// PolicyHolder owns the synchronization policy. It is implemented by
// *handoff.Slot.
type PolicyHolder interface {
	Policy() handoff.Policy
	SetPolicy(handoff.Policy)
}

// Controller is the mode state machine. It is safe for concurrent use.
type Controller struct {
	display atomic.Int32
	scale   atomic.Int32
	thermal atomic.Bool
	video   atomic.Bool
	scales  int32
	policy  PolicyHolder
}

// New returns a Controller in Hybrid mode with both sources enabled, cycling
// through scales color scales.
func New(scales int, policy PolicyHolder) *Controller {
	if scales < 1 {
		scales = 1
	}
	c := &Controller{scales: int32(scales), policy: policy}
	c.display.Store(int32(Hybrid))
	c.thermal.Store(true)
	c.video.Store(true)
	return c
}

// SelectVideo shows only the camera feed.
func (c *Controller) SelectVideo() {
	c.thermal.Store(false)
	c.video.Store(true)
	c.display.Store(int32(VideoOnly))
}

// SelectThermal shows only the thermal image. When already selected, it
// cycles to the next color scale instead.
func (c *Controller) SelectThermal() {
	if c.Display() == ThermalOnly {
		c.ScaleUp()
		return
	}
	c.video.Store(false)
	c.thermal.Store(true)
	c.display.Store(int32(ThermalOnly))
}

// SelectHybrid overlays the thermal image on the camera feed. When already
// selected, it cycles to the next color scale instead.
func (c *Controller) SelectHybrid() {
	if c.Display() == Hybrid {
		c.ScaleUp()
		return
	}
	c.video.Store(true)
	c.thermal.Store(true)
	c.display.Store(int32(Hybrid))
}

// TogglePolicy flips between Locked and Latest and returns the new policy.
func (c *Controller) TogglePolicy() handoff.Policy {
	p := handoff.Locked
	if c.policy.Policy() == handoff.Locked {
		p = handoff.Latest
	}
	c.policy.SetPolicy(p)
	return p
}

// ScaleUp selects the next color scale, wrapping around.
func (c *Controller) ScaleUp() {
	c.step(1)
}

// ScaleDown selects the previous color scale, wrapping around.
func (c *Controller) ScaleDown() {
	c.step(-1)
}

func (c *Controller) Display() Display {
	return Display(c.display.Load())
}

// Scale is the index of the current color scale.
func (c *Controller) Scale() int {
	return int(c.scale.Load())
}

func (c *Controller) Policy() handoff.Policy {
	return c.policy.Policy()
}

func (c *Controller) ThermalEnabled() bool {
	return c.thermal.Load()
}

func (c *Controller) VideoEnabled() bool {
	return c.video.Load()
}

// State is a point in time copy of a Controller.
type State struct {
	Display Display
	Scale   int
	Policy  handoff.Policy
	Thermal bool
	Video   bool
}

func (s State) String() string {
	return fmt.Sprintf("%s scale=%d policy=%s thermal=%t video=%t", s.Display, s.Scale, s.Policy, s.Thermal, s.Video)
}

// Snapshot returns the current State. Fields are read one at a time.
func (c *Controller) Snapshot() State {
	return State{
		Display: c.Display(),
		Scale:   c.Scale(),
		Policy:  c.Policy(),
		Thermal: c.ThermalEnabled(),
		Video:   c.VideoEnabled(),
	}
}

func (c *Controller) step(d int32) {
	for {
		old := c.scale.Load()
		n := ((old+d)%c.scales + c.scales) % c.scales
		if c.scale.CompareAndSwap(old, n) {
			return
		}
	}
}
