// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package display composes the camera and thermal feeds and presents them to
// a Surface.
package display

import (
	"errors"
	"fmt"
	"image"
)

// Overlay identifies a text element drawn over the presented frame.
type Overlay int

const (
	// OverlayMid is the temperature at the marked point in the center.
	OverlayMid Overlay = iota
	OverlayMax
	OverlayMin
	// OverlayThermalRate is the sampler rate.
	OverlayThermalRate
	// OverlayRate is the display rate.
	OverlayRate
	// NumOverlays is the number of Overlay values.
	NumOverlays
)

var overlayNames = [...]string{"mid", "max", "min", "thermal_rate", "rate"}

func (o Overlay) String() string {
	if o < 0 || o >= NumOverlays {
		return fmt.Sprintf("Overlay(%d)", int(o))
	}
	return overlayNames[o]
}

// Action is a user command received from the Surface.
type Action int

const (
	ActionVideo Action = iota
	ActionThermal
	ActionHybrid
	ActionLock
	ActionSnapshot
	ActionExit
)

// actionNames are the short names used on the wire, indexed by Action.
var actionNames = [...]string{"NV", "TV", "HV", "LK", "SNAP", "X"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction decodes the short name of an action. "!" is accepted as an
// alias for SNAP.
func ParseAction(s string) (Action, error) {
	if s == "!" {
		return ActionSnapshot, nil
	}
	for i, n := range actionNames {
		if n == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("display: unknown action %q", s)
}

// Surface is where frames are presented and where user actions come from.
type Surface interface {
	// Present shows img. img must not be modified afterward.
	Present(img image.Image) error
	SetOverlay(id Overlay, text string)
	ShowOverlay(id Overlay, visible bool)
	// Actions returns the channel of user actions.
	Actions() <-chan Action
}

// ErrExit is returned by Loop.Run when the user requested to quit.
var ErrExit = errors.New("display: exit requested")
