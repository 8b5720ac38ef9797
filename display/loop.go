// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/maruel/thermalcam/colormap"
	"github.com/maruel/thermalcam/handoff"
	"github.com/maruel/thermalcam/mode"
	"github.com/maruel/thermalcam/video"

	"periph.io/x/periph/conn/physic"
)

// Options configures a Loop.
type Options struct {
	// Interval is the minimum delay between the end of a tick and the start
	// of the next one. Default: 10ms.
	Interval time.Duration
	// ThermalSize is the size of the thermal image in ThermalOnly mode.
	// Default: 320x240.
	ThermalSize image.Point
	// OutputSize is the size of the presented frames. Default: 720x480.
	OutputSize image.Point
	// SnapshotDir is where ActionSnapshot writes. Default: current directory.
	SnapshotDir string
}

// SnapshotLayout is the time layout of snapshot file names.
const SnapshotLayout = "frame-02-01-2006-15-04-05.jpg"

// Loop is the display loop. All its methods must be called from the
// goroutine owning the Surface.
type Loop struct {
	surface Surface
	vid     video.Source
	slot    *handoff.Slot
	ctrl    *mode.Controller
	opts    Options
	now     func() time.Time

	last    handoff.Pair
	hasLast bool
	frame   *image.RGBA
	rate    physic.Frequency
}

// NewLoop returns a Loop presenting to s.
func NewLoop(s Surface, vid video.Source, slot *handoff.Slot, ctrl *mode.Controller, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Millisecond
	}
	if opts.ThermalSize == (image.Point{}) {
		opts.ThermalSize = image.Pt(320, 240)
	}
	if opts.OutputSize == (image.Point{}) {
		opts.OutputSize = image.Pt(720, 480)
	}
	return &Loop{surface: s, vid: vid, slot: slot, ctrl: ctrl, opts: opts, now: time.Now}
}

// Run ticks until done is closed, the slot is closed or the user exits.
//
// User actions are handled between ticks. It returns ErrExit on
// ActionExit.
func (l *Loop) Run(done <-chan struct{}) error {
	t := time.NewTimer(0)
	defer t.Stop()
	actions := l.surface.Actions()
	for {
		select {
		case <-done:
			return nil
		case a := <-actions:
			if err := l.Handle(a); err != nil {
				if err == ErrExit {
					return err
				}
				log.Printf("display: %s: %v", a, err)
			}
		case <-t.C:
			if err := l.Tick(); err != nil {
				if errors.Is(err, handoff.ErrClosed) {
					return nil
				}
				return err
			}
			t.Reset(l.opts.Interval)
		}
	}
}

// Tick builds and presents one frame according to the current mode.
func (l *Loop) Tick() error {
	start := l.now()
	var out *image.RGBA
	switch l.ctrl.Display() {
	case mode.VideoOnly:
		v, err := l.readVideo()
		if err != nil {
			return err
		}
		out = v
	case mode.ThermalOnly:
		t, err := l.consume()
		if err != nil {
			return err
		}
		if t == nil {
			out = image.NewRGBA(image.Rectangle{Max: l.opts.ThermalSize})
		} else {
			out = colormap.Resize(t, l.opts.ThermalSize.X, l.opts.ThermalSize.Y)
		}
	default:
		v, err := l.readVideo()
		if err != nil {
			return err
		}
		t, err := l.consume()
		if err != nil {
			return err
		}
		out = v
		if t != nil {
			b := v.Bounds()
			if out, err = Composite(v, colormap.Resize(t, b.Dx(), b.Dy())); err != nil {
				return err
			}
		}
	}
	l.frame = colormap.Resize(out, l.opts.OutputSize.X, l.opts.OutputSize.Y)
	l.syncOverlays()
	if err := l.surface.Present(l.frame); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	l.rate = handoff.RateOf(l.now().Sub(start))
	return nil
}

// Rate is the display rate measured on the last tick.
func (l *Loop) Rate() physic.Frequency {
	return l.rate
}

// Handle applies a user action.
func (l *Loop) Handle(a Action) error {
	switch a {
	case ActionVideo:
		l.ctrl.SelectVideo()
	case ActionThermal:
		l.ctrl.SelectThermal()
	case ActionHybrid:
		l.ctrl.SelectHybrid()
	case ActionLock:
		l.ctrl.TogglePolicy()
	case ActionSnapshot:
		p, err := l.Snapshot(l.opts.SnapshotDir)
		if err != nil {
			return err
		}
		log.Printf("display: saved %s", p)
		return nil
	case ActionExit:
		return ErrExit
	default:
		return fmt.Errorf("display: unknown action %d", int(a))
	}
	log.Printf("display: %s: %s", a, l.ctrl.Snapshot())
	l.syncOverlays()
	return nil
}

// Snapshot writes the last presented frame as a JPEG in dir and returns its
// path.
func (l *Loop) Snapshot(dir string) (string, error) {
	if l.frame == nil {
		return "", errors.New("display: no frame to save yet")
	}
	p := filepath.Join(dir, l.now().Format(SnapshotLayout))
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(f, l.frame, &jpeg.Options{Quality: 95}); err != nil {
		_ = f.Close()
		return "", err
	}
	return p, f.Close()
}

// Private details.

func (l *Loop) readVideo() (*image.RGBA, error) {
	v, err := l.vid.Read()
	if err != nil {
		return nil, fmt.Errorf("video: %w", err)
	}
	return v, nil
}

// consume returns the newest thermal image, or the cached one when nothing
// new was published. It returns nil when no pair was ever received.
func (l *Loop) consume() (*image.RGBA, error) {
	p, ok, err := l.slot.Consume()
	if err != nil {
		return nil, err
	}
	if ok {
		l.last = p
		l.hasLast = true
	}
	if !l.hasLast {
		return nil, nil
	}
	return l.last.Image, nil
}

func (l *Loop) syncOverlays() {
	th := l.ctrl.ThermalEnabled()
	for _, id := range []Overlay{OverlayMid, OverlayMax, OverlayMin, OverlayThermalRate} {
		l.surface.ShowOverlay(id, th)
	}
	l.surface.ShowOverlay(OverlayRate, l.ctrl.VideoEnabled())
	if l.hasLast {
		s := l.last.Stats
		l.surface.SetOverlay(OverlayMid, fmt.Sprintf("%.1f", s.Mid))
		l.surface.SetOverlay(OverlayMax, fmt.Sprintf("Max Temp: %.1f", s.Max))
		l.surface.SetOverlay(OverlayMin, fmt.Sprintf("Min Temp: %.1f", s.Min))
		l.surface.SetOverlay(OverlayThermalRate, fps(l.last.Rate))
	}
	l.surface.SetOverlay(OverlayRate, fps(l.rate))
}

func fps(f physic.Frequency) string {
	return fmt.Sprintf(" %.1f FPS", float64(f)/float64(physic.Hertz))
}
