// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/thermalcam/handoff"
	"github.com/maruel/thermalcam/mode"
	"github.com/maruel/thermalcam/thermal"

	"periph.io/x/periph/conn/physic"
)

type fakeSurface struct {
	mu      sync.Mutex
	text    map[Overlay]string
	visible map[Overlay]bool
	frames  []image.Image
	actions chan Action
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		text:    map[Overlay]string{},
		visible: map[Overlay]bool{},
		actions: make(chan Action, 10),
	}
}

func (f *fakeSurface) Present(img image.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, img)
	return nil
}

func (f *fakeSurface) SetOverlay(id Overlay, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[id] = text
}

func (f *fakeSurface) ShowOverlay(id Overlay, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[id] = visible
}

func (f *fakeSurface) Actions() <-chan Action {
	return f.actions
}

func (f *fakeSurface) shown() map[Overlay]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[Overlay]bool{}
	for k, v := range f.visible {
		out[k] = v
	}
	return out
}

// uniformVideo is a video.Source returning a single color.
type uniformVideo struct {
	c   color.RGBA
	r   image.Rectangle
	err error
}

func (u *uniformVideo) Read() (*image.RGBA, error) {
	if u.err != nil {
		return nil, u.err
	}
	img := image.NewRGBA(u.r)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = u.c.R, u.c.G, u.c.B, u.c.A
	}
	return img, nil
}

func (u *uniformVideo) Bounds() image.Rectangle {
	return u.r
}

func (u *uniformVideo) Close() error {
	return nil
}

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func setup(p handoff.Policy) (*Loop, *fakeSurface, *handoff.Slot, *mode.Controller) {
	s := newFakeSurface()
	slot := handoff.New(p)
	ctrl := mode.New(4, slot)
	vid := &uniformVideo{c: color.RGBA{100, 200, 0, 255}, r: image.Rect(0, 0, 64, 48)}
	l := NewLoop(s, vid, slot, ctrl, Options{OutputSize: image.Pt(64, 48), ThermalSize: image.Pt(32, 24)})
	return l, s, slot, ctrl
}

var allThermal = []Overlay{OverlayMid, OverlayMax, OverlayMin, OverlayThermalRate}

func TestOverlays_videoToHybrid(t *testing.T) {
	l, s, _, _ := setup(handoff.Latest)
	if err := l.Handle(ActionVideo); err != nil {
		t.Fatal(err)
	}
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	want := map[Overlay]bool{OverlayRate: true}
	for _, id := range allThermal {
		want[id] = false
	}
	if diff := cmp.Diff(want, s.shown()); diff != "" {
		t.Fatalf("VideoOnly overlays mismatch (-want +got):\n%s", diff)
	}

	if err := l.Handle(ActionHybrid); err != nil {
		t.Fatal(err)
	}
	for _, id := range allThermal {
		want[id] = true
	}
	if diff := cmp.Diff(want, s.shown()); diff != "" {
		t.Fatalf("Hybrid overlays mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlays_hybridToThermal(t *testing.T) {
	l, s, _, ctrl := setup(handoff.Latest)
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	if !s.shown()[OverlayRate] {
		t.Fatal("rate should be visible in Hybrid")
	}
	if err := l.Handle(ActionThermal); err != nil {
		t.Fatal(err)
	}
	if ctrl.Display() != mode.ThermalOnly {
		t.Fatal(ctrl.Display())
	}
	got := s.shown()
	if got[OverlayRate] {
		t.Fatal("rate should be hidden in ThermalOnly")
	}
	for _, id := range allThermal {
		if !got[id] {
			t.Fatalf("%s should be visible", id)
		}
	}
}

func TestTick_overlayText(t *testing.T) {
	l, s, slot, _ := setup(handoff.Latest)
	p := handoff.Pair{
		Image: uniformImage(32, 24, color.RGBA{0, 0, 0, 255}),
		Stats: thermal.Statistics{Min: 18, Max: 34, Mid: 25},
		Rate:  8 * physic.Hertz,
	}
	if err := slot.Publish(p); err != nil {
		t.Fatal(err)
	}
	fixed := time.Now()
	l.now = func() time.Time { return fixed }
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	want := map[Overlay]string{
		OverlayMid:         "25.0",
		OverlayMax:         "Max Temp: 34.0",
		OverlayMin:         "Min Temp: 18.0",
		OverlayThermalRate: " 8.0 FPS",
		OverlayRate:        " 0.0 FPS",
	}
	if diff := cmp.Diff(want, s.text); diff != "" {
		t.Fatalf("overlay text mismatch (-want +got):\n%s", diff)
	}
}

func TestTick_hybridComposite(t *testing.T) {
	l, s, slot, _ := setup(handoff.Latest)
	if err := slot.Publish(handoff.Pair{Image: uniformImage(32, 24, color.RGBA{200, 0, 100, 255})}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		// The second tick reuses the cached pair.
		if err := l.Tick(); err != nil {
			t.Fatal(err)
		}
		img := s.frames[i].(*image.RGBA)
		if img.Bounds() != image.Rect(0, 0, 64, 48) {
			t.Fatal(img.Bounds())
		}
		if c := img.RGBAAt(10, 10); c != (color.RGBA{140, 80, 50, 255}) {
			t.Fatalf("#%d: %v", i, c)
		}
	}
}

func TestTick_thermalOnlyBlank(t *testing.T) {
	l, s, _, ctrl := setup(handoff.Latest)
	ctrl.SelectThermal()
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	img := s.frames[0].(*image.RGBA)
	if img.Bounds() != image.Rect(0, 0, 64, 48) {
		t.Fatal(img.Bounds())
	}
	if c := img.RGBAAt(5, 5); c != (color.RGBA{}) {
		t.Fatal(c)
	}
}

func TestTick_videoError(t *testing.T) {
	l, _, _, _ := setup(handoff.Latest)
	fail := errors.New("unplugged")
	l.vid = &uniformVideo{err: fail}
	if err := l.Tick(); !errors.Is(err, fail) {
		t.Fatal(err)
	}
}

func TestTick_lockedWaitsForThermal(t *testing.T) {
	l, s, slot, ctrl := setup(handoff.Locked)
	ctrl.SelectThermal()
	done := make(chan error)
	go func() {
		done <- l.Tick()
	}()
	select {
	case err := <-done:
		t.Fatalf("Tick() didn't block: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if err := slot.Publish(handoff.Pair{Image: uniformImage(32, 24, color.RGBA{255, 255, 255, 255})}); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if c := s.frames[0].(*image.RGBA).RGBAAt(0, 0); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatal(c)
	}
}

func TestSnapshot(t *testing.T) {
	l, _, _, _ := setup(handoff.Latest)
	dir := t.TempDir()
	if _, err := l.Snapshot(dir); err == nil {
		t.Fatal("expected failure without a frame")
	}
	l.now = func() time.Time {
		return time.Date(2026, 10, 17, 13, 4, 5, 0, time.UTC)
	}
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	p, err := l.Snapshot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "frame-17-10-2026-13-04-05.jpg"); p != want {
		t.Fatalf("%q != %q", want, p)
	}
	f, err := os.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 48) {
		t.Fatal(img.Bounds())
	}
}

func TestRun_exit(t *testing.T) {
	l, s, _, ctrl := setup(handoff.Latest)
	s.actions <- ActionVideo
	s.actions <- ActionLock
	s.actions <- ActionExit
	if err := l.Run(nil); err != ErrExit {
		t.Fatal(err)
	}
	if ctrl.Display() != mode.VideoOnly || ctrl.Policy() != handoff.Locked {
		t.Fatal(ctrl.Snapshot())
	}
}

func TestRun_slotClosed(t *testing.T) {
	l, _, slot, _ := setup(handoff.Locked)
	if err := slot.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Run(nil); err != nil {
		t.Fatal(err)
	}
}

func TestRun_done(t *testing.T) {
	l, _, _, _ := setup(handoff.Latest)
	done := make(chan struct{})
	close(done)
	if err := l.Run(done); err != nil {
		t.Fatal(err)
	}
}

func TestComposite(t *testing.T) {
	data := []struct {
		v, th, want color.RGBA
	}{
		{color.RGBA{100, 200, 0, 255}, color.RGBA{200, 0, 100, 255}, color.RGBA{140, 80, 50, 255}},
		{color.RGBA{255, 255, 255, 255}, color.RGBA{255, 255, 255, 255}, color.RGBA{230, 230, 230, 255}},
		{color.RGBA{1, 0, 0, 0}, color.RGBA{1, 0, 0, 0}, color.RGBA{1, 0, 0, 255}},
	}
	for i, line := range data {
		out, err := Composite(uniformImage(2, 2, line.v), uniformImage(2, 2, line.th))
		if err != nil {
			t.Fatal(err)
		}
		if got := out.RGBAAt(1, 1); got != line.want {
			t.Fatalf("#%d: %v != %v", i, line.want, got)
		}
	}
	if _, err := Composite(uniformImage(2, 2, color.RGBA{}), uniformImage(3, 2, color.RGBA{})); err == nil {
		t.Fatal("expected size mismatch")
	}
}

func TestParseAction(t *testing.T) {
	data := []struct {
		in   string
		want Action
	}{
		{"NV", ActionVideo},
		{"TV", ActionThermal},
		{"HV", ActionHybrid},
		{"LK", ActionLock},
		{"SNAP", ActionSnapshot},
		{"!", ActionSnapshot},
		{"X", ActionExit},
	}
	for _, line := range data {
		got, err := ParseAction(line.in)
		if err != nil {
			t.Fatal(err)
		}
		if got != line.want {
			t.Fatalf("%q: %s != %s", line.in, line.want, got)
		}
	}
	if _, err := ParseAction("nv"); err == nil {
		t.Fatal("expected failure")
	}
	if s := Action(42).String(); s != "Action(42)" {
		t.Fatal(s)
	}
	if s := OverlayThermalRate.String(); s != "thermal_rate" {
		t.Fatal(s)
	}
}
