// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package video

import (
	"image"
	"image/color"
	"sync"
)

// Pattern is a Source generating scrolling color bars.
type Pattern struct {
	mu     sync.Mutex
	r      image.Rectangle
	frame  int
	closed bool
}

// NewPattern returns a synthetic Source of w×h.
func NewPattern(w, h int) *Pattern {
	return &Pattern{r: image.Rect(0, 0, w, h)}
}

var bars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// Read implements Source. Each call scrolls the bars by one pixel.
func (p *Pattern) Read() (*image.RGBA, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errClosed
	}
	img := image.NewRGBA(p.r)
	w := p.r.Dx()
	width := (w + len(bars) - 1) / len(bars)
	for y := 0; y < p.r.Dy(); y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, bars[((x+p.frame)%w)/width])
		}
	}
	p.frame++
	return img, nil
}

// Bounds implements Source.
func (p *Pattern) Bounds() image.Rectangle {
	return p.r
}

// Close implements Source.
func (p *Pattern) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
