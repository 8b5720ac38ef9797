// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package colormap converts temperature matrices into color images.
package colormap

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/gift"
	"github.com/maruel/thermalcam/thermal"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Scale is a named 256 entries color lookup table.
type Scale struct {
	name string
	lut  [256]color.RGBA
}

func (s *Scale) String() string {
	return s.name
}

// Name returns the name the scale was built from.
func (s *Scale) Name() string {
	return s.name
}

// At returns the color for v in [0, 1]. The range is split in len(lut)
// equal bins, 1 falls in the last one. Out of range values are clamped, NaN
// maps to the lowest color.
func (s *Scale) At(v float64) color.RGBA {
	if !(v > 0) {
		return s.lut[0]
	}
	idx := int(v * float64(len(s.lut)))
	if idx > len(s.lut)-1 {
		idx = len(s.lut) - 1
	}
	return s.lut[idx]
}

// Mid returns the color at 0.5.
func (s *Scale) Mid() color.RGBA {
	return s.At(0.5)
}

// Named returns the Scale for name. A "_r" suffix reverses the scale.
//
// Supported base names are jet, seismic, gray, Greys, blackbody and kindlmann.
func Named(name string) (*Scale, error) {
	base := strings.TrimSuffix(name, "_r")
	f := builders[base]
	if f == nil {
		return nil, fmt.Errorf("colormap: unknown scale %q", name)
	}
	colors, err := f()
	if err != nil {
		return nil, fmt.Errorf("colormap: %s: %w", name, err)
	}
	if len(colors) != 256 {
		return nil, fmt.Errorf("colormap: %s: got %d colors", name, len(colors))
	}
	s := &Scale{name: name}
	for i, c := range colors {
		s.lut[i] = color.RGBAModel.Convert(c).(color.RGBA)
		s.lut[i].A = 255
	}
	if base != name {
		for i, j := 0, 255; i < j; i, j = i+1, j-1 {
			s.lut[i], s.lut[j] = s.lut[j], s.lut[i]
		}
	}
	return s, nil
}

// Scales is the ordered list the user cycles through.
type Scales []*Scale

// Default is the list of scale names used when none is configured.
var Default = []string{"jet_r", "gray_r", "seismic_r", "Greys_r"}

// NewScales builds the Scales for names.
func NewScales(names ...string) (Scales, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("colormap: no scale")
	}
	out := make(Scales, 0, len(names))
	for _, n := range names {
		s, err := Named(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// At returns the scale at index i, wrapping around.
func (s Scales) At(i int) *Scale {
	i %= len(s)
	if i < 0 {
		i += len(s)
	}
	return s[i]
}

// Names returns the scale names in order.
func (s Scales) Names() []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[i].name
	}
	return out
}

// Render normalizes m with its own minimum and maximum and maps each value
// through s. The output has the same geometry as m, one pixel per element.
//
// When all values are equal, the image is uniformly s.Mid().
func Render(m *thermal.Matrix, s *Scale) *image.RGBA {
	rows, cols := m.Rows(), m.Cols()
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	min, max := m.Min(), m.Max()
	delta := max - min
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var c color.RGBA
			if delta == 0 || math.IsNaN(delta) {
				c = s.Mid()
			} else {
				c = s.At((m.At(y, x) - min) / delta)
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Mirror returns img flipped horizontally.
func Mirror(img image.Image) *image.RGBA {
	return apply(img, gift.FlipHorizontal())
}

// Resize returns img scaled to w×h with linear resampling.
func Resize(img image.Image, w, h int) *image.RGBA {
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		if rgba, ok := img.(*image.RGBA); ok {
			return rgba
		}
	}
	return apply(img, gift.Resize(w, h, gift.LinearResampling))
}

// Private details.

func apply(img image.Image, f gift.Filter) *image.RGBA {
	g := gift.New(f)
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

var builders = map[string]func() ([]color.Color, error){
	"jet": func() ([]color.Color, error) {
		return palette.Rainbow(256, palette.Blue, palette.Red, 1, 1, 1).Colors(), nil
	},
	"seismic": func() ([]color.Color, error) {
		return sample(moreland.SmoothBlueRed())
	},
	"gray": grays,
	"Greys": func() ([]color.Color, error) {
		c, err := grays()
		if err != nil {
			return nil, err
		}
		for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
			c[i], c[j] = c[j], c[i]
		}
		return c, nil
	},
	"blackbody": func() ([]color.Color, error) {
		return sample(moreland.BlackBody())
	},
	"kindlmann": func() ([]color.Color, error) {
		return sample(moreland.Kindlmann())
	},
}

// grays returns a black to white ramp. Luminance control points must be in
// increasing order.
func grays() ([]color.Color, error) {
	cm, err := moreland.NewLuminance([]color.Color{color.Black, color.White})
	if err != nil {
		return nil, err
	}
	return sample(cm)
}

func sample(cm palette.ColorMap) ([]color.Color, error) {
	cm.SetMax(1)
	cm.SetMin(0)
	out := make([]color.Color, 256)
	for i := range out {
		c, err := cm.At(float64(i) / 255)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
