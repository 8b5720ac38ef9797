// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package display

import (
	"fmt"
	"image"
	"math"
)

// Blending weights of Composite. They sum to 0.9.
const (
	VideoWeight   = 0.4
	ThermalWeight = 0.5
)

// Composite blends two images of the same geometry, channel by channel:
// VideoWeight*video + ThermalWeight*thermal, rounded and clamped. The result
// is opaque.
func Composite(video, thermal *image.RGBA) (*image.RGBA, error) {
	vb, tb := video.Bounds(), thermal.Bounds()
	if vb.Size() != tb.Size() {
		return nil, fmt.Errorf("display: composite size mismatch %s vs %s", vb.Size(), tb.Size())
	}
	w, h := vb.Dx(), vb.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		vi := video.PixOffset(vb.Min.X, vb.Min.Y+y)
		ti := thermal.PixOffset(tb.Min.X, tb.Min.Y+y)
		oi := out.PixOffset(0, y)
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				out.Pix[oi+c] = blend(video.Pix[vi+c], thermal.Pix[ti+c])
			}
			out.Pix[oi+3] = 255
			vi += 4
			ti += 4
			oi += 4
		}
	}
	return out, nil
}

func blend(v, t uint8) uint8 {
	r := math.Round(VideoWeight*float64(v) + ThermalWeight*float64(t))
	if r > 255 {
		return 255
	}
	return uint8(r)
}
