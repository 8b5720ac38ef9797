// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package video

import (
	"fmt"
	"image"
	"image/draw"
)

// YUYV converts a packed YUYV 4:2:2 buffer of w×h pixels to RGBA.
func YUYV(frame []byte, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 || w&1 != 0 {
		return nil, fmt.Errorf("video: invalid YUYV geometry %dx%d", w, h)
	}
	if len(frame) != 2*w*h {
		return nil, fmt.Errorf("video: wrong frame length (exp: %d, read %d)", 2*w*h, len(frame))
	}
	r := image.Rect(0, 0, w, h)
	yuyv := image.NewYCbCr(r, image.YCbCrSubsampleRatio422)
	for i := range yuyv.Cb {
		ii := i * 4
		yuyv.Y[i*2] = frame[ii]
		yuyv.Y[i*2+1] = frame[ii+2]
		yuyv.Cb[i] = frame[ii+1]
		yuyv.Cr[i] = frame[ii+3]
	}
	out := image.NewRGBA(r)
	draw.Draw(out, r, yuyv, image.Point{}, draw.Src)
	return out, nil
}
