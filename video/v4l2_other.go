// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux
// +build !linux

package video

import (
	"errors"
	"image"
)

// V4L2 is only supported on linux.
type V4L2 struct{}

// OpenV4L2 always fails on this OS.
func OpenV4L2(device string, w, h int) (*V4L2, error) {
	return nil, errors.New("video: V4L2 is only supported on linux")
}

func (v *V4L2) Read() (*image.RGBA, error) {
	return nil, errClosed
}

func (v *V4L2) Bounds() image.Rectangle {
	return image.Rectangle{}
}

func (v *V4L2) Close() error {
	return nil
}
