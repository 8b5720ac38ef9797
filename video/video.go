// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package video captures color frames from a camera.
package video

import (
	"errors"
	"image"
	"io"
)

// Source produces camera frames. This interface can be mocked.
type Source interface {
	io.Closer

	// Read blocks until the next frame is available. The returned image is
	// owned by the caller.
	Read() (*image.RGBA, error)
	// Bounds is the frame geometry.
	Bounds() image.Rectangle
}

var errClosed = errors.New("video: closed")
