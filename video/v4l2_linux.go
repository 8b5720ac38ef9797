// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package video

import (
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/blackjack/webcam"
)

const pixFmtYUYV webcam.PixelFormat = 0x56595559

// V4L2 is a Source reading a Video4Linux2 device in YUYV 4:2:2.
type V4L2 struct {
	mu      sync.Mutex
	cam     *webcam.Webcam
	r       image.Rectangle
	timeout uint32
}

// OpenV4L2 opens device and starts streaming at w×h or the closest size the
// driver accepts.
func OpenV4L2(device string, w, h int) (*V4L2, error) {
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, fmt.Errorf("video: %s: %w", device, err)
	}
	formats := cam.GetSupportedFormats()
	if _, ok := formats[pixFmtYUYV]; !ok {
		_ = cam.Close()
		return nil, fmt.Errorf("video: %s doesn't support YUYV; supported: %v", device, formats)
	}
	f, gw, gh, err := cam.SetImageFormat(pixFmtYUYV, uint32(w), uint32(h))
	if err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("video: %s: %w", device, err)
	}
	if f != pixFmtYUYV {
		_ = cam.Close()
		return nil, fmt.Errorf("video: %s: got format %s", device, formats[f])
	}
	log.Printf("video: %s %s %dx%d", device, formats[f], gw, gh)
	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("video: %s: %w", device, err)
	}
	return &V4L2{cam: cam, r: image.Rect(0, 0, int(gw), int(gh)), timeout: 5}, nil
}

// Read implements Source. Wait timeouts are retried.
func (v *V4L2) Read() (*image.RGBA, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cam == nil {
		return nil, errClosed
	}
	for {
		err := v.cam.WaitForFrame(v.timeout)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			log.Printf("video: %v", err)
			continue
		default:
			return nil, err
		}
		frame, err := v.cam.ReadFrame()
		if err != nil {
			return nil, err
		}
		if len(frame) == 0 {
			continue
		}
		return YUYV(frame, v.r.Dx(), v.r.Dy())
	}
}

// Bounds implements Source.
func (v *V4L2) Bounds() image.Rectangle {
	return v.r
}

// Close implements Source.
func (v *V4L2) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cam == nil {
		return nil
	}
	err := v.cam.Close()
	v.cam = nil
	return err
}
