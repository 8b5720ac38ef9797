// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package web implements a display.Surface served to a web browser.
package web

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"net/http"
	"sync"

	"github.com/maruel/thermalcam/display"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/net/websocket"
)

//go:embed static/root.html
var rootHTML []byte

// Overlay is the state of one text element.
type Overlay struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

// Metadata is sent along each frame.
type Metadata struct {
	Seq      uint64             `json:"seq"`
	Overlays map[string]Overlay `json:"overlays"`
}

// Server is a display.Surface. Each presented frame is rendered with its
// visible overlays and broadcast to all connected websockets.
type Server struct {
	mu       sync.Mutex
	cond     sync.Cond
	overlays [display.NumOverlays]Overlay
	jpg      []byte
	meta     Metadata
	seq      uint64
	closed   bool
	actions  chan display.Action
	mux      *http.ServeMux
}

// New returns a Server. Use Handler to serve it.
func New() *Server {
	s := &Server{actions: make(chan display.Action, 16), mux: http.NewServeMux()}
	s.cond.L = &s.mu
	s.mux.HandleFunc("/", s.root)
	s.mux.HandleFunc("/still.jpg", s.still)
	s.mux.HandleFunc("/action", s.action)
	s.mux.Handle("/stream", websocket.Handler(s.stream))
	return s
}

// Handler returns the HTTP handler, logging each request.
func (s *Server) Handler() http.Handler {
	return accessLog{s.mux}
}

// Present implements display.Surface.
func (s *Server) Present(img image.Image) error {
	s.mu.Lock()
	overlays := s.overlays
	s.mu.Unlock()

	// Encode without the lock.
	dst := Render(img, overlays)
	buf := bytes.Buffer{}
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return err
	}
	meta := Metadata{Overlays: map[string]Overlay{}}
	for i, o := range overlays {
		meta.Overlays[display.Overlay(i).String()] = o
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	meta.Seq = s.seq
	s.jpg = buf.Bytes()
	s.meta = meta
	s.cond.Broadcast()
	return nil
}

// SetOverlay implements display.Surface.
func (s *Server) SetOverlay(id display.Overlay, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays[id].Text = text
}

// ShowOverlay implements display.Surface.
func (s *Server) ShowOverlay(id display.Overlay, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays[id].Visible = visible
}

// Actions implements display.Surface.
func (s *Server) Actions() <-chan display.Action {
	return s.actions
}

// Close disconnects all the websockets.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Render returns a copy of img with the visible overlays and the center
// marker drawn over it.
func Render(img image.Image, overlays [display.NumOverlays]Overlay) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	w, h := b.Dx(), b.Dy()
	cx, cy := w/2, h/2
	red := color.RGBA{255, 0, 0, 255}
	for y := cy - 1; y <= cy+1; y++ {
		for x := cx - 1; x <= cx+1; x++ {
			dst.SetRGBA(x, y, red)
		}
	}
	pos := [display.NumOverlays]image.Point{
		display.OverlayMid:         {cx + 10, cy},
		display.OverlayMax:         {w/2 - 65, h - 50},
		display.OverlayMin:         {w/2 - 65, h - 25},
		display.OverlayThermalRate: {w - 100, 25},
		display.OverlayRate:        {w - 100, 5},
	}
	for i, o := range overlays {
		if !o.Visible || o.Text == "" {
			continue
		}
		c := color.RGBA{255, 255, 255, 255}
		if display.Overlay(i) == display.OverlayThermalRate {
			c = red
		}
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			// The position is the top left corner of the text.
			Dot: fixed.P(pos[i].X, pos[i].Y+basicfont.Face7x13.Ascent),
		}
		d.DrawString(o.Text)
	}
	return dst
}

// Private details.

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(rootHTML); err != nil {
		log.Printf("web: %v", err)
	}
}

func (s *Server) still(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	jpg := s.jpg
	s.mu.Unlock()
	if jpg == nil {
		http.Error(w, "No frame yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(jpg)
}

func (s *Server) action(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Use POST", http.StatusMethodNotAllowed)
		return
	}
	a, err := display.ParseAction(r.FormValue("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	select {
	case s.actions <- a:
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Too many pending actions", http.StatusServiceUnavailable)
	}
}

// stream sends each presented frame as WebSocket frames.
func (s *Server) stream(ws *websocket.Conn) {
	id := requestID(ws.Request().Context())
	log.Printf("websocket %s from %s", id, ws.Request().RemoteAddr)
	defer func() {
		log.Printf("websocket %s closed", id)
		_ = ws.Close()
	}()
	var seq uint64
	buf := &bytes.Buffer{}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for !s.closed && seq == s.seq {
			s.cond.Wait()
		}
		if s.closed {
			return
		}
		seq = s.seq
		jpg := s.jpg
		meta := s.meta
		s.mu.Unlock()
		// Do the actual I/O without the lock.
		err := writeFrames(ws, buf, jpg, &meta)
		s.mu.Lock()
		// To break out of the loop, the lock must be held.
		if err != nil {
			log.Printf("websocket %s err: %s", id, err)
			return
		}
	}
}

// writeFrames sends the frame I for Image, then the frame M for Metadata.
func writeFrames(ws *websocket.Conn, buf *bytes.Buffer, jpg []byte, meta *Metadata) error {
	buf.Reset()
	buf.WriteString("I")
	encoder := base64.NewEncoder(base64.StdEncoding, buf)
	_, _ = encoder.Write(jpg)
	_ = encoder.Close()
	if _, err := ws.Write(buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	buf.WriteString("M")
	if err := json.NewEncoder(buf).Encode(meta); err != nil {
		return err
	}
	_, err := ws.Write(buf.Bytes())
	return err
}
