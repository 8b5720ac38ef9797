// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package web

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// requestID returns the id accessLog assigned to the request, "-" if none.
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "-"
}

// accessLog tags each request with an id and logs it once served. The id
// is returned to the client and reused by the websocket logs.
type accessLog struct {
	handler http.Handler
}

func (a accessLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	start := time.Now()
	w.Header().Set(RequestIDHeader, id)
	rec := &recorder{ResponseWriter: w}
	a.handler.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	log.Printf("%s %s - %3d %6db %4s %s %s", id, r.RemoteAddr, rec.Status(), rec.length, r.Method, r.RequestURI, time.Since(start).Round(time.Millisecond))
}

// recorder captures the status and size of a response.
type recorder struct {
	http.ResponseWriter
	length int
	status int
}

// Status is the status sent, 200 when the handler never called WriteHeader.
func (r *recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *recorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(data)
	r.length += n
	return n, err
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

// Hijack is needed for websocket.
func (r *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("web: connection can't be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
