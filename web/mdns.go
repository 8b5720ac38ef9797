// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package web

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type advertised.
const ServiceType = "_thermalcam._tcp"

// Advertisement is a registered mDNS service.
type Advertisement struct {
	s *zeroconf.Server
}

// Advertise registers the web server as instance name on port over mDNS.
func Advertise(name string, port int) (*Advertisement, error) {
	s, err := zeroconf.Register(name, ServiceType, "local.", port, []string{"path=/"}, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns: %w", err)
	}
	return &Advertisement{s: s}, nil
}

// Close unregisters the service.
func (a *Advertisement) Close() error {
	a.s.Shutdown()
	return nil
}
