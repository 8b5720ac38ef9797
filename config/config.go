// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the thermalcam configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"os/user"
	"path/filepath"

	"github.com/maruel/thermalcam/colormap"
	"github.com/maruel/thermalcam/display"
	"github.com/maruel/thermalcam/thermal"

	"periph.io/x/periph/conn/physic"
)

// Config is the content of thermalcam.json.
type Config struct {
	// I2C is the bus name as understood by i2creg; empty for the first one.
	I2C string
	// I2CHz is the bus speed; 0 to leave as is.
	I2CHz     int64
	Address   uint16
	RefreshHz float64

	// Video is the V4L2 device.
	Video         string
	CaptureWidth  int
	CaptureHeight int
	ThermalWidth  int
	ThermalHeight int
	OutputWidth   int
	OutputHeight  int

	// Scales is the ordered list of color scale names.
	Scales      []string
	SnapshotDir string

	// Port is the web server port.
	Port int
	// MDNS advertises the web server on the local network when true.
	MDNS bool
	// Redis is the host:port of a Redis server; empty to disable.
	Redis        string
	RedisChannel string

	// Locked is the initial synchronization policy.
	Locked bool
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		I2CHz:         400000,
		Address:       0x33,
		RefreshHz:     8,
		Video:         "/dev/video0",
		CaptureWidth:  640,
		CaptureHeight: 480,
		ThermalWidth:  320,
		ThermalHeight: 240,
		OutputWidth:   720,
		OutputHeight:  480,
		Scales:        append([]string(nil), colormap.Default...),
		SnapshotDir:   ".",
		Port:          8010,
		RedisChannel:  "thermalcam",
		Locked:        true,
	}
}

// DefaultPath returns ~/.config/thermalcam/thermalcam.json.
func DefaultPath() (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, ".config", "thermalcam", "thermalcam.json"), nil
}

// Load reads the configuration at path, filling missing values with
// defaults.
//
// The file is normalized: it is created when missing and rewritten when its
// content differs from the canonical encoding.
func Load(path string) (*Config, error) {
	c := Default()
	srcData, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(srcData, c); err != nil {
			return nil, fmt.Errorf("%s is invalid json: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Normalizes the config file.
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if !bytes.Equal(srcData, data) {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Validate returns an error if a value is out of range.
func (c *Config) Validate() error {
	if err := thermal.ValidRefreshRate(c.Refresh()); err != nil {
		return err
	}
	if c.Address == 0 || c.Address > 0x7F {
		return fmt.Errorf("invalid I²C address 0x%x", c.Address)
	}
	for _, p := range []image.Point{c.Capture(), c.Thermal(), c.Output()} {
		if p.X <= 0 || p.Y <= 0 {
			return fmt.Errorf("invalid size %s", p)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := colormap.NewScales(c.Scales...); err != nil {
		return err
	}
	return nil
}

// Refresh returns RefreshHz as a physic.Frequency.
func (c *Config) Refresh() physic.Frequency {
	return physic.Frequency(c.RefreshHz * float64(physic.Hertz))
}

func (c *Config) Capture() image.Point {
	return image.Pt(c.CaptureWidth, c.CaptureHeight)
}

func (c *Config) Thermal() image.Point {
	return image.Pt(c.ThermalWidth, c.ThermalHeight)
}

func (c *Config) Output() image.Point {
	return image.Pt(c.OutputWidth, c.OutputHeight)
}

// DisplayOptions returns the display.Options matching c.
func (c *Config) DisplayOptions() display.Options {
	return display.Options{
		ThermalSize: c.Thermal(),
		OutputSize:  c.Output(),
		SnapshotDir: c.SnapshotDir,
	}
}
