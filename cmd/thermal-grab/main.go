// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermal-grab captures a single thermal image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"

	"github.com/maruel/thermalcam/colormap"
	"github.com/maruel/thermalcam/thermal"
	"github.com/maruel/thermalcam/thermaltest"

	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	i2cHz := flag.Int("i2chz", 0, "I²C bus speed")
	addr := flag.Int("addr", 0x33, "I²C address")
	scale := flag.String("scale", "", "colorize with this scale, e.g. jet_r, instead of saving 16 bits centi-Kelvin")
	size := flag.Int("size", 1, "enlarge the colorized image by this factor")
	fake := flag.Bool("fake", false, "use a fake sensor")
	meta := flag.Bool("meta", false, "print statistics")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 1 {
		return errors.New("supply path to PNG to save")
	}
	if *size < 1 {
		return errors.New("-size must be at least 1")
	}

	var src thermal.Source
	if *fake {
		src = thermaltest.New()
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		i2cBus, err := i2creg.Open(*i2cName)
		if err != nil {
			return err
		}
		defer i2cBus.Close()
		if *i2cHz != 0 {
			if err := i2cBus.SetSpeed(physic.Frequency(*i2cHz) * physic.Hertz); err != nil {
				return err
			}
		}
		dev, err := thermal.NewMLX90640(i2cBus, &thermal.Opts{Addr: uint16(*addr)})
		if err != nil {
			return fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
		}
		src = dev
	}
	defer src.Close()
	m, err := src.Sample()
	if err != nil {
		return err
	}
	if *meta {
		s := thermal.Stats(m)
		fmt.Printf("Min: %.2f°C\n", s.Min)
		fmt.Printf("Max: %.2f°C\n", s.Max)
		fmt.Printf("Mid: %.2f°C\n", s.Mid)
	}
	var img image.Image = m.Gray16()
	if *scale != "" {
		s, err := colormap.Named(*scale)
		if err != nil {
			return err
		}
		c := colormap.Mirror(colormap.Render(m, s))
		if *size != 1 {
			c = colormap.Resize(c, thermal.Cols*(*size), thermal.Rows*(*size))
		}
		img = c
	}
	f, err := os.Create(flag.Args()[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermal-grab: %s.\n", err)
		os.Exit(1)
	}
}
