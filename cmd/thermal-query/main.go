// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermal-query uses the I²C interface of a MLX90640 to query its settings.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/maruel/thermalcam/thermal"

	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	i2cHz := flag.Int("hz", 0, "I²C bus speed")
	addr := flag.Int("addr", 0x33, "I²C address")
	rate := flag.Float64("rate", 8, "refresh rate to configure, in Hz")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

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
	dev, err := thermal.NewMLX90640(i2cBus, &thermal.Opts{
		Addr:        uint16(*addr),
		RefreshRate: physic.Frequency(*rate * float64(physic.Hertz)),
	})
	if err != nil {
		return err
	}
	defer dev.Close()
	s, err := dev.Settings()
	if err != nil {
		return err
	}
	fmt.Printf("Device:      %s\n", dev)
	fmt.Printf("RefreshRate: %s\n", s.RefreshRate)
	fmt.Printf("Chess:       %t\n", s.Chess)
	fmt.Printf("ADC:         %d bits\n", s.ADCBits)
	ee := dev.EEPROM()
	fmt.Printf("EEPROM[0:4]: %04x %04x %04x %04x\n", ee[0], ee[1], ee[2], ee[3])
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermal-query: %s.\n", err)
		os.Exit(1)
	}
}
