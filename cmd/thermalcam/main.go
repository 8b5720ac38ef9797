// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermalcam shows a camera feed overlaid with a MLX90640 thermal image.
//
// The feed is served as a web page; open http://<host>:8010/ to view it and
// use the buttons to switch modes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"

	"github.com/maruel/interrupt"
	"github.com/maruel/thermalcam/colormap"
	"github.com/maruel/thermalcam/config"
	"github.com/maruel/thermalcam/display"
	"github.com/maruel/thermalcam/handoff"
	"github.com/maruel/thermalcam/mode"
	"github.com/maruel/thermalcam/publish"
	"github.com/maruel/thermalcam/sampler"
	"github.com/maruel/thermalcam/thermal"
	"github.com/maruel/thermalcam/thermaltest"
	"github.com/maruel/thermalcam/video"
	"github.com/maruel/thermalcam/web"

	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// openThermal returns the thermal source and a function to release the bus.
func openThermal(cfg *config.Config, fake bool) (thermal.Source, func(), error) {
	if fake {
		return thermaltest.New(), func() {}, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	bus, err := i2creg.Open(cfg.I2C)
	if err != nil {
		return nil, nil, err
	}
	if cfg.I2CHz != 0 {
		if err := bus.SetSpeed(physic.Frequency(cfg.I2CHz) * physic.Hertz); err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
	}
	dev, err := thermal.NewMLX90640(bus, &thermal.Opts{Addr: cfg.Address, RefreshRate: cfg.Refresh()})
	if err != nil {
		_ = bus.Close()
		return nil, nil, fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
	}
	log.Printf("thermal: %s", dev)
	return dev, func() { _ = bus.Close() }, nil
}

func openVideo(cfg *config.Config, fake bool) (video.Source, error) {
	if fake {
		return video.NewPattern(cfg.CaptureWidth, cfg.CaptureHeight), nil
	}
	return video.OpenV4L2(cfg.Video, cfg.CaptureWidth, cfg.CaptureHeight)
}

func mainImpl() error {
	configPath := flag.String("config", "", "configuration file; defaults to ~/.config/thermalcam/thermalcam.json")
	port := flag.Int("port", 0, "http port to listen on, overrides the configuration")
	fake := flag.Bool("fake", false, "use fake thermal and video sources")
	i2cName := flag.String("i2c", "", "I²C bus to use, overrides the configuration")
	videoDev := flag.String("video", "", "V4L2 device to use, overrides the configuration")
	cpuprofile := flag.String("cpuprofile", "", "dump CPU profile in file")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	interrupt.HandleCtrlC()
	done := make(chan struct{})
	go func() {
		<-interrupt.Channel
		close(done)
	}()

	if *configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		*configPath = p
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *i2cName != "" {
		cfg.I2C = *i2cName
	}
	if *videoDev != "" {
		cfg.Video = *videoDev
	}

	scales, err := colormap.NewScales(cfg.Scales...)
	if err != nil {
		return err
	}
	src, release, err := openThermal(cfg, *fake)
	if err != nil {
		return err
	}
	defer release()
	vid, err := openVideo(cfg, *fake)
	if err != nil {
		_ = src.Close()
		return err
	}
	defer vid.Close()

	policy := handoff.Latest
	if cfg.Locked {
		policy = handoff.Locked
	}
	slot := handoff.New(policy)
	ctrl := mode.New(len(scales), slot)
	log.Printf("mode: %s", ctrl.Snapshot())

	srv := web.New()
	defer srv.Close()
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		_ = src.Close()
		return err
	}
	defer ln.Close()
	go func() {
		if err := http.Serve(ln, srv.Handler()); err != nil && !interrupt.IsSet() {
			log.Printf("http: %v", err)
		}
	}()
	fmt.Printf("Listening on %d\n", cfg.Port)

	if cfg.MDNS {
		name, _ := os.Hostname()
		if a, err := web.Advertise("thermalcam on "+name, cfg.Port); err != nil {
			log.Printf("%v", err)
		} else {
			defer a.Close()
		}
	}

	var opts []sampler.Option
	if cfg.Redis != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r, err := publish.NewRedis(ctx, cfg.Redis, cfg.RedisChannel)
		if err != nil {
			_ = src.Close()
			return err
		}
		defer r.Close()
		go func() {
			if err := r.Run(ctx); err != nil {
				log.Printf("%v", err)
			}
		}()
		opts = append(opts, sampler.WithSink(r))
	}

	updated := make(chan bool, 1)
	go func() {
		changed, err := watchExecutable(done)
		if err != nil {
			log.Printf("watch: %v", err)
		}
		updated <- changed
		if changed {
			interrupt.Set()
		}
	}()

	thermalLoop := sampler.New(src, ctrl, scales, slot, opts...)
	samplerErr := make(chan error, 1)
	go func() {
		err := thermalLoop.Run(done)
		samplerErr <- err
		interrupt.Set()
		_ = slot.Close()
	}()

	// The display loop owns the surface and runs on the main goroutine.
	err = display.NewLoop(srv, vid, slot, ctrl, cfg.DisplayOptions()).Run(done)
	if errors.Is(err, display.ErrExit) {
		err = nil
	}
	interrupt.Set()
	_ = slot.Close()
	if err2 := <-samplerErr; err == nil {
		err = err2
	}
	log.Printf("handoff: %+v", slot.Stats())
	if err == nil && <-updated {
		return errRestart
	}
	return err
}

// errRestart is returned by mainImpl when the binary was updated. The
// process is re-executed only after mainImpl returned, so its deferred
// cleanups release the devices first.
var errRestart = errors.New("binary updated")

// runThenRestart runs impl then re-executes through exec if impl asked for
// it.
func runThenRestart(impl, exec func() error) error {
	err := impl()
	if err == errRestart {
		fmt.Printf("Binary updated, restarting\n")
		err = exec()
	}
	return err
}

func main() {
	if err := runThenRestart(mainImpl, restart); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermalcam: %s.\n", err)
		os.Exit(1)
	}
}
