// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux
// +build !linux

package main

import "errors"

// watchExecutable returns when done is closed.
func watchExecutable(done <-chan struct{}) (bool, error) {
	<-done
	return false, nil
}

func restart() error {
	return errors.New("restart is only supported on linux")
}
