// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"syscall"

	fsnotify "gopkg.in/fsnotify.v1"
)

// watchExecutable blocks until the running binary is replaced or done is
// closed. It reports whether the binary changed.
func watchExecutable(done <-chan struct{}) (bool, error) {
	fileName, err := os.Executable()
	if err != nil {
		return false, err
	}
	return watchFile(fileName, done)
}

// watchFile blocks until the modification time of path differs from the one
// it had on entry, or until done is closed.
func watchFile(path string, done <-chan struct{}) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	mod0 := fi.ModTime()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return false, err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return false, err
	}
	for {
		select {
		case <-done:
			return false, nil
		case err := <-watcher.Errors:
			return false, err
		case ev := <-watcher.Events:
			if ev.Op&fsnotify.Remove != 0 {
				// Replaced by rename; the new file is the update.
				return true, nil
			}
			fi, err := os.Stat(path)
			if err != nil {
				return false, err
			}
			if !fi.ModTime().Equal(mod0) {
				return true, nil
			}
		}
	}
}

// restart replaces the process with a fresh copy of the executable. It must
// only be called once every device is released.
func restart() error {
	fileName, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(fileName, os.Args, os.Environ())
}
