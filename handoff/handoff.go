// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package handoff implements the single slot mailbox between the thermal
// sampler and the display.
//
// The slot holds at most one unconsumed Pair. Its Policy can be switched at
// runtime:
//
//   - Latest: Publish never blocks and overwrites an unconsumed pair. Consume
//     never blocks and reports false when nothing new was published.
//   - Locked: each published pair is consumed exactly once. Publish blocks
//     while the slot is full, Consume blocks while it is empty.
//
// A policy switch applies to the next Publish and Consume. A Publish that
// started under Locked keeps waiting for the slot to be drained, so a
// pending pair is never overwritten by a switch.
package handoff

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/maruel/thermalcam/thermal"

	"periph.io/x/periph/conn/physic"
)

// Policy is the synchronization policy of a Slot.
type Policy int32

const (
	// Latest is non-blocking; the most recent pair wins.
	Latest Policy = iota
	// Locked is blocking; every pair is delivered exactly once.
	Locked
)

func (p Policy) String() string {
	switch p {
	case Latest:
		return "Latest"
	case Locked:
		return "Locked"
	default:
		return "Policy(?)"
	}
}

// ErrClosed is returned by a Slot after Close.
var ErrClosed = errors.New("handoff: closed")

// Pair is a colorized thermal image with the statistics of the matrix it was
// rendered from.
type Pair struct {
	Image *image.RGBA
	Stats thermal.Statistics
	// Rate is the sampler's rate as measured on the previous iteration.
	Rate physic.Frequency
	// Seq is set by Publish, starting at 1.
	Seq uint64
}

// Stats are the Slot counters.
type Stats struct {
	Published uint64
	Consumed  uint64
	// Dropped counts pairs overwritten before being consumed.
	Dropped uint64
}

// Slot is a single element mailbox. It is safe for concurrent use by one
// publisher and one consumer.
type Slot struct {
	mu     sync.Mutex
	cond   sync.Cond
	policy Policy
	pair   Pair
	full   bool
	closed bool
	seq    uint64
	stats  Stats
}

// New returns an empty Slot using policy p.
func New(p Policy) *Slot {
	s := &Slot{policy: p}
	s.cond.L = &s.mu
	return s
}

// Publish stores p in the slot.
//
// Under Locked, it blocks while a previous pair is unconsumed, until the slot
// is drained or closed. The policy is read once on entry.
func (s *Slot) Publish(p Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked := s.policy == Locked
	for !s.closed && s.full && locked {
		s.cond.Wait()
	}
	if s.closed {
		return ErrClosed
	}
	if s.full {
		s.stats.Dropped++
	}
	s.seq++
	p.Seq = s.seq
	s.pair = p
	s.full = true
	s.stats.Published++
	s.cond.Broadcast()
	return nil
}

// Consume takes the pair out of the slot.
//
// It returns false when nothing was published since the last Consume. Under
// Locked, it instead blocks until a pair is published, the policy is
// switched to Latest or the slot is closed.
func (s *Slot) Consume() (Pair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.closed && !s.full && s.policy == Locked {
		s.cond.Wait()
	}
	if s.closed {
		return Pair{}, false, ErrClosed
	}
	if !s.full {
		return Pair{}, false, nil
	}
	p := s.pair
	s.pair = Pair{}
	s.full = false
	s.stats.Consumed++
	s.cond.Broadcast()
	return p, true, nil
}

// SetPolicy switches the policy. An unconsumed pair stays in the slot and a
// blocked Publish stays blocked until the pair is consumed.
func (s *Slot) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy != p {
		s.policy = p
		s.cond.Broadcast()
	}
}

// Policy returns the current policy.
func (s *Slot) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Close wakes up all blocked callers. Further calls return ErrClosed.
func (s *Slot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.cond.Broadcast()
	}
	return nil
}

// Stats returns a copy of the counters.
func (s *Slot) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RateOf returns the frequency matching a period of d, 0 when d is not
// positive.
func RateOf(d time.Duration) physic.Frequency {
	if d <= 0 {
		return 0
	}
	return physic.Frequency(float64(physic.Hertz) * float64(time.Second) / float64(d))
}
