// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package publish sends the statistics of each thermal frame to Redis.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/maruel/thermalcam/thermal"
)

// Message is the JSON payload published for each frame.
type Message struct {
	Min float64   `json:"min"`
	Max float64   `json:"max"`
	Mid float64   `json:"mid"`
	TS  time.Time `json:"ts"`
}

// Encode returns the JSON encoded Message for s at ts.
func Encode(s thermal.Statistics, ts time.Time) ([]byte, error) {
	return json.Marshal(&Message{Min: s.Min, Max: s.Max, Mid: s.Mid, TS: ts.UTC()})
}

type sample struct {
	stats thermal.Statistics
	ts    time.Time
}

// Redis publishes statistics on a Redis channel and keeps the most recent
// one in the key "<channel>:latest".
//
// It implements sampler.StatsSink.
type Redis struct {
	client  *redis.Client
	channel string
	c       chan sample
	dropped atomic.Uint64
}

// NewRedis connects to the server at addr.
func NewRedis(ctx context.Context, addr, channel string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return newRedis(client, channel), nil
}

func newRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel, c: make(chan sample, 32)}
}

// Add queues s. It never blocks; when the queue is full s is dropped.
func (r *Redis) Add(s thermal.Statistics) {
	select {
	case r.c <- sample{s, time.Now()}:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of statistics dropped by Add or skipped by Run
// because they could not be encoded.
func (r *Redis) Dropped() uint64 {
	return r.dropped.Load()
}

// Run publishes queued statistics until ctx is canceled.
func (r *Redis) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-r.c:
			b, err := Encode(s.stats, s.ts)
			if err != nil {
				// NaN or Inf statistics; skip this one.
				r.dropped.Add(1)
				log.Printf("redis: %v", err)
				continue
			}
			pipe := r.client.Pipeline()
			pipe.Publish(ctx, r.channel, b)
			pipe.Set(ctx, r.channel+":latest", b, 0)
			if _, err := pipe.Exec(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Keep going; the server may come back.
				log.Printf("redis: %v", err)
			}
		}
	}
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
