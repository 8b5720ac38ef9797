// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewMatrix_copy(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	m, err := NewMatrix(2, 3, data)
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 100
	if v := m.At(0, 0); v != 1 {
		t.Fatalf("matrix aliased its input: %v", v)
	}
	if m.Rows() != 2 || m.Cols() != 3 {
		t.Fatalf("%dx%d", m.Cols(), m.Rows())
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5, 6}, m.Values()); diff != "" {
		t.Fatalf("Values() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMatrix_fail(t *testing.T) {
	data := []struct {
		rows, cols int
		n          int
	}{
		{0, 32, 0},
		{24, -1, 0},
		{24, 32, 767},
		{24, 32, 769},
	}
	for i, line := range data {
		if _, err := NewMatrix(line.rows, line.cols, make([]float64, line.n)); err == nil {
			t.Fatalf("#%d: expected failure", i)
		}
	}
}

func TestStats(t *testing.T) {
	v := make([]float64, Rows*Cols)
	for i := range v {
		v[i] = 20
	}
	v[0] = 18
	v[Rows*Cols-1] = 34
	v[12*Cols+16] = 25
	m, err := NewMatrix(Rows, Cols, v)
	if err != nil {
		t.Fatal(err)
	}
	got := Stats(m)
	if diff := cmp.Diff(Statistics{Min: 18, Max: 34, Mid: 25}, got); diff != "" {
		t.Fatalf("Stats() mismatch (-want +got):\n%s", diff)
	}
	if s := got.String(); s != "min 18.0°C max 34.0°C mid 25.0°C" {
		t.Fatal(s)
	}
}

func TestGray16(t *testing.T) {
	m, err := NewMatrix(1, 3, []float64{-300, 26.85, 1000})
	if err != nil {
		t.Fatal(err)
	}
	img := m.Gray16()
	data := []uint16{0, 30000, 65535}
	for x, want := range data {
		if got := img.Gray16At(x, 0).Y; got != want {
			t.Fatalf("#%d: %d != %d", x, want, got)
		}
	}
}
