// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

import "sync"

// SimChannel is an in-memory Channel for tests and simulated runs. It serves
// whatever accumulator snapshots and averaged values the caller loads into it
// and records the configuration pushed by the driver under test.
//
// Accumulator resets do not clear a loaded snapshot: the simulation supplies
// values directly and decides what a read after a reset returns. Harnesses
// that care observe the reset counter and load new data accordingly.
type SimChannel struct {
	mu sync.Mutex

	channel   int
	lsbWeight float64

	averageBits    int
	oversampleBits int
	center         int
	deadband       int

	value   int64
	count   int64
	average int64

	resets     int
	inits      int
	released   bool
	releaseErr error
}

// NewSimChannel creates a simulated channel with the given index and LSB
// weight in nanovolts.
func NewSimChannel(channel int, lsbWeight float64) *SimChannel {
	return &SimChannel{channel: channel, lsbWeight: lsbWeight}
}

// Simulated marks this channel as simulation-backed; the gyro uses it to skip
// real-time settling and calibration waits.
func (s *SimChannel) Simulated() bool { return true }

// SetAccumulated loads the snapshot returned by the next AccumulatorOutput
// calls.
func (s *SimChannel) SetAccumulated(value, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.count = count
}

// SetAverage loads the value returned by AverageValue.
func (s *SimChannel) SetAverage(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.average = v
}

// FailRelease makes Release return err, for teardown error paths.
func (s *SimChannel) FailRelease(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseErr = err
}

func (s *SimChannel) SetAverageBits(bits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.averageBits = bits
	return nil
}

func (s *SimChannel) SetOversampleBits(bits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oversampleBits = bits
	return nil
}

func (s *SimChannel) AverageBits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.averageBits
}

func (s *SimChannel) OversampleBits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oversampleBits
}

func (s *SimChannel) InitAccumulator() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits++
	return nil
}

func (s *SimChannel) ResetAccumulator() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return nil
}

func (s *SimChannel) SetAccumulatorCenter(center int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = center
	return nil
}

func (s *SimChannel) SetAccumulatorDeadband(deadband int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadband = deadband
	return nil
}

func (s *SimChannel) AccumulatorOutput() (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.count, nil
}

func (s *SimChannel) AverageValue() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.average, nil
}

func (s *SimChannel) LSBWeight() float64 { return s.lsbWeight }

func (s *SimChannel) Channel() int { return s.channel }

func (s *SimChannel) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	return s.releaseErr
}

// Center returns the accumulator center last pushed by the driver.
func (s *SimChannel) Center() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

// Deadband returns the accumulator deadband last pushed by the driver.
func (s *SimChannel) Deadband() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadband
}

// Resets returns how many times the accumulator was reset.
func (s *SimChannel) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Released reports whether Release was called.
func (s *SimChannel) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
