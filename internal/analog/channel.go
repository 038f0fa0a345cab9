// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

// Channel is an analog input capable of accumulating samples over time.
// The accumulator sums (sample - center) for every oversampled sample whose
// distance from the center exceeds the deadband, and counts the samples it
// accepted. Hardware-facing operations return errors; the pure getters do not.
type Channel interface {
	// SetAverageBits sets the averaging depth: the averaged value is the
	// mean of 2^bits oversampled samples.
	SetAverageBits(bits int) error
	// SetOversampleBits sets the oversampling depth: one output sample is
	// the sum of 2^bits raw ADC conversions.
	SetOversampleBits(bits int) error
	AverageBits() int
	OversampleBits() int

	// InitAccumulator enables accumulation and zeroes the accumulator.
	InitAccumulator() error
	// ResetAccumulator zeroes the accumulator value and count.
	ResetAccumulator() error
	// SetAccumulatorCenter sets the raw value subtracted from every sample
	// before it is added to the accumulator.
	SetAccumulatorCenter(center int) error
	// SetAccumulatorDeadband sets the band (in raw units) around the center
	// within which samples are excluded from accumulation.
	SetAccumulatorDeadband(deadband int) error
	// AccumulatorOutput returns the accumulated value and sample count as a
	// single atomic snapshot.
	AccumulatorOutput() (value, count int64, err error)

	// AverageValue returns the current oversampled-and-averaged raw value.
	AverageValue() (int64, error)

	// LSBWeight returns the weight of one raw LSB in nanovolts.
	LSBWeight() float64

	// Channel returns the hardware channel index this input is bound to.
	Channel() int

	// Release frees the underlying hardware resources. The channel must not
	// be used afterwards.
	Release() error
}
