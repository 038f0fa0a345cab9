// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gyro

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/gyro_computer/internal/analog"
	"github.com/relabs-tech/gyro_computer/internal/telemetry"
)

// Device-class constants for single-axis analog rate gyros. Oversampling and
// averaging depths are fixed before calibration and never change afterwards.
const (
	oversampleBits        = 10
	averageBits           = 0
	samplesPerSecond      = 50.0
	settleTime            = 1 * time.Second
	calibrationSampleTime = 5 * time.Second

	// defaultSensitivity is in volts per degree per second, the common value
	// for hobby-grade analog gyros. Override with SetSensitivity from the
	// part's datasheet.
	defaultSensitivity = 0.007
)

const sensorKind = "AnalogGyro"

// Gyro turns an accumulating analog channel into a calibrated angular-rate
// sensor: Angle integrates heading since the last Reset, Rate reads the
// instantaneous rotation. Construction either runs a stationary calibration
// pass or adopts preset (center, offset) values from an earlier run.
//
// The driver is synchronous and performs no locking; callers must not
// construct or calibrate concurrently with motion-sensitive use. Setting the
// sample rate during construction is a process-wide side effect shared with
// every other analog channel (see analog.SetGlobalSampleRate).
type Gyro struct {
	channel analog.Channel
	owned   bool
	closed  bool

	sensitivity float64 // volts per degree per second
	center      int
	offset      float64 // fractional residual, |offset| < 1
}

// New allocates the analog input for the given channel index and calibrates.
// The robot must be stationary for the calibration window.
func New(channel int) (*Gyro, error) {
	in, err := analog.NewInput(channel)
	if err != nil {
		return nil, fmt.Errorf("gyro: allocate analog channel %d: %w", channel, err)
	}
	telemetry.ReportUsage(telemetry.ResourceAnalogChannel, channel)
	g, err := newGyro(in, true, nil)
	if err != nil {
		in.Release()
		return nil, err
	}
	return g, nil
}

// NewPreset allocates the analog input and adopts center/offset saved from a
// previous calibration instead of running the stationary pass.
func NewPreset(channel, center int, offset float64) (*Gyro, error) {
	in, err := analog.NewInput(channel)
	if err != nil {
		return nil, fmt.Errorf("gyro: allocate analog channel %d: %w", channel, err)
	}
	telemetry.ReportUsage(telemetry.ResourceAnalogChannel, channel)
	g, err := newGyro(in, true, &preset{center: center, offset: offset})
	if err != nil {
		in.Release()
		return nil, err
	}
	return g, nil
}

// Attach wraps an existing channel without taking ownership: Close will never
// release it. Calibrates on construction.
func Attach(ch analog.Channel) (*Gyro, error) {
	return newGyro(ch, false, nil)
}

// AttachPreset wraps an existing channel without taking ownership and adopts
// saved center/offset values.
func AttachPreset(ch analog.Channel, center int, offset float64) (*Gyro, error) {
	return newGyro(ch, false, &preset{center: center, offset: offset})
}

type preset struct {
	center int
	offset float64
}

func newGyro(ch analog.Channel, owned bool, p *preset) (*Gyro, error) {
	g := &Gyro{
		channel:     ch,
		owned:       owned,
		sensitivity: defaultSensitivity,
	}

	if err := ch.SetAverageBits(averageBits); err != nil {
		return nil, fmt.Errorf("gyro %d: set average bits: %w", ch.Channel(), err)
	}
	if err := ch.SetOversampleBits(oversampleBits); err != nil {
		return nil, fmt.Errorf("gyro %d: set oversample bits: %w", ch.Channel(), err)
	}

	// Every oversampled output consumes 2^(avg+over) conversions, so the
	// shared conversion clock has to run that much faster than the wanted
	// 50 samples/s. This retunes every channel on the same clock.
	analog.SetGlobalSampleRate(samplesPerSecond * float64(int64(1)<<(averageBits+oversampleBits)))
	if !simulated(ch) {
		clock.Sleep(settleTime)
	}

	if err := g.SetDeadband(0); err != nil {
		return nil, fmt.Errorf("gyro %d: clear deadband: %w", ch.Channel(), err)
	}

	telemetry.ReportUsage(telemetry.ResourceGyro, ch.Channel())
	telemetry.Register(sensorKind, ch.Channel(), g)

	if p == nil {
		if err := g.Calibrate(); err != nil {
			telemetry.Unregister(sensorKind, ch.Channel())
			return nil, err
		}
		return g, nil
	}

	g.center = p.center
	g.offset = p.offset
	if err := ch.SetAccumulatorCenter(g.center); err != nil {
		telemetry.Unregister(sensorKind, ch.Channel())
		return nil, fmt.Errorf("gyro %d: set preset center: %w", ch.Channel(), err)
	}
	if err := ch.ResetAccumulator(); err != nil {
		telemetry.Unregister(sensorKind, ch.Channel())
		return nil, fmt.Errorf("gyro %d: reset accumulator: %w", ch.Channel(), err)
	}
	log.Printf("gyro %d: preset center=%d offset=%+f", ch.Channel(), g.center, g.offset)
	return g, nil
}

// Calibrate samples the stationary gyro for the calibration window and
// derives the zero-rate baseline: the integer accumulator center plus the
// fractional offset left over by the rounding. The robot must not move while
// this runs.
func (g *Gyro) Calibrate() error {
	if g.channel == nil {
		return nil
	}

	if err := g.channel.InitAccumulator(); err != nil {
		return fmt.Errorf("gyro %d: init accumulator: %w", g.channel.Channel(), err)
	}
	if err := g.channel.ResetAccumulator(); err != nil {
		return fmt.Errorf("gyro %d: reset accumulator: %w", g.channel.Channel(), err)
	}

	// Simulation feeds deterministic snapshots directly, no need to wait.
	if !simulated(g.channel) {
		clock.Sleep(calibrationSampleTime)
	}

	value, count, err := g.channel.AccumulatorOutput()
	if err != nil {
		return fmt.Errorf("gyro %d: read accumulator: %w", g.channel.Channel(), err)
	}
	if count == 0 {
		return &InvalidSampleCountError{Count: count}
	}

	mean := float64(value) / float64(count)
	// +0.5 then truncate toward zero. For negative means near the boundary
	// this rounds toward zero rather than to nearest; kept as-is because
	// saved presets from existing installations were produced this way.
	g.center = int(mean + 0.5)
	g.offset = mean - float64(g.center)

	if err := g.channel.SetAccumulatorCenter(g.center); err != nil {
		return fmt.Errorf("gyro %d: set center: %w", g.channel.Channel(), err)
	}
	if err := g.channel.ResetAccumulator(); err != nil {
		return fmt.Errorf("gyro %d: reset accumulator: %w", g.channel.Channel(), err)
	}

	log.Printf("gyro %d: calibrated center=%d offset=%+f (%d samples)",
		g.channel.Channel(), g.center, g.offset, count)
	return nil
}

// Angle returns the heading in degrees integrated since the last Reset.
// Positive is clockwise when the gyro is mounted with its axis up. Returns
// 0.0 once the channel is released.
func (g *Gyro) Angle() (float64, error) {
	if g.channel == nil {
		return 0, nil
	}
	value, count, err := g.channel.AccumulatorOutput()
	if err != nil {
		return 0, fmt.Errorf("gyro %d: read accumulator: %w", g.channel.Channel(), err)
	}

	// Remove the zero-rate bias accumulated over count samples, then scale
	// accumulated LSB-time to volt-seconds and on to degrees.
	corrected := float64(value) - float64(count)*g.offset
	return corrected * 1e-9 * g.channel.LSBWeight() *
		float64(int64(1)<<g.channel.AverageBits()) /
		(analog.GlobalSampleRate() * g.sensitivity), nil
}

// Rate returns the angular rate in degrees per second from the live averaged
// value. Returns 0.0 once the channel is released.
func (g *Gyro) Rate() (float64, error) {
	if g.channel == nil {
		return 0, nil
	}
	avg, err := g.channel.AverageValue()
	if err != nil {
		return 0, fmt.Errorf("gyro %d: read average: %w", g.channel.Channel(), err)
	}
	return (float64(avg) - (float64(g.center) + g.offset)) * 1e-9 *
		g.channel.LSBWeight() /
		(float64(int64(1)<<g.channel.OversampleBits()) * g.sensitivity), nil
}

// SetDeadband sets the neutral zone around the calibrated center, in volts.
// Samples closer to the center than this do not accumulate, trading accuracy
// for less stationary drift. No-op once released. Must run after the
// oversample depth is set: the raw conversion depends on it.
func (g *Gyro) SetDeadband(volts float64) error {
	if g.channel == nil {
		return nil
	}
	deadband := int(volts * 1e9 / g.channel.LSBWeight() *
		float64(int64(1)<<g.channel.OversampleBits()))
	if err := g.channel.SetAccumulatorDeadband(deadband); err != nil {
		return fmt.Errorf("gyro %d: set deadband: %w", g.channel.Channel(), err)
	}
	return nil
}

// SetSensitivity sets the scale factor in volts per degree per second, from
// the gyro's datasheet. Takes effect on the next Angle/Rate read.
func (g *Gyro) SetSensitivity(voltsPerDegreePerSecond float64) {
	g.sensitivity = voltsPerDegreePerSecond
}

// Reset zeroes the integrated heading without recalibrating. No-op once
// released.
func (g *Gyro) Reset() error {
	if g.channel == nil {
		return nil
	}
	if err := g.channel.ResetAccumulator(); err != nil {
		return fmt.Errorf("gyro %d: reset accumulator: %w", g.channel.Channel(), err)
	}
	return nil
}

// Center returns the calibrated accumulator center, usable as a preset for a
// later run.
func (g *Gyro) Center() int { return g.center }

// Offset returns the calibrated fractional offset, usable as a preset for a
// later run.
func (g *Gyro) Offset() float64 { return g.offset }

// Close unregisters the gyro from monitoring and, when it owns the channel,
// releases it. A borrowed channel stays untouched and usable by its owner;
// Angle and Rate on the closed gyro then keep reading from it, while a gyro
// whose own channel was released reports zeros. Safe to call more than once.
func (g *Gyro) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	if g.channel != nil {
		telemetry.Unregister(sensorKind, g.channel.Channel())
	}
	if !g.owned || g.channel == nil {
		return nil
	}
	ch := g.channel
	g.channel = nil
	if err := ch.Release(); err != nil {
		return fmt.Errorf("gyro: release channel: %w", err)
	}
	return nil
}

func simulated(ch analog.Channel) bool {
	s, ok := ch.(interface{ Simulated() bool })
	return ok && s.Simulated()
}
