// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analog

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gyro_computer/internal/config"
)

// adcResolutionBits is the resolution of the MCP3008 converter.
const adcResolutionBits = 10

// Input is a Channel backed by one channel of an MCP3008 ADC on SPI. A
// background sampler performs the raw conversions, builds oversampled samples
// and feeds them to the software accumulator. The conversion rate follows the
// process-wide sample rate (see SetGlobalSampleRate).
type Input struct {
	channel int

	mu   sync.Mutex
	conn spi.Conn
	port spi.PortCloser

	oversampleBits int
	lsbWeight      float64 // nanovolts per raw LSB

	acc         accumulator
	quit        chan struct{}
	done        chan struct{}
	releaseOnce sync.Once
}

// NewInput opens the configured SPI ADC and starts sampling the given
// channel. Valid channels are 0-7 on the MCP3008.
func NewInput(channel int) (*Input, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("analog input: channel %d out of range 0-7", channel)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("analog input %d: periph host init: %w", channel, err)
	}

	cfg := config.Get()
	port, err := spireg.Open(cfg.ADCSPIDevice)
	if err != nil {
		return nil, fmt.Errorf("analog input %d: SPI open (%s): %w", channel, cfg.ADCSPIDevice, err)
	}

	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("analog input %d: SPI connect: %w", channel, err)
	}

	in := &Input{
		channel:   channel,
		conn:      conn,
		port:      port,
		lsbWeight: cfg.ADCVref / float64(int64(1)<<adcResolutionBits) * 1e9,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	in.acc.setAverageBits(0)

	log.Printf("analog input %d: sampling on %s (vref=%.2fV, lsb=%.0fnV)",
		channel, cfg.ADCSPIDevice, cfg.ADCVref, in.lsbWeight)

	go in.sample()
	return in, nil
}

// sample is the background conversion loop. Each iteration performs
// 2^oversampleBits raw conversions back to back, sums them into one
// oversampled sample and sleeps out the remainder of the sample budget.
func (in *Input) sample() {
	defer close(in.done)
	for {
		select {
		case <-in.quit:
			return
		default:
		}

		in.mu.Lock()
		conversions := int64(1) << in.oversampleBits
		in.mu.Unlock()

		start := time.Now()
		var sum int64
		var failed bool
		for i := int64(0); i < conversions; i++ {
			raw, err := in.convert()
			if err != nil {
				log.Printf("analog input %d: conversion error: %v", in.channel, err)
				failed = true
				break
			}
			sum += raw
		}
		if !failed {
			in.acc.feed(sum)
		}

		budget := time.Duration(float64(time.Second) * float64(conversions) / GlobalSampleRate())
		if elapsed := time.Since(start); elapsed < budget {
			select {
			case <-in.quit:
				return
			case <-time.After(budget - elapsed):
			}
		}
	}
}

// convert performs one single-ended MCP3008 conversion.
func (in *Input) convert() (int64, error) {
	// start bit, single-ended channel select, clocks for the low data bits
	tx := [3]byte{1, byte((8 + in.channel) << 4), 0}
	var rx [3]byte

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.conn == nil {
		return 0, fmt.Errorf("analog input %d: released", in.channel)
	}
	if err := in.conn.Tx(tx[:], rx[:]); err != nil {
		return 0, err
	}
	return int64(rx[1]&0x3)<<8 | int64(rx[2]), nil
}

func (in *Input) SetAverageBits(bits int) error {
	if bits < 0 {
		return fmt.Errorf("analog input %d: negative average bits %d", in.channel, bits)
	}
	in.acc.setAverageBits(bits)
	return nil
}

func (in *Input) SetOversampleBits(bits int) error {
	if bits < 0 {
		return fmt.Errorf("analog input %d: negative oversample bits %d", in.channel, bits)
	}
	in.mu.Lock()
	in.oversampleBits = bits
	in.mu.Unlock()
	return nil
}

func (in *Input) AverageBits() int {
	in.acc.mu.Lock()
	defer in.acc.mu.Unlock()
	return in.acc.averageBits
}

func (in *Input) OversampleBits() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.oversampleBits
}

func (in *Input) InitAccumulator() error {
	in.acc.enable()
	return nil
}

func (in *Input) ResetAccumulator() error {
	in.acc.reset()
	return nil
}

func (in *Input) SetAccumulatorCenter(center int) error {
	in.acc.setCenter(int64(center))
	return nil
}

func (in *Input) SetAccumulatorDeadband(deadband int) error {
	if deadband < 0 {
		return fmt.Errorf("analog input %d: negative deadband %d", in.channel, deadband)
	}
	in.acc.setDeadband(int64(deadband))
	return nil
}

func (in *Input) AccumulatorOutput() (int64, int64, error) {
	value, count := in.acc.output()
	return value, count, nil
}

func (in *Input) AverageValue() (int64, error) {
	return in.acc.averageValue(), nil
}

func (in *Input) LSBWeight() float64 {
	return in.lsbWeight
}

func (in *Input) Channel() int {
	return in.channel
}

// Release stops the sampler and closes the SPI port. Safe to call more than
// once.
func (in *Input) Release() error {
	var err error
	in.releaseOnce.Do(func() {
		close(in.quit)
		<-in.done

		in.mu.Lock()
		defer in.mu.Unlock()
		in.conn = nil
		if closeErr := in.port.Close(); closeErr != nil {
			err = fmt.Errorf("analog input %d: SPI close: %w", in.channel, closeErr)
		}
		in.port = nil
	})
	return err
}
