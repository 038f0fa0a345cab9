package app

import (
	"math"
	"time"

	"github.com/relabs-tech/gyro_computer/internal/analog"
)

// Simulated channel parameters: a 10-bit 5V converter oversampled 1024x,
// idling at mid-scale.
const (
	simLSBWeight   = 4882812.5 // 5V / 2^10 LSBs, in nanovolts
	simCenterRaw   = 512 << 10 // mid-scale oversampled sample
	simSensitivity = 0.007     // volts per degree per second
)

// simGyroChannel drives an analog.SimChannel with a smooth synthetic turn
// profile so the whole pipeline can run without hardware.
type simGyroChannel struct {
	channel *analog.SimChannel
	quit    chan struct{}
	done    chan struct{}
}

func newSimGyroChannel(index int) *simGyroChannel {
	ch := analog.NewSimChannel(index, simLSBWeight)
	// A clean stationary window for the construction-time calibration.
	ch.SetAccumulated(int64(simCenterRaw)*250, 250)
	ch.SetAverage(simCenterRaw)
	return &simGyroChannel{
		channel: ch,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins feeding motion after construction/calibration has finished.
func (s *simGyroChannel) start() {
	go s.drive()
}

func (s *simGyroChannel) stop() {
	close(s.quit)
	<-s.done
}

func (s *simGyroChannel) drive() {
	defer close(s.done)

	start := time.Now()
	var value, count int64
	s.channel.SetAccumulated(0, 0)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			rateDeg := 45 * math.Sin(elapsed/3)

			volts := rateDeg * simSensitivity
			delta := int64(volts * 1e9 / simLSBWeight * 1024)

			value += delta
			count++
			s.channel.SetAccumulated(value, count)
			s.channel.SetAverage(simCenterRaw + delta)
		}
	}
}
