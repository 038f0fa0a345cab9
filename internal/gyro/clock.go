package gyro

import "time"

// Clock abstracts the real-time waits in construction and calibration. The
// settle and calibration windows model physical behavior and must elapse in
// wall-clock time on real hardware; tests swap in a fake to observe them
// without the delay.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

var clock Clock = realClock{}

// SetClock replaces the package clock and returns the previous one.
func SetClock(c Clock) Clock {
	prev := clock
	clock = c
	return prev
}
