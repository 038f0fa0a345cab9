package analog

import "sync"

// accumulator is the software rendition of the FPGA sample accumulator. It is
// fed one oversampled sample at a time and keeps the running (value, count)
// pair plus the averaged value, so snapshot reads never block the sampler for
// longer than a field copy.
type accumulator struct {
	mu sync.Mutex

	enabled  bool
	center   int64
	deadband int64

	value int64
	count int64

	// ring of the last 2^averageBits oversampled samples
	averageBits int
	window      []int64
	windowPos   int
	windowFill  int
}

func (a *accumulator) setAverageBits(bits int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.averageBits = bits
	a.window = make([]int64, 1<<bits)
	a.windowPos = 0
	a.windowFill = 0
}

func (a *accumulator) setCenter(center int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.center = center
}

func (a *accumulator) setDeadband(deadband int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deadband = deadband
}

func (a *accumulator) enable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = true
	a.value = 0
	a.count = 0
}

func (a *accumulator) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = 0
	a.count = 0
}

// feed processes one oversampled sample: it updates the averaging window and,
// if accumulation is enabled, adds (sample - center) unless the sample falls
// inside the deadband.
func (a *accumulator) feed(sample int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.window) > 0 {
		a.window[a.windowPos] = sample
		a.windowPos = (a.windowPos + 1) % len(a.window)
		if a.windowFill < len(a.window) {
			a.windowFill++
		}
	}

	if !a.enabled {
		return
	}
	d := sample - a.center
	if d < 0 {
		d = -d
	}
	if d <= a.deadband && a.deadband > 0 {
		return
	}
	a.value += sample - a.center
	a.count++
}

func (a *accumulator) output() (value, count int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value, a.count
}

func (a *accumulator) averageValue() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.windowFill == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < a.windowFill; i++ {
		sum += a.window[i]
	}
	return sum / int64(a.windowFill)
}
