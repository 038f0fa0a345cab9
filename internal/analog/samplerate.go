package analog

import "sync"

// The sample rate is shared by every analog channel: all inputs are driven by
// the same sampling clock, so changing it here changes the conversion rate of
// every Input in the process. Callers that depend on a specific rate (the gyro
// does) must set it before starting to accumulate and must not assume it
// survives the construction of another rate-sensitive channel.
var (
	sampleRateMu sync.RWMutex
	sampleRate   = defaultSampleRate
)

// defaultSampleRate is the conversion rate used before anyone calls
// SetGlobalSampleRate, in samples per second.
const defaultSampleRate = 1000.0

// SetGlobalSampleRate sets the process-wide ADC conversion rate in samples
// per second.
func SetGlobalSampleRate(samplesPerSecond float64) {
	sampleRateMu.Lock()
	defer sampleRateMu.Unlock()
	sampleRate = samplesPerSecond
}

// GlobalSampleRate returns the process-wide ADC conversion rate in samples
// per second.
func GlobalSampleRate() float64 {
	sampleRateMu.RLock()
	defer sampleRateMu.RUnlock()
	return sampleRate
}
