package gyro

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gyro_computer/internal/analog"
	"github.com/relabs-tech/gyro_computer/internal/telemetry"
)

// 10-bit 5V converter, in nanovolts per LSB.
const testLSBWeight = 4882812.5

// fakeClock records the waits the driver asked for instead of sleeping.
type fakeClock struct {
	slept []time.Duration
}

func (c *fakeClock) Sleep(d time.Duration) { c.slept = append(c.slept, d) }

func withFakeClock(t *testing.T) *fakeClock {
	t.Helper()
	c := &fakeClock{}
	prev := SetClock(c)
	t.Cleanup(func() { SetClock(prev) })
	return c
}

// hwChannel hides the simulation marker so the driver treats the channel as
// real hardware and performs its settle/calibration waits.
type hwChannel struct {
	*analog.SimChannel
}

func (hwChannel) Simulated() bool { return false }

func newCalibratedGyro(t *testing.T, value, count int64) (*Gyro, *analog.SimChannel) {
	t.Helper()
	sim := analog.NewSimChannel(0, testLSBWeight)
	sim.SetAccumulated(value, count)
	g, err := Attach(sim)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g, sim
}

func TestCalibrateCenterOffset(t *testing.T) {
	for _, tc := range []struct {
		name       string
		value      int64
		count      int64
		wantCenter int
	}{
		{name: "exact mean", value: 500_000_000, count: 1000, wantCenter: 500000},
		{name: "rounds down", value: 500_400, count: 1000, wantCenter: 500},
		{name: "rounds up", value: 500_500, count: 1000, wantCenter: 501},
		{name: "single sample", value: 123, count: 1, wantCenter: 123},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, sim := newCalibratedGyro(t, tc.value, tc.count)

			mean := float64(tc.value) / float64(tc.count)
			assert.Equal(t, tc.wantCenter, g.Center())
			assert.Less(t, 0.0, 1.0-absFloat(g.Offset()), "offset must be a fraction")
			assert.InDelta(t, mean, float64(g.Center())+g.Offset(), 1e-9,
				"center+offset must reconstruct the mean")

			// the derived center must have been pushed to the channel and
			// the accumulator restarted from zero
			assert.Equal(t, tc.wantCenter, sim.Center())
			assert.GreaterOrEqual(t, sim.Resets(), 2)
		})
	}
}

func TestCalibrateDeterministic(t *testing.T) {
	g1, _ := newCalibratedGyro(t, 498_765_432, 997)
	g2, _ := newCalibratedGyro(t, 498_765_432, 997)

	assert.Equal(t, g1.Center(), g2.Center())
	assert.Equal(t, g1.Offset(), g2.Offset())
}

func TestCalibrateNegativeMeanTruncation(t *testing.T) {
	// mean = -1.499: +0.5 truncation lands on 0 rather than the nearest
	// integer -1. Legacy behavior, kept so stored presets stay valid.
	g, _ := newCalibratedGyro(t, -1499, 1000)
	assert.Equal(t, 0, g.Center())
	assert.InDelta(t, -1.499, g.Offset(), 1e-9)
}

func TestCalibrateNoSamples(t *testing.T) {
	sim := analog.NewSimChannel(0, testLSBWeight)
	// nothing accumulated: count stays 0

	_, err := Attach(sim)
	require.Error(t, err)
	var iscErr *InvalidSampleCountError
	assert.True(t, errors.As(err, &iscErr))
}

func TestAngleReferenceValues(t *testing.T) {
	// 10-bit path with LSBWeight=7.6295e-6 nV; construction pins the global
	// sample rate to 50*1024=51200.
	sim := analog.NewSimChannel(0, 7.6295e-6)
	sim.SetAccumulated(500_000_000, 1000)
	g, err := Attach(sim)
	require.NoError(t, err)
	defer g.Close()

	require.Equal(t, 500000, g.Center())
	require.InDelta(t, 0.0, g.Offset(), 1e-12)

	sim.SetAccumulated(505_000_000, 1010)
	angle, err := g.Angle()
	require.NoError(t, err)

	want := 505_000_000.0 * 1e-9 * 7.6295e-6 * 1 / (51200.0 * 0.007)
	assert.InEpsilon(t, want, angle, 1e-12)
}

func TestAngleOffsetCorrection(t *testing.T) {
	// mean 500000.25: center 500000, offset 0.25. A stationary stretch of
	// 2000 samples accumulates 2000*0.25 = 500 raw counts of pure bias,
	// which the correction must cancel exactly.
	g, sim := newCalibratedGyro(t, 2_000_001, 4)
	require.Equal(t, 500000, g.Center())
	require.InDelta(t, 0.25, g.Offset(), 1e-9)

	sim.SetAccumulated(500, 2000)
	angle, err := g.Angle()
	require.NoError(t, err)
	assert.InDelta(t, 0.0, angle, 1e-12)
}

func TestAngleZeroAfterReset(t *testing.T) {
	g, sim := newCalibratedGyro(t, 500_000_000, 1000)

	sim.SetAccumulated(0, 0)
	require.NoError(t, g.Reset())

	angle, err := g.Angle()
	require.NoError(t, err)
	assert.Equal(t, 0.0, angle)
}

func TestRate(t *testing.T) {
	g, sim := newCalibratedGyro(t, 512_000_000, 1000)
	require.Equal(t, 512000, g.Center())

	sim.SetAverage(512000 + 14336) // some clockwise rotation
	rate, err := g.Rate()
	require.NoError(t, err)

	want := 14336.0 * 1e-9 * testLSBWeight / (1024.0 * 0.007)
	assert.InEpsilon(t, want, rate, 1e-12)
}

func TestSensitivityScaling(t *testing.T) {
	g, sim := newCalibratedGyro(t, 512_000_000, 1000)
	sim.SetAccumulated(10_000_000, 100)
	sim.SetAverage(512000 + 5000)

	g.SetSensitivity(0.007)
	angle1, err := g.Angle()
	require.NoError(t, err)
	rate1, err := g.Rate()
	require.NoError(t, err)

	g.SetSensitivity(0.014)
	angle2, err := g.Angle()
	require.NoError(t, err)
	rate2, err := g.Rate()
	require.NoError(t, err)

	assert.InEpsilon(t, angle1/2, angle2, 1e-12)
	assert.InEpsilon(t, rate1/2, rate2, 1e-12)
}

func TestPresetSkipsCalibrationWait(t *testing.T) {
	c := withFakeClock(t)

	sim := analog.NewSimChannel(3, testLSBWeight)
	g, err := AttachPreset(hwChannel{sim}, 1000, 0.25)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, 1000, g.Center())
	assert.Equal(t, 0.25, g.Offset())
	assert.Equal(t, 1000, sim.Center())

	// only the sample-rate settle, never the 5s stationary window
	assert.Equal(t, []time.Duration{settleTime}, c.slept)
}

func TestCalibrationWaitsOnHardware(t *testing.T) {
	c := withFakeClock(t)

	sim := analog.NewSimChannel(3, testLSBWeight)
	sim.SetAccumulated(500_000, 1000)
	g, err := Attach(hwChannel{sim})
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, []time.Duration{settleTime, calibrationSampleTime}, c.slept)
}

func TestSimulatedChannelSkipsWaits(t *testing.T) {
	c := withFakeClock(t)
	newCalibratedGyro(t, 500_000, 1000)
	assert.Empty(t, c.slept)
}

func TestSetDeadbandConversion(t *testing.T) {
	g, sim := newCalibratedGyro(t, 500_000_000, 1000)

	require.NoError(t, g.SetDeadband(0.1))
	// 0.1V -> 0.1e9 / 4882812.5 * 1024 = 20971.52, truncated
	assert.Equal(t, 20971, sim.Deadband())
}

func TestCloseOwnedChannel(t *testing.T) {
	sim := analog.NewSimChannel(2, testLSBWeight)
	sim.SetAccumulated(500_000, 1000)
	g, err := newGyro(sim, true, nil)
	require.NoError(t, err)

	require.NoError(t, g.Close())
	assert.True(t, sim.Released())

	angle, err := g.Angle()
	require.NoError(t, err)
	assert.Equal(t, 0.0, angle)
	rate, err := g.Rate()
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	// post-release mutators degrade to no-ops
	assert.NoError(t, g.SetDeadband(0.5))
	assert.NoError(t, g.Reset())

	// double close is a safe no-op
	assert.NoError(t, g.Close())
}

func TestCloseBorrowedChannelNotReleased(t *testing.T) {
	g, sim := newCalibratedGyro(t, 500_000, 1000)

	require.NoError(t, g.Close())
	assert.False(t, sim.Released(), "borrowed channels belong to the caller")
	assert.NoError(t, g.Close())
}

func TestCloseUnregistersFromMonitoring(t *testing.T) {
	sim := analog.NewSimChannel(5, testLSBWeight)
	sim.SetAccumulated(500_000, 1000)
	g, err := Attach(sim)
	require.NoError(t, err)

	found := false
	for _, e := range telemetry.Snapshot() {
		if e.Kind == sensorKind && e.Channel == 5 {
			found = true
		}
	}
	require.True(t, found, "gyro must register itself for monitoring")

	require.NoError(t, g.Close())
	for _, e := range telemetry.Snapshot() {
		assert.False(t, e.Kind == sensorKind && e.Channel == 5,
			"closed gyro must be unregistered")
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
