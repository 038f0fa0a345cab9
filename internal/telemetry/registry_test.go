package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubReadings struct {
	angle float64
	rate  float64
}

func (s stubReadings) Angle() (float64, error) { return s.angle, nil }
func (s stubReadings) Rate() (float64, error)  { return s.rate, nil }

func TestRegistrySnapshotOrder(t *testing.T) {
	Register("AnalogGyro", 1, stubReadings{angle: 10})
	Register("AnalogGyro", 0, stubReadings{angle: 20})
	defer Unregister("AnalogGyro", 0)
	defer Unregister("AnalogGyro", 1)

	entries := Snapshot()
	assert.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Channel)
	assert.Equal(t, 1, entries[1].Channel)

	angle, err := entries[1].Sensor.Angle()
	assert.NoError(t, err)
	assert.Equal(t, 10.0, angle)
}

func TestRegisterReplacesSameKey(t *testing.T) {
	Register("AnalogGyro", 7, stubReadings{angle: 1})
	Register("AnalogGyro", 7, stubReadings{angle: 2})
	defer Unregister("AnalogGyro", 7)

	entries := Snapshot()
	assert.Len(t, entries, 1)
	angle, _ := entries[0].Sensor.Angle()
	assert.Equal(t, 2.0, angle)
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	Unregister("AnalogGyro", 99)
	assert.Empty(t, Snapshot())
}

func TestUsageCounts(t *testing.T) {
	assert.Equal(t, 0, UsageCount(ResourceGyro, 3))
	ReportUsage(ResourceGyro, 3)
	ReportUsage(ResourceGyro, 3)
	ReportUsage(ResourceAnalogChannel, 3)
	assert.Equal(t, 2, UsageCount(ResourceGyro, 3))
	assert.Equal(t, 1, UsageCount(ResourceAnalogChannel, 3))
}
