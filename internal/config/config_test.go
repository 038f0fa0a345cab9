package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gyro_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
# gyro computer test config
MQTT_BROKER=tcp://localhost:1883
MQTT_CLIENT_ID_PRODUCER = gyro-producer
TOPIC_HEADING=robot/heading

GYRO_CHANNEL=3
GYRO_SENSITIVITY=0.0125
GYRO_DEADBAND_VOLTS=0.05
GYRO_PRESET_CENTER=512000
GYRO_PRESET_OFFSET=0.25

ADC_SPI_DEVICE=SPI0.0
ADC_VREF=3.3
SAMPLE_INTERVAL=100
WEB_SERVER_PORT=8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "gyro-producer", cfg.MQTTClientIDProducer)
	assert.Equal(t, "robot/heading", cfg.TopicHeading)
	assert.Equal(t, "gyro/gps", cfg.TopicGPS, "unset topic falls back to default")
	assert.Equal(t, 3, cfg.GyroChannel)
	assert.Equal(t, 0.0125, cfg.GyroSensitivity)
	assert.Equal(t, 0.05, cfg.GyroDeadbandVolts)
	assert.True(t, cfg.HasPreset())
	assert.Equal(t, 512000, cfg.GyroPresetCenter)
	assert.Equal(t, 0.25, cfg.GyroPresetOffset)
	assert.Equal(t, "SPI0.0", cfg.ADCSPIDevice)
	assert.Equal(t, 3.3, cfg.ADCVref)
	assert.Equal(t, 100, cfg.SampleInterval)
	assert.Equal(t, 8080, cfg.WebServerPort)
}

func TestLoadSimulatedWithoutADC(t *testing.T) {
	path := writeConfig(t, `
MQTT_BROKER=tcp://localhost:1883
GYRO_SIMULATED=true
SAMPLE_INTERVAL=100
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.GyroSimulated)
	assert.False(t, cfg.HasPreset())
	assert.Equal(t, 5.0, cfg.ADCVref, "vref defaults when unset")
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{
			name:    "missing broker",
			content: "SAMPLE_INTERVAL=100\nGYRO_SIMULATED=true\n",
		},
		{
			name:    "missing ADC on real hardware",
			content: "MQTT_BROKER=tcp://localhost:1883\nSAMPLE_INTERVAL=100\n",
		},
		{
			name:    "missing sample interval",
			content: "MQTT_BROKER=tcp://localhost:1883\nGYRO_SIMULATED=true\n",
		},
		{
			name:    "channel out of range",
			content: "MQTT_BROKER=tcp://x\nGYRO_SIMULATED=true\nSAMPLE_INTERVAL=100\nGYRO_CHANNEL=8\n",
		},
		{
			name:    "preset center without offset",
			content: "MQTT_BROKER=tcp://x\nGYRO_SIMULATED=true\nSAMPLE_INTERVAL=100\nGYRO_PRESET_CENTER=100\n",
		},
		{
			name:    "preset offset not a fraction",
			content: "MQTT_BROKER=tcp://x\nGYRO_SIMULATED=true\nSAMPLE_INTERVAL=100\nGYRO_PRESET_CENTER=100\nGYRO_PRESET_OFFSET=1.5\n",
		},
		{
			name:    "negative deadband",
			content: "MQTT_BROKER=tcp://x\nGYRO_SIMULATED=true\nSAMPLE_INTERVAL=100\nGYRO_DEADBAND_VOLTS=-0.1\n",
		},
		{
			name:    "unknown key",
			content: "MQTT_BROKER=tcp://x\nGYRO_SIMULATED=true\nSAMPLE_INTERVAL=100\nBOGUS=1\n",
		},
		{
			name:    "malformed line",
			content: "MQTT_BROKER tcp://x\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}
