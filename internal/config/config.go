package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicHeading string
	TopicGPS     string

	// Gyro
	GyroChannel int
	// GyroSensitivity is in volts per degree per second; 0 keeps the
	// driver default of 0.007.
	GyroSensitivity float64
	// GyroDeadbandVolts is the neutral zone applied after calibration.
	GyroDeadbandVolts float64
	// Preset center/offset from an earlier calibration run. Both must be
	// set for the preset path to be taken (see HasPreset).
	GyroPresetCenter int
	GyroPresetOffset float64
	hasPresetCenter  bool
	hasPresetOffset  bool
	// GyroSimulated switches the producer to an in-memory channel and
	// skips the real-time settle/calibration waits.
	GyroSimulated bool

	// ADC Hardware
	ADCSPIDevice string
	ADCVref      float64 // reference voltage in volts

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	SampleInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// HasPreset reports whether both preset calibration values were configured.
// A lone center or offset is rejected at load time.
func (c *Config) HasPreset() bool {
	return c.hasPresetCenter && c.hasPresetOffset
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Gyro
	case "GYRO_CHANNEL":
		ch, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_CHANNEL %q: %w", value, err)
		}
		if ch < 0 || ch > 7 {
			return fmt.Errorf("GYRO_CHANNEL must be 0-7, got %d", ch)
		}
		c.GyroChannel = ch
	case "GYRO_SENSITIVITY":
		sens, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GYRO_SENSITIVITY %q: %w", value, err)
		}
		if sens <= 0 {
			return fmt.Errorf("GYRO_SENSITIVITY must be positive, got %v", sens)
		}
		c.GyroSensitivity = sens
	case "GYRO_DEADBAND_VOLTS":
		db, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GYRO_DEADBAND_VOLTS %q: %w", value, err)
		}
		if db < 0 {
			return fmt.Errorf("GYRO_DEADBAND_VOLTS must not be negative, got %v", db)
		}
		c.GyroDeadbandVolts = db
	case "GYRO_PRESET_CENTER":
		center, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_PRESET_CENTER %q: %w", value, err)
		}
		c.GyroPresetCenter = center
		c.hasPresetCenter = true
	case "GYRO_PRESET_OFFSET":
		offset, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GYRO_PRESET_OFFSET %q: %w", value, err)
		}
		if offset <= -1 || offset >= 1 {
			return fmt.Errorf("GYRO_PRESET_OFFSET must be a fraction in (-1, 1), got %v", offset)
		}
		c.GyroPresetOffset = offset
		c.hasPresetOffset = true
	case "GYRO_SIMULATED":
		sim, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_SIMULATED %q: %w", value, err)
		}
		c.GyroSimulated = sim

	// ADC Hardware
	case "ADC_SPI_DEVICE":
		c.ADCSPIDevice = value
	case "ADC_VREF":
		vref, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ADC_VREF %q: %w", value, err)
		}
		if vref <= 0 {
			return fmt.Errorf("ADC_VREF must be positive, got %v", vref)
		}
		c.ADCVref = vref

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set and fills in defaults.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if !c.GyroSimulated && c.ADCSPIDevice == "" {
		return fmt.Errorf("ADC_SPI_DEVICE is required unless GYRO_SIMULATED=true")
	}
	if c.SampleInterval == 0 {
		return fmt.Errorf("SAMPLE_INTERVAL is required")
	}
	if c.hasPresetCenter != c.hasPresetOffset {
		return fmt.Errorf("GYRO_PRESET_CENTER and GYRO_PRESET_OFFSET must be set together")
	}
	if c.ADCVref == 0 {
		c.ADCVref = 5.0
	}
	if c.TopicHeading == "" {
		c.TopicHeading = "gyro/heading"
	}
	if c.TopicGPS == "" {
		c.TopicGPS = "gyro/gps"
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
