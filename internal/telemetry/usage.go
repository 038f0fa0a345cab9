package telemetry

import (
	"log"
	"sync"
)

// Resource identifies a hardware resource class for usage reporting.
type Resource string

const (
	ResourceGyro          Resource = "gyro"
	ResourceAnalogChannel Resource = "analog_channel"
)

var (
	usageMu sync.Mutex
	usage   = map[Resource]map[int]int{}
)

// ReportUsage records that a resource instance is in use. The counts feed the
// hardware usage summary; the log line doubles as a construction-order trace
// when several rate-sensitive channels share the sampling clock.
func ReportUsage(resource Resource, instance int) {
	usageMu.Lock()
	defer usageMu.Unlock()
	if usage[resource] == nil {
		usage[resource] = map[int]int{}
	}
	usage[resource][instance]++
	log.Printf("telemetry: %s %d in use (%d report(s))", resource, instance, usage[resource][instance])
}

// UsageCount returns how many times a resource instance was reported.
func UsageCount(resource Resource, instance int) int {
	usageMu.Lock()
	defer usageMu.Unlock()
	return usage[resource][instance]
}
