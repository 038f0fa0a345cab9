// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"sort"
	"sync"
)

// Readings is what a registered sensor exposes for monitoring: the integrated
// heading and the instantaneous rate. Both degrade to 0.0 once the sensor is
// released, so a stale registry entry never faults a display loop.
type Readings interface {
	Angle() (float64, error)
	Rate() (float64, error)
}

// Entry is one registered sensor, keyed by kind and channel index.
type Entry struct {
	Kind    string
	Channel int
	Sensor  Readings
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Entry{}
)

func key(kind string, channel int) string {
	return fmt.Sprintf("%s/%d", kind, channel)
}

// Register adds a sensor to the monitoring registry. Registering the same
// kind/channel pair again replaces the previous entry.
func Register(kind string, channel int, sensor Readings) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key(kind, channel)] = Entry{Kind: kind, Channel: channel, Sensor: sensor}
}

// Unregister removes a sensor from the registry. Unknown keys are ignored so
// teardown paths can call it unconditionally.
func Unregister(kind string, channel int) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, key(kind, channel))
}

// Snapshot returns the registered sensors ordered by key, for display and
// web consumers.
func Snapshot() []Entry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	entries := make([]Entry, 0, len(registry))
	for _, e := range registry {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Channel < entries[j].Channel
	})
	return entries
}
