// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/gps"
	"github.com/relabs-tech/gyro_computer/internal/heading"
)

// RunConsoleMQTT prints every heading message and, when GPS course data is
// present and the vehicle is moving, the heading-vs-course drift.
func RunConsoleMQTT() error {
	cfg := config.Get()

	var (
		mu      sync.Mutex
		lastFix gps.Fix
		haveFix bool
	)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// GPS course first so heading lines can show drift right away
	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastFix = f
		haveFix = true
		mu.Unlock()
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	headingToken := client.Subscribe(cfg.TopicHeading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var h heading.Heading
		if err := json.Unmarshal(msg.Payload(), &h); err != nil {
			log.Printf("console: heading unmarshal error: %v", err)
			return
		}

		mu.Lock()
		fix, ok := lastFix, haveFix
		mu.Unlock()

		// Course over ground is meaningless while stationary; require a
		// valid fix with some speed before comparing.
		if ok && fix.Validity == "A" && fix.SpeedKnots > 1.0 {
			fmt.Printf(
				"[HDG %d]  ANGLE=%8.2f  RATE=%7.2f  COG=%6.1f  DRIFT=%+7.2f\n",
				h.Channel, h.AngleDeg, h.RateDegSec, fix.CourseDeg,
				headingError(h.AngleDeg, fix.CourseDeg),
			)
			return
		}

		fmt.Printf(
			"[HDG %d]  ANGLE=%8.2f  RATE=%7.2f\n",
			h.Channel, h.AngleDeg, h.RateDegSec,
		)
	})
	headingToken.Wait()
	if headingToken.Error() != nil {
		return headingToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicHeading)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// headingError folds the difference between the integrated heading and the
// GPS course into [-180, 180) degrees.
func headingError(angleDeg, courseDeg float64) float64 {
	d := math.Mod(angleDeg-courseDeg, 360)
	if d < -180 {
		d += 360
	} else if d >= 180 {
		d -= 360
	}
	return d
}
