// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/gyro"
	"github.com/relabs-tech/gyro_computer/internal/heading"
	"github.com/relabs-tech/gyro_computer/internal/telemetry"
)

// RunGyroProducer constructs the gyro (calibrating unless presets are
// configured), then publishes heading/rate JSON over MQTT until interrupted.
func RunGyroProducer() error {
	log.Println("starting gyro-computer heading producer")

	cfg := config.Get()

	// --- Build the gyro: real ADC channel or simulation ---
	var g *gyro.Gyro
	var err error
	var stopSim func()

	if cfg.GyroSimulated {
		log.Println("using simulated analog channel")
		sim := newSimGyroChannel(cfg.GyroChannel)
		if cfg.HasPreset() {
			g, err = gyro.AttachPreset(sim.channel, cfg.GyroPresetCenter, cfg.GyroPresetOffset)
		} else {
			g, err = gyro.Attach(sim.channel)
		}
		if err == nil {
			sim.start()
			stopSim = sim.stop
		}
	} else {
		if cfg.HasPreset() {
			log.Printf("using preset calibration center=%d offset=%+f",
				cfg.GyroPresetCenter, cfg.GyroPresetOffset)
			g, err = gyro.NewPreset(cfg.GyroChannel, cfg.GyroPresetCenter, cfg.GyroPresetOffset)
		} else {
			log.Println("calibrating gyro, keep the robot stationary")
			g, err = gyro.New(cfg.GyroChannel)
		}
	}
	if err != nil {
		return err
	}
	defer g.Close()
	if stopSim != nil {
		defer stopSim()
	}

	if cfg.GyroSensitivity > 0 {
		g.SetSensitivity(cfg.GyroSensitivity)
	}
	if cfg.GyroDeadbandVolts > 0 {
		if err := g.SetDeadband(cfg.GyroDeadbandVolts); err != nil {
			return err
		}
	}

	for _, e := range telemetry.Snapshot() {
		log.Printf("registered sensor: %s channel %d", e.Kind, e.Channel)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigc:
			log.Println("shutting down heading producer")
			return nil
		case t := <-ticker.C:
			// Every registered gyro gets its own heading message; a second
			// instance on another channel just shows up on the same topic.
			for _, e := range telemetry.Snapshot() {
				angle, err := e.Sensor.Angle()
				if err != nil {
					log.Printf("error reading angle: %v", err)
					continue
				}
				rate, err := e.Sensor.Rate()
				if err != nil {
					log.Printf("error reading rate: %v", err)
					continue
				}

				payload, err := json.Marshal(heading.Heading{
					AngleDeg:   angle,
					RateDegSec: rate,
					Channel:    e.Channel,
					Time:       t.Format(time.RFC3339),
				})
				if err != nil {
					log.Printf("json marshal error: %v", err)
					continue
				}

				token := client.Publish(cfg.TopicHeading, 0, true, payload)
				token.Wait()
				if token.Error() != nil {
					log.Printf("heading publish error: %v", token.Error())
				}
			}
		}
	}
}
