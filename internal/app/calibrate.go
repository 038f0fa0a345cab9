package app

import (
	"fmt"
	"log"

	"github.com/relabs-tech/gyro_computer/internal/config"
	"github.com/relabs-tech/gyro_computer/internal/gyro"
)

// RunCalibrate performs one stationary calibration pass and prints the
// resulting center/offset as config lines, so later runs can skip the wait
// with the preset constructors.
func RunCalibrate() error {
	cfg := config.Get()

	var g *gyro.Gyro
	var err error

	if cfg.GyroSimulated {
		log.Println("calibrating against the simulated channel")
		sim := newSimGyroChannel(cfg.GyroChannel)
		g, err = gyro.Attach(sim.channel)
	} else {
		log.Println("calibrating, keep the robot stationary for 5 seconds")
		g, err = gyro.New(cfg.GyroChannel)
	}
	if err != nil {
		return err
	}
	defer g.Close()

	fmt.Println("# add to the config file to skip calibration on startup:")
	fmt.Printf("GYRO_PRESET_CENTER=%d\n", g.Center())
	fmt.Printf("GYRO_PRESET_OFFSET=%f\n", g.Offset())
	return nil
}
