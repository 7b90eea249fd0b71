// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sht31-tool prints the temperature and humidity measured by a SHT31.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/GermanBionicSystems/iotctrl/internal/cmdutil"
	"github.com/GermanBionicSystems/iotctrl/sht31"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func main() {
	app := &cli.App{
		Name:  "sht31-tool",
		Usage: "read a SHT31 temperature and humidity sensor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bus",
				Aliases: []string{"b"},
				Usage:   "I²C bus `NAME`, the first one if empty",
				EnvVars: []string{"IOTCTRL_I2C_BUS"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Value: fmt.Sprintf("0x%02x", uint16(sht31.DefaultAddress)),
				Usage: "I²C address, 0x44 or 0x45",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "keep reading every `DURATION` until interrupted",
			},
			cmdutil.DebugFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) (err error) {
	logger, err := cmdutil.Logger("sht31", c.Bool(cmdutil.DebugFlag.Name))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	addr, err := strconv.ParseUint(c.String("addr"), 0, 16)
	if err != nil {
		return fmt.Errorf("invalid --addr: %w", err)
	}
	if _, err = host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(c.String("bus"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, bus.Close())
	}()
	dev, err := sht31.New(bus, i2c.Addr(addr))
	if err != nil {
		return err
	}
	logger.Debugw("sensor opened", "sensor", dev.String())

	interval := c.Duration("interval")
	if interval <= 0 {
		env := physic.Env{}
		if err = dev.Sense(&env); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Temperature: %s   Humidity: %s\n", env.Temperature, env.Humidity)
		return nil
	}
	ctx, stop := cmdutil.SignalContext(c.Context)
	defer stop()
	ch, err := dev.SenseContinuous(interval)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dev.Halt())
	}()
	for {
		select {
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Fprintf(c.App.Writer, "Temperature: %s   Humidity: %s\n", env.Temperature, env.Humidity)
		case <-ctx.Done():
			return nil
		}
	}
}
