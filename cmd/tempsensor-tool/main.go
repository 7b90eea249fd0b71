// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tempsensor-tool prints the readings of a Modbus temperature transmitter.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/GermanBionicSystems/iotctrl/internal/cmdutil"
	"github.com/GermanBionicSystems/iotctrl/tempsensor"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

func main() {
	app := &cli.App{
		Name:  "tempsensor-tool",
		Usage: "read a Modbus RTU temperature transmitter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "device-path",
				Aliases: []string{"p"},
				Value:   tempsensor.DefaultPath,
				Usage:   "serial device `PATH` of the transmitter",
				EnvVars: []string{"IOTCTRL_TEMPSENSOR"},
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Value:   1,
				Usage:   "number of probes to read",
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
	logger, err := cmdutil.Logger("tempsensor", c.Bool(cmdutil.DebugFlag.Name))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	dev, port, err := tempsensor.Open(c.String("device-path"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, port.Close())
	}()
	ctx, stop := cmdutil.SignalContext(c.Context)
	defer stop()

	count, interval := c.Int("count"), c.Duration("interval")
	for {
		readings, err := dev.Read(count)
		if err != nil {
			return err
		}
		for i, r := range readings {
			if !r.Valid() {
				logger.Warnw("probe might be missing or broken", "probe", i, "raw", int16(r))
			}
			fmt.Fprintf(c.App.Writer, "%d: %s\n", i, r)
		}
		if interval <= 0 {
			return nil
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil
		}
	}
}
