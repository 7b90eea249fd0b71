// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// relay-tool switches a USB serial relay on or off.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/GermanBionicSystems/iotctrl/internal/cmdutil"
	"github.com/GermanBionicSystems/iotctrl/relay"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "relay-tool",
		Usage: "switch a USB serial relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "device-path",
				Aliases: []string{"p"},
				Value:   relay.DefaultPath,
				Usage:   "serial device `PATH` of the relay",
				EnvVars: []string{"IOTCTRL_RELAY"},
			},
			&cli.BoolFlag{Name: "on", Usage: "switch the relay on"},
			&cli.BoolFlag{Name: "off", Usage: "switch the relay off"},
			cmdutil.DebugFlag,
		},
		Action: func(c *cli.Context) error {
			logger, err := cmdutil.Logger("relay", c.Bool(cmdutil.DebugFlag.Name))
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			on, off := c.Bool("on"), c.Bool("off")
			if on == off {
				return errors.New("exactly one of --on and --off is required")
			}
			path := c.String("device-path")
			if err := relay.Set(path, on, nil); err != nil {
				return err
			}
			logger.Infow("relay switched", "device", path, "on", on)
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
