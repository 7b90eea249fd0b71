// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// buzzer-tool plays a beep pattern on a buzzer wired to a GPIO line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/GermanBionicSystems/iotctrl/buzzer"
	"github.com/GermanBionicSystems/iotctrl/chardev"
	"github.com/GermanBionicSystems/iotctrl/internal/cmdutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

func defaultPattern() string {
	steps := make([]string, len(buzzer.Alarm))
	for i, b := range buzzer.Alarm {
		steps[i] = b.String()
	}
	return strings.Join(steps, ",")
}

func main() {
	app := &cli.App{
		Name:  "buzzer-tool",
		Usage: "play a beep pattern",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "device-path",
				Aliases: []string{"p"},
				Value:   chardev.DefaultPath,
				Usage:   "GPIO chip `PATH`",
				EnvVars: []string{"IOTCTRL_GPIOCHIP"},
			},
			&cli.IntFlag{
				Name:  "pin",
				Value: buzzer.DefaultPin,
				Usage: "line offset of the buzzer",
			},
			&cli.StringFlag{
				Name:  "pattern",
				Value: defaultPattern(),
				Usage: "comma separated on:<duration> and off:<duration> steps",
			},
			&cli.IntFlag{
				Name:  "repeat",
				Value: 1,
				Usage: "number of times to play the pattern, 0 to repeat until interrupted",
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
	logger, err := cmdutil.Logger("buzzer", c.Bool(cmdutil.DebugFlag.Name))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	seq, err := buzzer.ParsePattern(c.String("pattern"))
	if err != nil {
		return err
	}
	n := c.Int("repeat")
	if n < 0 {
		return errors.New("--repeat must be >= 0")
	}

	path, offset := c.String("device-path"), c.Int("pin")
	chip, err := chardev.Open(path, buzzer.Consumer)
	if err != nil {
		return fmt.Errorf("%w: %w", buzzer.ErrOpen, err)
	}
	defer func() {
		err = multierr.Append(err, chip.Close())
	}()
	pin, err := chip.Output(offset)
	if err != nil {
		return fmt.Errorf("%w %d: %w", buzzer.ErrLine, offset, err)
	}
	defer func() {
		err = multierr.Append(err, pin.Halt())
	}()

	ctx, stop := cmdutil.SignalContext(c.Context)
	defer stop()
	logger.Debugw("playing", "line", pin.String(), "pattern", seq, "repeat", n)
	if err = buzzer.New(pin).Repeat(ctx, seq, n); errors.Is(err, context.Canceled) {
		logger.Infow("interrupted")
		return nil
	}
	return err
}
