// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sevenseg-tool cycles a demo on 74HC595 based 7-segment display modules.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/GermanBionicSystems/iotctrl/chardev"
	"github.com/GermanBionicSystems/iotctrl/internal/cmdutil"
	"github.com/GermanBionicSystems/iotctrl/nxp74hc595"
	"github.com/GermanBionicSystems/iotctrl/screen7seg"
	"github.com/GermanBionicSystems/iotctrl/sevenseg"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	flagDevicePath  = "device-path"
	flagDataPin     = "data-pin"
	flagClockPin    = "clock-pin"
	flagLatchPin    = "latch-pin"
	flagChainCount  = "chain-count"
	flagRefreshRate = "refresh-rate"
	flagSPI         = "spi"
	flagEmulate     = "emulate"
)

const (
	allOnDuration = 5 * time.Second
	valueDuration = 2 * time.Second
)

// demoValues sweeps every digit position, sign and decimal.
var demoValues = []float32{
	-99.9, -8.8, -0.7, -6.6, -55.5, -4.4, -0.3, -2.2, -11.1, 0,
	0.1, 2.2, 33.3, 444.4, 55.5, 6.6, 0.7, 8.8, 99.9,
}

func main() {
	app := &cli.App{
		Name:  "sevenseg-tool",
		Usage: "show a demo on chained 4 digit 7-segment display modules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagDevicePath,
				Aliases: []string{"p"},
				Value:   chardev.DefaultPath,
				Usage:   "GPIO chip `PATH`",
				EnvVars: []string{"IOTCTRL_GPIOCHIP"},
			},
			&cli.IntFlag{
				Name:    flagDataPin,
				Aliases: []string{"d"},
				Value:   sevenseg.DefaultOpts.DataPin,
				Usage:   "line offset wired to DIO",
			},
			&cli.IntFlag{
				Name:    flagClockPin,
				Aliases: []string{"s"},
				Value:   sevenseg.DefaultOpts.ClockPin,
				Usage:   "line offset wired to SCLK",
			},
			&cli.IntFlag{
				Name:    flagLatchPin,
				Aliases: []string{"l"},
				Value:   sevenseg.DefaultOpts.LatchPin,
				Usage:   "line offset wired to RCLK",
			},
			&cli.IntFlag{
				Name:    flagChainCount,
				Aliases: []string{"c"},
				Value:   sevenseg.DefaultOpts.Chain,
				Usage:   "number of daisy chained 4 digit modules, 1 or 2",
			},
			&cli.IntFlag{
				Name:    flagRefreshRate,
				Aliases: []string{"r"},
				Value:   1000,
				Usage:   "digit refresh rate in `HZ`",
			},
			&cli.StringFlag{
				Name:  flagSPI,
				Usage: "shift through SPI `PORT` (e.g. /dev/spidev0.0) instead of bit-banging; the latch pin is then a periph GPIO number",
			},
			&cli.BoolFlag{
				Name:  flagEmulate,
				Usage: "render an emulated display on the terminal instead of driving GPIOs",
			},
			cmdutil.DebugFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func optsFromFlags(c *cli.Context, logger *zap.SugaredLogger) sevenseg.Opts {
	o := sevenseg.DefaultOpts
	o.DevicePath = c.String(flagDevicePath)
	o.DataPin = c.Int(flagDataPin)
	o.ClockPin = c.Int(flagClockPin)
	o.LatchPin = c.Int(flagLatchPin)
	o.Chain = c.Int(flagChainCount)
	o.RefreshRate = physic.Frequency(c.Int(flagRefreshRate)) * physic.Hertz
	o.Logger = logger
	return o
}

func run(c *cli.Context) error {
	logger, err := cmdutil.Logger("sevenseg", c.Bool(cmdutil.DebugFlag.Name))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	ctx, stop := cmdutil.SignalContext(c.Context)
	defer stop()

	o := optsFromFlags(c, logger)
	dev, err := open(c, &o)
	if err != nil {
		return err
	}
	logger.Infow("display opened", "display", dev.String())
	err = demo(ctx, dev, logger)
	return multierr.Append(err, dev.Halt())
}

func open(c *cli.Context, o *sevenseg.Opts) (*sevenseg.Dev, error) {
	switch {
	case c.IsSet(flagSPI):
		return openSPI(c.String(flagSPI), o)
	case c.Bool(flagEmulate):
		o.OpenChip = func(path, consumer string) (sevenseg.Chip, error) {
			return &emulator{screen7seg.New(&screen7seg.Opts{
				Data:     o.DataPin,
				Clock:    o.ClockPin,
				Latch:    o.LatchPin,
				Digits:   o.Chain * sevenseg.DigitsPerModule,
				Interval: 50 * time.Millisecond,
			})}, nil
		}
	}
	return sevenseg.Open(o)
}

// emulator restores the terminal when the display releases it.
type emulator struct {
	*screen7seg.Dev
}

func (e *emulator) Close() error {
	return multierr.Append(e.Dev.Close(), e.Dev.Halt())
}

// spiLink owns the SPI port it shifts through.
type spiLink struct {
	*nxp74hc595.Dev
	port spi.PortCloser
}

func (l *spiLink) Halt() error {
	return multierr.Append(l.Dev.Halt(), l.port.Close())
}

func openSPI(name string, o *sevenseg.Opts) (*sevenseg.Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	latchName := fmt.Sprintf("GPIO%d", o.LatchPin)
	latch := gpioreg.ByName(latchName)
	if latch == nil {
		return nil, fmt.Errorf("%w: no gpio named %s", sevenseg.ErrLine, latchName)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, err
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, multierr.Append(err, port.Close())
	}
	dev, err := nxp74hc595.NewSPI(conn, latch)
	if err == nil {
		err = dev.Reset()
	}
	if err != nil {
		return nil, multierr.Append(err, port.Close())
	}
	return sevenseg.New(&spiLink{Dev: dev, port: port}, o)
}

// demo lights everything, then cycles demoValues on every four digit group
// until ctx is done.
func demo(ctx context.Context, dev *sevenseg.Dev, logger *zap.SugaredLogger) error {
	if err := dev.AllSegmentsOn(ctx, allOnDuration); err != nil {
		return ignoreCancel(err)
	}
	t := time.NewTicker(valueDuration)
	defer t.Stop()
	for {
		for _, v := range demoValues {
			for i := 0; i < dev.DigitCount()/sevenseg.DigitsPerModule; i++ {
				if err := dev.UpdateFloat(v, i); err != nil {
					return err
				}
			}
			logger.Debugw("showing", "value", v)
			select {
			case <-t.C:
			case <-ctx.Done():
				logger.Infow("stopping", "cause", context.Cause(ctx))
				return ignoreCancel(ctx.Err())
			}
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
