// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cmdutil holds the logging and signal handling shared by the
// command line tools.
package cmdutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugFlag enables debug logging.
var DebugFlag = &cli.BoolFlag{
	Name:    "debug",
	Aliases: []string{"v"},
	Usage:   "enable debug logging",
	EnvVars: []string{"IOTCTRL_DEBUG"},
}

// LoggerConfig returns a console logger config writing to stderr, so stdout
// stays free for the tools' output.
func LoggerConfig(debug bool) zap.Config {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// Logger builds the logger of a tool named name.
func Logger(name string, debug bool) (*zap.SugaredLogger, error) {
	l, err := LoggerConfig(debug).Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().Named(name), nil
}

// Signals end the tools.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGABRT}

// SignalContext returns a context cancelled on the first of Signals.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, Signals...)
}
