// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmdutil

import (
	"context"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestLoggerConfig(t *testing.T) {
	if l := LoggerConfig(false).Level.Level(); l != zapcore.InfoLevel {
		t.Errorf("level %s", l)
	}
	if l := LoggerConfig(true).Level.Level(); l != zapcore.DebugLevel {
		t.Errorf("level %s", l)
	}
	logger, err := Logger("test", true)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debugw("built", "ok", true)
}

func TestSignalContext(t *testing.T) {
	ctx, stop := SignalContext(context.Background())
	defer stop()
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
