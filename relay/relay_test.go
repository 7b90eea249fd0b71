// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package relay

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakePort struct {
	bytes.Buffer
	limit  int
	err    error
	closed int
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.limit > 0 && len(b) > p.limit {
		n, _ := p.Buffer.Write(b[:p.limit])
		return n, p.err
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed++
	return nil
}

func devicePath(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "ttyUSB0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSet(t *testing.T) {
	var tests = []struct {
		on       bool
		expected []byte
	}{
		{on: true, expected: []byte{0xA0, 0x01, 0x01, 0xA2}},
		{on: false, expected: []byte{0xA0, 0x01, 0x00, 0xA1}},
	}
	path := devicePath(t)
	for _, test := range tests {
		port := &fakePort{}
		opened := ""
		opts := &Opts{Open: func(p string) (io.WriteCloser, error) {
			opened = p
			return port, nil
		}}
		if err := Set(path, test.on, opts); err != nil {
			t.Fatalf("Set(%t) returned %v", test.on, err)
		}
		if opened != path {
			t.Errorf("opened %q, expected %q", opened, path)
		}
		if diff := cmp.Diff(test.expected, port.Bytes()); diff != "" {
			t.Errorf("Set(%t) frame mismatch (-want +got):\n%s", test.on, diff)
		}
		if port.closed != 1 {
			t.Errorf("port closed %d times", port.closed)
		}
	}
}

func TestSetWithFile(t *testing.T) {
	path := devicePath(t)
	opts := &Opts{Open: func(p string) (io.WriteCloser, error) {
		return os.OpenFile(p, os.O_WRONLY, 0)
	}}
	if err := Set(path, true, opts); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0xA0, 0x01, 0x01, 0xA2}, b); diff != "" {
		t.Errorf("file content mismatch (-want +got):\n%s", diff)
	}
}

func TestSetErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	opts := &Opts{Open: func(p string) (io.WriteCloser, error) {
		t.Error("opened a missing device")
		return nil, os.ErrNotExist
	}}
	if err := Set(missing, true, opts); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if _, err := os.Stat(missing); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Set() created %s", missing)
	}

	path := devicePath(t)
	errDenied := errors.New("permission denied")
	opts = &Opts{Open: func(p string) (io.WriteCloser, error) { return nil, errDenied }}
	if err := Set(path, true, opts); !errors.Is(err, ErrOpen) || !errors.Is(err, errDenied) {
		t.Errorf("expected ErrOpen wrapping the cause, got %v", err)
	}

	port := &fakePort{limit: 2, err: io.ErrShortWrite}
	opts = &Opts{Open: func(p string) (io.WriteCloser, error) { return port, nil }}
	if err := Set(path, false, opts); !errors.Is(err, ErrShortWrite) {
		t.Errorf("expected ErrShortWrite, got %v", err)
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times after a failed write", port.closed)
	}
}
