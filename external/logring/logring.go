// Logging ring buffer collaborator
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package logring is the leveled widening of the teacher's raw
// print()-to-UART style: a generic structured-logging framework has no
// place on bare metal, so this is a small, allocation-light ring
// buffer guarded by the caller's per-CPU re-entrancy flag (so a log
// call made while handling an allocator failure under the heap lock
// cannot recurse into itself).
package logring

import (
	"fmt"
	"sync"
)

// Level classifies a logged line.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "?"
	}
}

// ReentrancyGuard is satisfied structurally by *sched.PerCPU without
// this package importing sched: Printf drops the line entirely rather
// than recurse if EnterLogging reports the guard already held.
type ReentrancyGuard interface {
	EnterLogging() bool
	ExitLogging()
}

// Logger is a fixed-capacity ring buffer of formatted lines.
type Logger struct {
	mu   sync.Mutex
	buf  []byte
	head int
	size int
}

// New allocates a Logger with the given byte capacity.
func New(capacity int) *Logger {
	return &Logger{buf: make([]byte, capacity)}
}

// Printf formats a line under guard and appends it to the ring,
// dropping the call if a logging call is already in progress on this
// CPU.
func (l *Logger) Printf(guard ReentrancyGuard, level Level, format string, args ...interface{}) {
	if !guard.EnterLogging() {
		return
	}
	defer guard.ExitLogging()

	line := level.String() + ": " + fmt.Sprintf(format, args...) + "\n"
	l.append([]byte(line))
}

func (l *Logger) append(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range b {
		l.buf[l.head] = c
		l.head = (l.head + 1) % len(l.buf)

		if l.size < len(l.buf) {
			l.size++
		}
	}
}

// Drain returns the buffered lines in chronological order and empties
// the ring.
func (l *Logger) Drain() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]byte, l.size)
	start := (l.head - l.size + len(l.buf)) % len(l.buf)

	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(start+i)%len(l.buf)]
	}

	l.head = 0
	l.size = 0

	return out
}
