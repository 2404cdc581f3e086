// Semaphore primitive
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sync

import (
	"sync/atomic"

	"github.com/usbarmory/virtcore/kernelerr"
)

// Semaphore is a counting semaphore; Acquire yields to the scheduler
// while the count is zero.
type Semaphore struct {
	count int64
}

// NewSemaphore creates a Semaphore with the given initial count.
func NewSemaphore(initial int64) *Semaphore {
	return &Semaphore{count: initial}
}

// Acquire blocks (yielding repeatedly) until a unit is available.
func (s *Semaphore) Acquire() {
	for {
		for {
			cur := atomic.LoadInt64(&s.count)
			if cur <= 0 {
				break
			}
			if atomic.CompareAndSwapInt64(&s.count, cur, cur-1) {
				return
			}
		}

		yieldNow()
	}
}

// TryAcquire attempts a non-blocking acquisition, returning a Busy error
// if the count is currently zero.
func (s *Semaphore) TryAcquire() error {
	for {
		cur := atomic.LoadInt64(&s.count)
		if cur <= 0 {
			return kernelerr.New(kernelerr.Busy, "sync", "Semaphore.TryAcquire", "count is zero")
		}
		if atomic.CompareAndSwapInt64(&s.count, cur, cur-1) {
			return nil
		}
	}
}

// Release returns a unit to the semaphore.
func (s *Semaphore) Release() {
	atomic.AddInt64(&s.count, 1)
}

// Count returns the current count (diagnostic use only; racy by design).
func (s *Semaphore) Count() int64 {
	return atomic.LoadInt64(&s.count)
}
