// SeqLock primitive
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sync

import "sync/atomic"

// SeqLock[T] lets writers bump a generation counter around an update
// while readers snapshot-then-re-read, retrying on an odd generation.
// Readers are entirely lock-free.
type SeqLock[T any] struct {
	seq     uint64
	payload T
}

// NewSeqLock creates a SeqLock initialized with the given payload.
func NewSeqLock[T any](payload T) *SeqLock[T] {
	return &SeqLock[T]{payload: payload}
}

// Write applies fn to the payload under an odd-generation window; readers
// observe the odd generation and retry rather than read a torn value.
func (l *SeqLock[T]) Write(fn func(*T)) {
	atomic.AddUint64(&l.seq, 1) // now odd: writer in progress
	fn(&l.payload)
	atomic.AddUint64(&l.seq, 1) // now even: update visible
}

// Read returns a consistent snapshot of the payload, retrying whenever it
// observes an in-progress write (begin != end, or either is odd).
func (l *SeqLock[T]) Read() T {
	for {
		begin := atomic.LoadUint64(&l.seq)
		if begin&1 != 0 {
			pause()
			continue
		}

		snapshot := l.payload

		end := atomic.LoadUint64(&l.seq)
		if begin == end {
			return snapshot
		}
	}
}
