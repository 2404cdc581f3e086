// IPC message queue collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ipc defines a bounded, rate-limited message queue: a
// userspace IPC message bus is out of core scope, but the queue's
// send-side backpressure limiter is exercised here so the dependency
// has a concrete caller. The Message shape mirrors a pack IPC helper's
// request encoding (a type tag plus opaque payload), generalized from
// a Unix-socket client/server to an in-process producer/consumer.
package ipc

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/usbarmory/virtcore/kernelerr"
)

// Message is the unit exchanged over a Queue.
type Message struct {
	Type    uint16
	Payload []byte
}

// Queue is a bounded channel of Messages gated by a token-bucket
// limiter on the send side.
type Queue struct {
	ch      chan Message
	limiter *rate.Limiter
}

// NewQueue creates a Queue of the given capacity, admitting at most
// burst sends immediately and refilling at r per second thereafter.
func NewQueue(capacity int, r rate.Limit, burst int) *Queue {
	return &Queue{
		ch:      make(chan Message, capacity),
		limiter: rate.NewLimiter(r, burst),
	}
}

// Send enqueues msg, blocking on the limiter and then on queue
// capacity until ctx is done.
func (q *Queue) Send(ctx context.Context, msg Message) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return kernelerr.New(kernelerr.Busy, "ipc", "Send", err.Error())
	}

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return kernelerr.New(kernelerr.Busy, "ipc", "Send", "queue full")
	}
}

// Recv dequeues the next message, blocking until one is available or
// ctx is done.
func (q *Queue) Recv(ctx context.Context) (Message, error) {
	select {
	case m := <-q.ch:
		return m, nil
	case <-ctx.Done():
		return Message{}, kernelerr.New(kernelerr.NotFound, "ipc", "Recv", "no message available")
	}
}
