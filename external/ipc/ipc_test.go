package ipc

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestQueueSendRecv(t *testing.T) {
	q := NewQueue(4, rate.Inf, 4)
	ctx := context.Background()

	if err := q.Send(ctx, Message{Type: 1, Payload: []byte("hi")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m, err := q.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}

	if m.Type != 1 || string(m.Payload) != "hi" {
		t.Fatalf("got %+v", m)
	}
}

func TestQueueRecvTimeout(t *testing.T) {
	q := NewQueue(1, rate.Inf, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Recv(ctx); err == nil {
		t.Fatal("expected error on empty queue with cancelled context")
	}
}
