package artwork_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

func TestLoop_RunsInPostOrder(t *testing.T) {
	loop := startLoop(t)

	var got []int
	for i := 0; i < 50; i++ {
		loop.Post(func() { got = append(got, i) })
	}
	drain(t, loop)

	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, order not preserved", i, v)
		}
	}
	if len(got) != 50 {
		t.Errorf("ran %d functions, want 50", len(got))
	}
}

func TestLoop_PostFromLoopDoesNotBlock(t *testing.T) {
	loop := startLoop(t)

	ch := make(chan struct{})
	loop.Post(func() {
		for i := 0; i < 1000; i++ {
			loop.Post(func() {})
		}
		loop.Post(func() { close(ch) })
	})

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("nested posts did not run")
	}
}

func TestLoop_SurvivesPanic(t *testing.T) {
	loop := startLoop(t)
	loop.Post(func() { panic("boom") })
	drain(t, loop)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	loop := artwork.NewLoop()
	loop.Post(func() {})
	if loop.Len() != 1 {
		t.Errorf("Len = %d, want 1", loop.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
