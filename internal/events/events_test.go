package events

import (
	"context"
	"sync"
	"testing"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	var a, b Recorder
	var calls int
	counter := ObserverFunc(func(context.Context, Event) { calls++ })

	obs := Combine(&a, nil, &b, counter)
	obs.OnEvent(context.Background(), Event{Seq: 1, Kind: KindRunStarted})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
	assert.Equal(t, 1, calls)

	// A single observer is returned as is.
	assert.Same(t, &a, Combine(nil, &a))
	assert.Nil(t, Combine(nil, nil))
}

func TestRecorder_Transitions(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.OnEvent(ctx, Event{Kind: KindRunStarted})
		}()
	}
	wg.Wait()

	r.OnEvent(ctx, Event{Kind: KindTransition, Label: "a", From: node.StatusPending, To: node.StatusReady})
	r.OnEvent(ctx, Event{Kind: KindTransition, Label: "b", From: node.StatusPending, To: node.StatusSkipped})
	r.OnEvent(ctx, Event{Kind: KindTransition, Label: "a", From: node.StatusReady, To: node.StatusRunning})

	require.Len(t, r.Events(), 53)
	assert.Equal(t, []node.Status{node.StatusReady, node.StatusRunning}, r.Transitions("a"))
}

func TestEvent_String(t *testing.T) {
	ev := Event{Seq: 3, Kind: KindTransition, Label: "a", From: node.StatusRunning, To: node.StatusDone}
	assert.Equal(t, "#3 a: running -> done", ev.String())
	assert.Equal(t, "#1 run_finished", Event{Seq: 1, Kind: KindRunFinished}.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
