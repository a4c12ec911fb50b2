package socketiosink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	event string
	args  []any
}

type fakeEmitter struct {
	mu   sync.Mutex
	sent []emitted
	err  error
}

func (f *fakeEmitter) Emit(ev string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, emitted{event: ev, args: args})
	return f.err
}

func TestSink_EmitsPayload(t *testing.T) {
	// Arrange
	em := &fakeEmitter{}
	s := New(em, "")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Act
	s.OnEvent(context.Background(), events.Event{
		Seq: 7, RunID: "r1", Kind: events.KindTransition, Label: "sum",
		From: node.StatusRunning, To: node.StatusFailed, Err: errors.New("boom"), Time: now,
	})

	// Assert
	require.Len(t, em.sent, 1)
	assert.Equal(t, DefaultEvent, em.sent[0].event)
	require.Len(t, em.sent[0].args, 1)
	assert.Equal(t, Payload{
		Seq: 7, RunID: "r1", Kind: "transition", Label: "sum",
		From: "running", To: "failed", Error: "boom", Time: now,
	}, em.sent[0].args[0])
}

func TestSink_RunEventsHaveNoStatuses(t *testing.T) {
	p := NewPayload(events.Event{Seq: 1, Kind: events.KindRunStarted})

	assert.Equal(t, "run_started", p.Kind)
	assert.Empty(t, p.From)
	assert.Empty(t, p.To)
}

func TestSink_EmitErrorIsSwallowed(t *testing.T) {
	em := &fakeEmitter{err: errors.New("socket closed")}
	s := New(em, "custom")

	assert.NotPanics(t, func() {
		s.OnEvent(context.Background(), events.Event{Kind: events.KindRunFinished})
	})
	assert.Equal(t, "custom", em.sent[0].event)
	assert.NoError(t, s.Close())
}

func TestConnect_RejectsRelativeURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{URL: "/socket.io"})
	assert.ErrorContains(t, err, "must be absolute")
}
