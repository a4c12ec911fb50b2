// Package socketiosink streams run events to a socket.io server, so a
// dashboard can follow a run live.
package socketiosink

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/events"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the socket.io event name used when none is configured.
const DefaultEvent = "conduit:event"

// Emitter is the subset of *socket.Socket the sink needs.
type Emitter interface {
	Emit(ev string, args ...any) error
}

var _ Emitter = (*socket.Socket)(nil)

// Config describes the server to stream to.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	// ConnectTimeout defaults to 15s.
	ConnectTimeout time.Duration
}

// Payload is the JSON shape of one emitted event.
type Payload struct {
	Seq   uint64    `json:"seq"`
	RunID string    `json:"run_id"`
	Kind  string    `json:"kind"`
	Label string    `json:"label,omitempty"`
	From  string    `json:"from,omitempty"`
	To    string    `json:"to,omitempty"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// NewPayload flattens an event.
func NewPayload(ev events.Event) Payload {
	p := Payload{
		Seq:   ev.Seq,
		RunID: ev.RunID,
		Kind:  ev.Kind.String(),
		Label: ev.Label,
		Time:  ev.Time,
	}
	if ev.Kind == events.KindTransition {
		p.From = ev.From.String()
		p.To = ev.To.String()
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}

// Sink is an events.Observer that emits every event. Emit failures are
// logged and never affect the run.
type Sink struct {
	emitter Emitter
	event   string
	client  *socket.Socket
}

var _ events.Observer = (*Sink)(nil)

// New wraps an existing emitter.
func New(emitter Emitter, event string) *Sink {
	if event == "" {
		event = DefaultEvent
	}
	return &Sink{emitter: emitter, event: event}
}

// Connect opens a websocket connection and waits until the server accepts
// it.
func Connect(ctx context.Context, cfg Config) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", cfg.URL)
	logger.Info("Connecting event sink...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("socket.io URL %q must be absolute", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	logger.Info("Event sink connected.", "sid", io.Id())
	s := New(io, cfg.Event)
	s.client = io
	return s, nil
}

// OnEvent emits the event payload.
func (s *Sink) OnEvent(ctx context.Context, ev events.Event) {
	if err := s.emitter.Emit(s.event, NewPayload(ev)); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit run event.", "event", ev.String(), "error", err)
	}
}

// Close disconnects a sink created by Connect.
func (s *Sink) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	return nil
}
