// Package connection keeps a single live telemetry transport open and
// reconnects after a fixed delay when it drops.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"deposition_dashboard/internal/clock"
	"deposition_dashboard/internal/logger"
)

// DefaultReconnectDelay is the wait between a drop and the next attempt.
const DefaultReconnectDelay = 3 * time.Second

const eventQueueSize = 64

var (
	// ErrTransportClosed marks a clean close by the remote end.
	ErrTransportClosed = errors.New("transport closed")
	// ErrDial wraps failures to establish the transport.
	ErrDial = errors.New("dial telemetry endpoint")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("connection manager already running")
)

// Transport is one established telemetry connection.
type Transport interface {
	// ReadMessage blocks until the next frame arrives or the transport fails.
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a Transport to url.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Transport, error) { return f(ctx, url) }

// Callbacks are invoked from the manager's loop goroutine, one at a time.
type Callbacks struct {
	OnStatus func(s Status, err error)
	OnFrame  func(data []byte)
}

// Config controls where and how often the manager connects.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
}

type event interface{}

type (
	connectEvent struct{}
	retryEvent   struct{}
	dialedEvent  struct {
		gen uint64
		t   Transport
		err error
	}
	frameEvent struct {
		gen  uint64
		data []byte
	}
	closedEvent struct {
		gen uint64
		err error
	}
)

// Manager owns the telemetry transport. All state transitions happen on the
// goroutine running Run; other goroutines talk to it through events.
type Manager struct {
	cfg    Config
	dialer Dialer
	clock  clock.Clock
	log    *logger.Logger
	cb     Callbacks

	events   chan event
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool
	alive    atomic.Bool
	status   atomic.Int32
	attempts atomic.Int64

	// owned by the loop
	transport Transport
	gen       uint64
	dialing   bool
	retry     clock.Timer
}

// NewManager builds a manager. Nothing is dialed until Run.
func NewManager(cfg Config, dialer Dialer, clk clock.Clock, log *logger.Logger, cb Callbacks) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		clock:  clk,
		log:    log,
		cb:     cb,
		events: make(chan event, eventQueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.alive.Store(true)
	return m
}

// Status returns the current connection status.
func (m *Manager) Status() Status { return Status(m.status.Load()) }

// Attempts returns how many dials have been started.
func (m *Manager) Attempts() int64 { return m.attempts.Load() }

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Run connects and processes events until ctx is cancelled or Teardown is
// called. The transport is closed and any pending retry cancelled on return.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.done)

	m.connect(ctx)
	for {
		select {
		case <-ctx.Done():
			m.alive.Store(false)
			m.teardown()
			return nil
		case <-m.stop:
			m.teardown()
			return nil
		case ev := <-m.events:
			m.handle(ctx, ev)
		}
	}
}

// Connect requests a connection. It is a no-op while a transport is open or
// a dial is in flight.
func (m *Manager) Connect() {
	m.post(connectEvent{})
}

// Teardown stops the manager for good. Safe to call more than once and
// before Run.
func (m *Manager) Teardown() {
	m.stopOnce.Do(func() {
		m.alive.Store(false)
		close(m.stop)
	})
}

func (m *Manager) post(ev event) bool {
	if !m.alive.Load() {
		return false
	}
	select {
	case m.events <- ev:
		return true
	case <-m.stop:
		return false
	case <-m.done:
		return false
	}
}

func (m *Manager) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		m.connect(ctx)
	case retryEvent:
		m.retry = nil
		m.connect(ctx)
	case dialedEvent:
		m.dialed(ev)
	case frameEvent:
		if ev.gen == m.gen && m.transport != nil && m.cb.OnFrame != nil {
			m.cb.OnFrame(ev.data)
		}
	case closedEvent:
		if ev.gen != m.gen || m.transport == nil {
			return
		}
		_ = m.transport.Close()
		m.transport = nil
		m.log.Warnw("telemetry_connection_lost", "url", m.cfg.URL, "err", ev.err)
		m.fail(ev.err)
	}
}

func (m *Manager) connect(ctx context.Context) {
	if !m.alive.Load() || m.transport != nil || m.dialing {
		return
	}
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}

	m.gen++
	m.dialing = true
	m.attempts.Add(1)
	m.setStatus(Connecting, nil)
	m.log.Debugw("telemetry_dialing", "url", m.cfg.URL, "attempt", m.attempts.Load())

	go func(gen uint64) {
		t, err := m.dialer.Dial(ctx, m.cfg.URL)
		if !m.post(dialedEvent{gen: gen, t: t, err: err}) && t != nil {
			_ = t.Close()
		}
	}(m.gen)
}

func (m *Manager) dialed(ev dialedEvent) {
	if ev.gen != m.gen {
		if ev.t != nil {
			_ = ev.t.Close()
		}
		return
	}
	m.dialing = false

	if ev.err != nil {
		m.log.Warnw("telemetry_dial_failed", "url", m.cfg.URL, "err", ev.err)
		m.fail(fmt.Errorf("%w: %w", ErrDial, ev.err))
		return
	}

	m.transport = ev.t
	m.setStatus(Connected, nil)
	m.log.Infow("telemetry_connected", "url", m.cfg.URL)
	go m.readLoop(m.gen, ev.t)
}

func (m *Manager) readLoop(gen uint64, t Transport) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			m.post(closedEvent{gen: gen, err: err})
			return
		}
		if !m.post(frameEvent{gen: gen, data: data}) {
			return
		}
	}
}

// fail records the drop and schedules the single pending retry.
func (m *Manager) fail(err error) {
	m.setStatus(Reconnecting, err)
	if m.retry != nil {
		return
	}
	m.log.Infow("telemetry_reconnect_scheduled", "delay", m.cfg.ReconnectDelay.String())
	m.retry = m.clock.AfterFunc(m.cfg.ReconnectDelay, func() {
		if !m.alive.Load() {
			return
		}
		m.post(retryEvent{})
	})
}

func (m *Manager) teardown() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
	// invalidates any dial still in flight and frames already queued
	m.gen++
	m.dialing = false
	if m.Status() != Disconnected {
		m.setStatus(Disconnected, nil)
		m.log.Infow("telemetry_disconnected", "url", m.cfg.URL)
	}
}

func (m *Manager) setStatus(s Status, err error) {
	m.status.Store(int32(s))
	if m.cb.OnStatus != nil {
		m.cb.OnStatus(s, err)
	}
}
