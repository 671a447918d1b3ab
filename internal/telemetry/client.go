package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"deposition_dashboard/internal/clock"
	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/logger"
	"deposition_dashboard/internal/metrics"
	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/store"
)

// User-facing connection error messages.
const (
	ErrMsgConnectionClosed = "telemetry connection closed"
	ErrMsgConnectionError  = "telemetry connection error"
	ErrMsgConnectFailed    = "failed to connect to telemetry"
)

const (
	eventQueueSize = 128
	recordTimeout  = 2 * time.Second
)

// EventRecorder persists diagnostic events.
type EventRecorder interface {
	Append(ctx context.Context, e models.TelemetryEvent) error
}

// Config configures a Client.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
	MergePolicy    store.MergePolicy
}

// Options carries the client's collaborators. Every field is optional.
type Options struct {
	Dialer  connection.Dialer
	Clock   clock.Clock
	Logger  *logger.Logger
	Metrics *metrics.Telemetry
	Events  EventRecorder
}

// Stats summarizes frame handling since the client was created.
type Stats struct {
	Accepted      int64  `json:"accepted"`
	Rejected      int64  `json:"rejected"`
	Ignored       int64  `json:"ignored"`
	LastRejection string `json:"last_rejection,omitempty"`
}

// Client keeps the local SystemState in sync with the telemetry stream and
// publishes it, together with connection status, through a hub.
type Client struct {
	store   *store.Store
	hub     *hub.Hub
	mgr     *connection.Manager
	clock   clock.Clock
	log     *logger.Logger
	metrics *metrics.Telemetry
	events  EventRecorder

	queue   chan models.TelemetryEvent
	running atomic.Bool

	accepted      atomic.Int64
	rejected      atomic.Int64
	ignored       atomic.Int64
	lastRejection atomic.Pointer[string]

	// owned by the manager loop
	lastStatus connection.Status
}

// NewClient wires a store, a hub and a connection manager. Nothing is
// dialed until Run.
func NewClient(cfg Config, opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = connection.WebSocketDialer{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	st := store.New(cfg.MergePolicy)
	c := &Client{
		store:   st,
		hub:     hub.New(hub.View{State: st.Snapshot(), Status: connection.Disconnected}),
		clock:   opts.Clock,
		log:     opts.Logger.With("component", "telemetry"),
		metrics: opts.Metrics,
		events:  opts.Events,
		queue:   make(chan models.TelemetryEvent, eventQueueSize),
	}
	c.mgr = connection.NewManager(
		connection.Config{URL: cfg.URL, ReconnectDelay: cfg.ReconnectDelay},
		opts.Dialer, opts.Clock, c.log,
		connection.Callbacks{OnStatus: c.onStatus, OnFrame: c.handleFrame},
	)
	c.metrics.ObserveStatus(connection.Disconnected.String(), connection.StatusNames())
	return c
}

// Run keeps the connection alive until ctx is cancelled or Close is called,
// then resets the state to defaults. A client runs at most once.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return connection.ErrAlreadyRunning
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.recordLoop()
	}()

	err := c.mgr.Run(ctx)

	// the manager loop has exited, so nothing else writes the store or the queue
	c.publishState(c.store.Reset())
	close(c.queue)
	wg.Wait()
	return err
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() { c.mgr.Teardown() }

// Connect asks for a connection attempt now, unless one is open or in flight.
func (c *Client) Connect() { c.mgr.Connect() }

func (c *Client) Hub() *hub.Hub { return c.hub }

// Snapshot returns the current state. Callers must not modify it.
func (c *Client) Snapshot() *models.SystemState { return c.store.Snapshot() }

func (c *Client) Status() connection.Status { return c.mgr.Status() }

func (c *Client) Connected() bool { return c.mgr.Status() == connection.Connected }

func (c *Client) Stats() Stats {
	s := Stats{
		Accepted: c.accepted.Load(),
		Rejected: c.rejected.Load(),
		Ignored:  c.ignored.Load(),
	}
	if last := c.lastRejection.Load(); last != nil {
		s.LastRejection = *last
	}
	return s
}

func (c *Client) handleFrame(raw []byte) {
	c.metrics.ObserveFrame()

	v, rej := Validate(raw)
	if rej != nil {
		if rej.Benign() {
			c.ignored.Add(1)
			c.metrics.ObserveIgnored()
			c.log.Debugw("telemetry_frame_ignored", "reason", rej.Detail)
			return
		}
		c.reject(rej)
		return
	}

	for _, w := range v.Warnings {
		c.log.Warnw("telemetry_value_out_of_range", "detail", w)
	}

	next, changed, err := c.store.Apply(v.Update)
	if err != nil {
		c.reject(&Rejection{Reason: ReasonDecodeError, Detail: err.Error()})
		return
	}
	if !changed {
		return
	}
	c.accepted.Add(1)
	c.metrics.ObserveApplied(c.clock.Now())
	c.publishState(next)
}

func (c *Client) reject(rej *Rejection) {
	msg := rej.Error()
	c.rejected.Add(1)
	c.lastRejection.Store(&msg)
	c.metrics.ObserveRejected(string(rej.Reason))
	c.log.Warnw("telemetry_frame_rejected", "reason", rej.Reason, "fields", rej.Fields, "detail", rej.Detail)
	c.record(models.EventRejected, msg, map[string]any{"reason": string(rej.Reason), "fields": rej.Fields})
}

func (c *Client) onStatus(s connection.Status, err error) {
	prev := c.lastStatus
	c.lastStatus = s

	if s == connection.Connecting && prev == connection.Reconnecting {
		c.metrics.ObserveReconnect()
	}
	c.metrics.ObserveStatus(s.String(), connection.StatusNames())

	c.hub.Update(func(v hub.View) hub.View {
		v.Status = s
		v.Connected = s == connection.Connected
		switch s {
		case connection.Connected, connection.Disconnected:
			v.Error = ""
		case connection.Reconnecting:
			v.Error = errorMessage(err)
		}
		return v
	})

	switch {
	case s == connection.Connected:
		c.record(models.EventConnected, "telemetry connected", nil)
	case s == connection.Reconnecting && prev == connection.Connected:
		c.record(models.EventDisconnected, errorMessage(err), nil)
	}
}

func errorMessage(err error) string {
	switch {
	case err == nil, errors.Is(err, connection.ErrTransportClosed):
		return ErrMsgConnectionClosed
	case errors.Is(err, connection.ErrDial):
		return ErrMsgConnectFailed
	default:
		return ErrMsgConnectionError + ": " + err.Error()
	}
}

func (c *Client) publishState(st *models.SystemState) {
	c.hub.Update(func(v hub.View) hub.View {
		v.State = st
		return v
	})
}

// record queues an event for the recorder goroutine. It never blocks the
// telemetry loop; events are dropped when the queue is full.
func (c *Client) record(typ, description string, meta any) {
	if c.events == nil {
		return
	}
	e := models.TelemetryEvent{OccurredAt: c.clock.Now().UTC(), Type: typ, Description: description}
	if meta != nil {
		e.Metadata = meta
	}
	select {
	case c.queue <- e:
	default:
		c.log.Warnw("telemetry_event_dropped", "type", typ)
	}
}

func (c *Client) recordLoop() {
	for e := range c.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := c.events.Append(ctx, e); err != nil {
			c.log.Errorw("telemetry_event_append_failed", "type", e.Type, "err", err)
		}
		cancel()
	}
}
