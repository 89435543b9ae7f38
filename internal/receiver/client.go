package receiver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/protocol"
)

// State is the connection lifecycle state of a Client.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateErrored
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// pendingCommand correlates one sent command with its reply.
type pendingCommand struct {
	code    string
	created time.Time
	done    chan commandResult // buffered, receives exactly once
}

type commandResult struct {
	event Event
	err   error
}

func (p *pendingCommand) complete(ev Event, err error) {
	p.done <- commandResult{event: ev, err: err}
}

// Client controls one receiver over one transport.
//
// At most one command is in flight. SendCommand calls made while another is
// waiting for its reply queue behind it in arrival order.
type Client struct {
	address  string
	port     int
	name     string
	logger   Logger
	timeout  time.Duration
	recorder Recorder
	table    *protocol.Table
	bus      *eventBus

	// slot is held by the command currently in flight
	slot chan struct{}

	mu        sync.Mutex
	state     State
	transport Transport
	pending   *pendingCommand
}

// New creates a Client from opts. See Options for defaults.
func New(opts Options) (*Client, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Client{
		address:  o.Address,
		port:     o.Port,
		name:     o.Name,
		logger:   o.Logger,
		timeout:  o.CommandTimeout,
		recorder: o.Recorder,
		table:    protocol.DefaultTable,
		bus:      newEventBus(),
		slot:     make(chan struct{}, 1),
		state:    StateUnconnected,
	}, nil
}

// Init is New for callers holding options by pointer. A nil opts fails.
func Init(opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: options are required", ErrInvalidConfig)
	}
	return New(*opts)
}

// Address returns the receiver address
func (c *Client) Address() string { return c.address }

// Port returns the receiver port
func (c *Client) Port() int { return c.port }

// Name returns the display name
func (c *Client) Name() string { return c.name }

// State returns the current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the receiver with dial (DialTCP when nil) and attaches the
// data, close and error observers. It returns only after all three are
// attached. Calling Connect again closes the previous transport and repeats
// the handshake.
func (c *Client) Connect(ctx context.Context, dial DialFunc) error {
	if dial == nil {
		dial = DialTCP
	}

	c.mu.Lock()
	prev, prevPending := c.transport, c.pending
	c.transport, c.pending = nil, nil
	c.state = StateConnecting
	c.mu.Unlock()

	if prevPending != nil {
		prevPending.complete(Event{}, ErrConnectionClosed)
	}
	if prev != nil {
		if err := prev.Close(); err != nil {
			c.logger.Debug("Closing previous transport failed", zap.Error(err))
		}
	}

	ep := Endpoint{Host: c.address, Port: c.port}
	c.logger.Info("Connecting to receiver",
		zap.String("name", c.name),
		zap.String("endpoint", ep.String()),
	)

	t, err := dial(ctx, ep)
	if err == nil && t == nil {
		err = errors.New("dial returned no transport")
	}
	if err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			c.state = StateErrored
		}
		c.mu.Unlock()
		c.logger.Error("Connect failed",
			zap.String("endpoint", ep.String()),
			zap.Error(err),
		)
		if IsConnectionError(err) {
			return err
		}
		return &ConnectionError{Op: "dial", Err: err}
	}

	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()

	t.OnData(func(chunk []byte) { c.handleData(t, chunk) })
	t.OnClose(func() { c.handleClose(t) })
	t.OnError(func(err error) { c.handleError(t, err) })

	c.mu.Lock()
	if c.transport != t || c.state != StateConnecting {
		if c.transport == t {
			c.transport = nil
		}
		c.mu.Unlock()
		_ = t.Close()
		return &ConnectionError{Op: "connect", Err: ErrConnectionClosed}
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("Connected to receiver",
		zap.String("name", c.name),
		zap.String("endpoint", ep.String()),
	)
	return nil
}

// SendCommand sends a semantic command such as ("POWER", "ON") and waits for
// the receiver's reply carrying the same wire code.
//
// The wait ends with ErrCommandTimeout after the configured command timeout
// or ctx's deadline, with ctx.Err() when ctx is cancelled, and with
// ErrConnectionClosed or a *ConnectionError when the connection goes away.
//
// Do not call SendCommand from an event handler and wait for it: replies are
// dispatched on the goroutine running that handler.
func (c *Client) SendCommand(ctx context.Context, command, value string) (Event, error) {
	code, param, err := c.table.LookupWire(command, value)
	if err != nil {
		return Event{}, err
	}
	return c.send(ctx, code, param)
}

// SendRaw sends an arbitrary wire code and parameter, bypassing the command
// table. The reply is correlated by code like SendCommand.
func (c *Client) SendRaw(ctx context.Context, code, param string) (Event, error) {
	if len(code) != protocol.CodeLength {
		return Event{}, fmt.Errorf("%w: wire code %q must be %d letters", protocol.ErrUnknownCommand, code, protocol.CodeLength)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return Event{}, fmt.Errorf("%w: wire code %q must be uppercase letters", protocol.ErrUnknownCommand, code)
		}
	}
	return c.send(ctx, code, param)
}

func (c *Client) send(ctx context.Context, code, param string) (Event, error) {
	packet, err := protocol.EncodePacket(protocol.FormatPayload(code, param))
	if err != nil {
		return Event{}, err
	}

	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return Event{}, contextError(ctx)
	}
	defer func() { <-c.slot }()

	c.mu.Lock()
	t := c.transport
	if c.state != StateConnected || t == nil {
		state := c.state
		c.mu.Unlock()
		return Event{}, fmt.Errorf("%w: %s is %s", ErrNotConnected, c.name, state)
	}
	p := &pendingCommand{
		code:    code,
		created: time.Now(),
		done:    make(chan commandResult, 1),
	}
	c.pending = p
	c.mu.Unlock()

	c.recorder.CommandSent(code)
	c.logger.Debug("Sending command",
		zap.String("name", c.name),
		zap.String("code", code),
		zap.String("param", param),
	)

	if err := t.Write(packet); err != nil {
		c.clearPending(p)
		c.recorder.CommandCompleted(code, time.Since(p.created), err)
		c.logger.Warn("Write failed", zap.String("code", code), zap.Error(err))
		return Event{}, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var res commandResult
	select {
	case res = <-p.done:
	case <-timer.C:
		c.clearPending(p)
		res.err = fmt.Errorf("%w: no %s reply within %s", ErrCommandTimeout, code, c.timeout)
	case <-ctx.Done():
		c.clearPending(p)
		res.err = contextError(ctx)
	}

	took := time.Since(p.created)
	c.recorder.CommandCompleted(code, took, res.err)
	if res.err != nil {
		c.logger.Warn("Command failed",
			zap.String("code", code),
			zap.Duration("took", took),
			zap.Error(res.err),
		)
		return Event{}, res.err
	}

	c.logger.Debug("Command completed",
		zap.String("code", code),
		zap.Duration("took", took),
	)
	return res.event, nil
}

// clearPending drops p if it still occupies the slot.
func (c *Client) clearPending(p *pendingCommand) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

// contextError maps a finished ctx to the error SendCommand returns.
func contextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCommandTimeout, err)
	}
	return err
}

// Subscribe registers fn for events named name and returns a function that
// removes it. Names outside EventNames fail with ErrUnknownEvent.
//
// Handlers run synchronously in the order inbound messages arrive.
func (c *Client) Subscribe(name EventName, fn Handler) (func(), error) {
	sub, err := c.bus.subscribe(name, fn)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// SubscribeAll registers fn for every event the client emits.
func (c *Client) SubscribeAll(fn Handler) (func(), error) {
	var cancels []func()
	cancelAll := func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
	for _, name := range EventNames() {
		cancel, err := c.Subscribe(name, fn)
		if err != nil {
			cancelAll()
			return nil, err
		}
		cancels = append(cancels, cancel)
	}
	return cancelAll, nil
}

// Close closes the transport and fails any command waiting for a reply.
// Subscribers receive a close event. When Close is called from an event
// handler, the close event is delivered after that handler returns.
func (c *Client) Close() error {
	c.mu.Lock()
	t, p := c.transport, c.pending
	c.transport, c.pending = nil, nil
	wasOpen := t != nil
	c.state = StateClosed
	c.mu.Unlock()

	if p != nil {
		p.complete(Event{}, ErrConnectionClosed)
	}
	if !wasOpen {
		return nil
	}

	c.logger.Info("Closing receiver connection", zap.String("name", c.name))
	err := t.Close()
	c.bus.publishFromCaller(Event{Name: EventClose, Received: time.Now()})
	return err
}

// isCurrent reports whether t is the transport the client is using.
func (c *Client) isCurrent(t Transport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport == t
}

// handleData decodes one inbound chunk. Decode failures become error events;
// they never end the connection.
func (c *Client) handleData(t Transport, chunk []byte) {
	if !c.isCurrent(t) {
		return
	}

	data := chunk
	if protocol.HasPacketHeader(chunk) {
		d, err := protocol.DecodePacket(chunk)
		if err != nil {
			c.decodeFailed("malformed", string(chunk), err)
			return
		}
		data = d
	}

	payload, err := protocol.ExtractPayload(string(data))
	if err != nil {
		c.decodeFailed("malformed", string(data), err)
		return
	}

	res := c.table.ParseMessage(payload)
	if !res.Recognized {
		c.decodeFailed("unrecognized", payload, res.Err)
		return
	}

	ev := Event{
		Name:     EventName(res.Event),
		Command:  res.Mapping.Command,
		Value:    res.Mapping.Value,
		Data:     res.Data,
		Payload:  payload,
		Received: time.Now(),
	}

	c.recorder.EventReceived(res.Event)
	c.logger.Debug("Event received",
		zap.String("name", c.name),
		zap.String("event", res.Event),
		zap.String("command", ev.Command),
		zap.String("value", ev.Value),
	)
	c.bus.publish(ev)

	c.mu.Lock()
	p := c.pending
	if p != nil && p.code == res.Code {
		c.pending = nil
	} else {
		p = nil
	}
	c.mu.Unlock()

	if p != nil {
		p.complete(ev, nil)
	}
}

func (c *Client) decodeFailed(reason, raw string, err error) {
	c.recorder.DecodeFailed(reason)
	c.logger.Warn("Dropping inbound message",
		zap.String("name", c.name),
		zap.String("reason", reason),
		zap.String("raw", fmt.Sprintf("%q", raw)),
		zap.Error(err),
	)
	c.bus.publish(Event{
		Name:     EventError,
		Payload:  raw,
		Err:      err,
		Received: time.Now(),
	})
}

func (c *Client) handleError(t Transport, err error) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	c.state = StateErrored
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.logger.Error("Transport error", zap.String("name", c.name), zap.Error(err))
	if p != nil {
		p.complete(Event{}, err)
	}
	c.bus.publish(Event{Name: EventError, Err: err, Received: time.Now()})
}

func (c *Client) handleClose(t Transport) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	if c.state != StateErrored {
		c.state = StateClosed
	}
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.logger.Info("Receiver closed the connection", zap.String("name", c.name))
	if p != nil {
		p.complete(Event{}, ErrConnectionClosed)
	}
	c.bus.publish(Event{Name: EventClose, Received: time.Now()})
}
