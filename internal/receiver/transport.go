package receiver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muurk/eiscpctl/internal/protocol"
)

const (
	// Time allowed to establish the TCP connection when ctx has no deadline
	dialTimeout = 5 * time.Second

	// Time allowed to write one packet to the receiver
	writeWait = 5 * time.Second
)

// Endpoint is the address handed to a DialFunc.
type Endpoint struct {
	Host string
	Port int
}

// String returns host:port
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Transport is the connection contract the Client drives. Implementations
// deliver inbound chunks through OnData, report failures through OnError and
// signal the end of the stream once through OnClose.
//
// Callbacks may fire from any goroutine but never concurrently with each other.
type Transport interface {
	Write(p []byte) error
	Close() error
	OnData(fn func(chunk []byte))
	OnClose(fn func())
	OnError(fn func(err error))
}

// DialFunc opens a transport to ep. Returning without error means the
// connection is established.
type DialFunc func(ctx context.Context, ep Endpoint) (Transport, error)

// DialTCP is the production DialFunc.
func DialTCP(ctx context.Context, ep Endpoint) (Transport, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", ep.String())
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return NewConnTransport(conn), nil
}

// ConnTransport adapts a net.Conn to Transport. Each callback receives one
// whole eISCP packet. The read loop starts once all three observers are set,
// so no inbound data is dropped before the Client is listening.
type ConnTransport struct {
	conn net.Conn

	mu      sync.Mutex // guards observers and started
	onData  func([]byte)
	onClose func()
	onError func(error)
	started bool

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
}

// NewConnTransport wraps conn.
func NewConnTransport(conn net.Conn) *ConnTransport {
	return &ConnTransport{
		conn: conn,
		done: make(chan struct{}),
	}
}

// OnData sets the data observer
func (t *ConnTransport) OnData(fn func([]byte)) {
	t.mu.Lock()
	t.onData = fn
	t.mu.Unlock()
	t.maybeStart()
}

// OnClose sets the close observer
func (t *ConnTransport) OnClose(fn func()) {
	t.mu.Lock()
	t.onClose = fn
	t.mu.Unlock()
	t.maybeStart()
}

// OnError sets the error observer
func (t *ConnTransport) OnError(fn func(error)) {
	t.mu.Lock()
	t.onError = fn
	t.mu.Unlock()
	t.maybeStart()
}

func (t *ConnTransport) maybeStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.onData == nil || t.onClose == nil || t.onError == nil {
		return
	}
	t.started = true
	go t.readLoop(t.onData, t.onClose, t.onError)
}

// readLoop reads packets until the connection ends. A read error other than
// a clean EOF or a local Close is reported before the close notification.
func (t *ConnTransport) readLoop(onData func([]byte), onClose func(), onError func(error)) {
	defer close(t.done)
	defer onClose()

	r := bufio.NewReader(t.conn)
	for {
		packet, err := protocol.ReadPacket(r)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedPacket) && !t.closed.Load() {
				// Framing is lost; nothing after this can be trusted.
				onError(err)
				return
			}
			if !errors.Is(err, io.EOF) && !t.closed.Load() {
				onError(&ConnectionError{Op: "read", Err: err})
			}
			return
		}
		onData(packet)
	}
}

// Write sends p as one write. Concurrent writers are serialized.
func (t *ConnTransport) Write(p []byte) error {
	if t.closed.Load() {
		return ErrConnectionClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	if _, err := t.conn.Write(p); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// Close closes the connection. The close observer still fires once the read
// loop exits. Calling Close more than once is a no-op.
func (t *ConnTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close %s: %w", t.conn.RemoteAddr(), err)
	}
	return nil
}

// Done is closed after the read loop has exited and the close observer ran.
func (t *ConnTransport) Done() <-chan struct{} {
	return t.done
}
