// Package receiver implements the eISCP client for one AV receiver.
//
// A Client owns a single transport. It encodes semantic commands with the
// protocol package, writes them, and correlates each with the next inbound
// message carrying the same wire code. Every inbound message is also
// published as a typed event.
//
// # Usage
//
//	client, err := receiver.New(receiver.Options{
//	    Address: "192.168.1.40",
//	    Logger:  logging.GetLogger(),
//	})
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx, receiver.DialTCP); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ev, err := client.SendCommand(ctx, "POWER", "ON")
//	// ev.Data == map[string]any{"PWR": true}
//
// # Events
//
// Subscribe takes one of a closed set of names: one per registered wire code
// (EventPower, EventMute, ...) plus EventError and EventClose. Inbound chunks
// that fail to decode never close the connection; they are published as
// EventError with an error wrapping protocol.ErrMalformedPacket or
// protocol.ErrUnrecognizedMessage.
//
// # Lifecycle
//
//	Unconnected -> Connecting -> Connected -> Closed | Errored
//
// A transport close or error fails the command waiting for a reply, if any.
// Reconnecting is left to the caller: call Connect again.
//
// # Concurrency
//
// Client methods are safe for concurrent use. One command is in flight at a
// time; concurrent SendCommand calls queue in arrival order. Event handlers
// run on the transport's read goroutine, so a handler must not wait on
// SendCommand. A handler may call Close.
package receiver
