package session

import (
	"context"

	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/receiver"
)

// TraceDial wraps dial so every packet in either direction is logged at
// debug level with a hex and ASCII dump.
func TraceDial(dial receiver.DialFunc) receiver.DialFunc {
	return func(ctx context.Context, ep receiver.Endpoint) (receiver.Transport, error) {
		t, err := dial(ctx, ep)
		if err != nil || t == nil {
			return t, err
		}
		return &tracingTransport{Transport: t}, nil
	}
}

type tracingTransport struct {
	receiver.Transport
}

func (t *tracingTransport) Write(p []byte) error {
	logging.LogRawBytes("eISCP packet sent", p)
	return t.Transport.Write(p)
}

func (t *tracingTransport) OnData(fn func([]byte)) {
	t.Transport.OnData(func(chunk []byte) {
		logging.LogRawBytes("eISCP packet received", chunk)
		fn(chunk)
	})
}
