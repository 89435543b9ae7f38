package bridge

import (
	"errors"
	"net/http"

	"github.com/muurk/eiscpctl/internal/protocol"
	"github.com/muurk/eiscpctl/internal/receiver"
)

// Message is the JSON shape of every event and reply the bridge sends.
//
//	{"event":"PWR","data":{"PWR":true}}
//	{"event":"error","error":"command timed out: no PWR reply within 5s","reply":true}
type Message struct {
	Event   string         `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
	Payload string         `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
	// Reply is set on the answer to a command sent by the same client.
	Reply bool `json:"reply,omitempty"`
}

// CommandRequest is a semantic command sent over /ws or POST /command.
type CommandRequest struct {
	Command string `json:"command"`
	Value   string `json:"value"`
}

// NewEventMessage converts a receiver event.
func NewEventMessage(ev receiver.Event) Message {
	msg := Message{
		Event:   string(ev.Name),
		Data:    ev.Data,
		Payload: ev.Payload,
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// NewErrorMessage reports a failed command.
func NewErrorMessage(err error) Message {
	return Message{Event: string(receiver.EventError), Error: err.Error()}
}

// StatusFor maps a command error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, protocol.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, receiver.ErrNotConnected), errors.Is(err, receiver.ErrConnectionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, receiver.ErrCommandTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
