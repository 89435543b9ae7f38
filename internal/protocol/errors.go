package protocol

import "errors"

// Sentinel errors for the eISCP codec and command table.
var (
	// ErrInvalidPayload indicates a payload that cannot be framed.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrMalformedPacket indicates inbound bytes that are not a valid framed
	// message: missing terminator, bad magic or inconsistent lengths.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrUnrecognizedMessage indicates a well-framed message whose shape or
	// code/parameter is not registered in the command table.
	ErrUnrecognizedMessage = errors.New("unrecognized message")

	// ErrUnknownCommand indicates a semantic command/value pair that is not
	// registered in the command table.
	ErrUnknownCommand = errors.New("unknown command")
)
