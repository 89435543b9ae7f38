package protocol

import (
	"fmt"
)

// UnitPrefix is the start character and unit type every payload begins with
// ("!" start, "1" receiver).
const UnitPrefix = "!1"

// CodeLength is the length of a wire command code.
const CodeLength = 3

// Result is the outcome of parsing one payload. Unrecognized payloads are a
// normal result, not a failure of the parser: Recognized is false and Err says why.
type Result struct {
	Recognized bool
	Event      string         // Event name, equal to the wire code
	Code       string         // Wire code, e.g. "PWR"
	Param      string         // Wire parameter, e.g. "01"
	Mapping    Mapping        // Table entry the message decoded to
	Data       map[string]any // Single key: Code -> decoded value
	Err        error          // Set when Recognized is false
}

// String returns a debug representation of the result
func (r Result) String() string {
	if !r.Recognized {
		return fmt.Sprintf("Unrecognized{err=%v}", r.Err)
	}
	return fmt.Sprintf("Message{code=%s, param=%s, value=%v}", r.Code, r.Param, r.Mapping.Decoded)
}

// ParseMessage decodes a terminator-free payload such as "!1PWR01" against
// DefaultTable.
func ParseMessage(payload string) Result {
	return DefaultTable.ParseMessage(payload)
}

// ParseMessage decodes a terminator-free payload against t.
//
// Expected shape: UnitPrefix, three uppercase letters, then a non-empty
// parameter. Anything else, or a code/param missing from the table, yields
// an unrecognized Result wrapping ErrUnrecognizedMessage.
func (t *Table) ParseMessage(payload string) Result {
	code, param, err := splitPayload(payload)
	if err != nil {
		return Result{Err: err}
	}

	m, err := t.LookupSemantic(code, param)
	if err != nil {
		return Result{Code: code, Param: param, Err: err}
	}

	return Result{
		Recognized: true,
		Event:      code,
		Code:       code,
		Param:      param,
		Mapping:    m,
		Data:       map[string]any{code: m.Decoded},
	}
}

// splitPayload checks the payload shape and returns its code and parameter.
func splitPayload(payload string) (code, param string, err error) {
	minLen := len(UnitPrefix) + CodeLength + 1
	if len(payload) < minLen {
		return "", "", fmt.Errorf("%w: payload %q too short", ErrUnrecognizedMessage, truncate(payload, 32))
	}
	if payload[:len(UnitPrefix)] != UnitPrefix {
		return "", "", fmt.Errorf("%w: payload %q lacks %q prefix", ErrUnrecognizedMessage, truncate(payload, 32), UnitPrefix)
	}

	code = payload[len(UnitPrefix) : len(UnitPrefix)+CodeLength]
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", "", fmt.Errorf("%w: invalid code %q", ErrUnrecognizedMessage, code)
		}
	}

	return code, payload[len(UnitPrefix)+CodeLength:], nil
}
