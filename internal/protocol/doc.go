// Package protocol implements the eISCP control protocol spoken by Onkyo-style
// AV receivers.
//
// This package handles framing, terminator handling, command-table translation
// and message parsing. It holds no connection state; the receiver package
// drives a transport with it.
//
// # Packet Format
//
// Every message on the TCP connection is wrapped in a 16-byte header:
//   - Magic: "ISCP" (4 bytes)
//   - Header length: 16 (4 bytes, big-endian)
//   - Data length: payload + terminator (4 bytes, big-endian)
//   - Version: 0x01 (1 byte)
//   - Reserved: 3 zero bytes
//
// The data section is an ASCII payload followed by one or more terminators.
// Packets we send end with EOF (0x1A). Receivers append any run of EOF, CR
// and LF, so ExtractPayload strips whatever mix it finds.
//
// # Payload Format
//
//	!1PWR01    power on
//	!1AMT00    mute off
//	!1MVL2A    master volume 42
//	!1PWRQSTN  power state query
//
// "!1" addresses the receiver, three uppercase letters name the command and
// the rest is the parameter.
//
// # Command Table
//
// The table maps semantic pairs such as ("POWER", "ON") to wire pairs such as
// ("PWR", "01") and back. Decoding yields the value carried in events: a bool
// for switches, a lowercase name for selectors and an int for levels:
//
//	code, param, err := protocol.LookupWire("VOLUME", "42") // "MVL", "2A"
//
//	res := protocol.ParseMessage("!1PWR01")
//	if res.Recognized {
//	    fmt.Println(res.Event, res.Data) // PWR map[PWR:true]
//	}
//
// # Error Handling
//
// The package distinguishes between:
//   - ErrInvalidPayload: payload too large to frame
//   - ErrMalformedPacket: no terminator, bad magic or inconsistent lengths
//   - ErrUnrecognizedMessage: valid framing, unknown shape or code/param
//   - ErrUnknownCommand: semantic pair missing from the table
//
// All errors wrap one of these sentinels; test with errors.Is.
//
// # Thread Safety
//
// All functions are stateless and the command table is immutable, so
// everything here is safe for concurrent use.
package protocol
