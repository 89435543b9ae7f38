package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// eISCP packet constants
const (
	// Magic is the 4-byte marker that opens every eISCP packet.
	Magic = "ISCP"

	// HeaderSize is the fixed header length written on encode:
	// magic(4) + headerLen(4) + dataLen(4) + version(1) + reserved(3).
	HeaderSize = 16

	// PacketVersion is the only header version receivers speak.
	PacketVersion = 0x01

	// DefaultPort is the well-known eISCP control port.
	DefaultPort = 60128

	// MaxPayloadSize bounds a single outgoing payload.
	MaxPayloadSize = 1024

	// MaxDataSize bounds the data section accepted from a receiver. Artwork
	// (NJA) messages are the largest thing a receiver sends.
	MaxDataSize = 64 * 1024

	// MaxHeaderSize bounds the declared header length, extension included.
	MaxHeaderSize = 64
)

// Terminator bytes, in the order a receiver appends them.
const (
	EOF byte = 0x1A
	CR  byte = 0x0D
	LF  byte = 0x0A
)

// Header is the decoded fixed part of an eISCP packet.
type Header struct {
	HeaderLen uint32
	DataLen   uint32
	Version   byte
}

// EncodePacket frames a payload such as "!1PWR01" into wire bytes:
//
//	[0-3]   "ISCP"       Magic
//	[4-7]   0x00000010   Header length (big-endian)
//	[8-11]  len(data)    Data length, payload + terminator (big-endian)
//	[12]    0x01         Version
//	[13-15] 0x000000     Reserved
//	[16+]   payload      ASCII payload followed by EOF
func EncodePacket(payload string) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrInvalidPayload, len(payload), MaxPayloadSize)
	}

	dataLen := len(payload) + 1
	packet := make([]byte, HeaderSize+dataLen)

	copy(packet[0:4], Magic)
	binary.BigEndian.PutUint32(packet[4:8], HeaderSize)
	binary.BigEndian.PutUint32(packet[8:12], uint32(dataLen))
	packet[12] = PacketVersion
	// reserved bytes 13-15 stay zero

	copy(packet[HeaderSize:], payload)
	packet[len(packet)-1] = EOF

	return packet, nil
}

// HasPacketHeader reports whether raw starts with the eISCP magic.
func HasPacketHeader(raw []byte) bool {
	return len(raw) >= len(Magic) && string(raw[:len(Magic)]) == Magic
}

// DecodeHeader parses and validates the fixed header at the start of raw.
func DecodeHeader(raw []byte) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, fmt.Errorf("%w: short header (%d bytes)", ErrMalformedPacket, len(raw))
	}
	if !HasPacketHeader(raw) {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrMalformedPacket, raw[:4])
	}

	h := Header{
		HeaderLen: binary.BigEndian.Uint32(raw[4:8]),
		DataLen:   binary.BigEndian.Uint32(raw[8:12]),
		Version:   raw[12],
	}

	if h.HeaderLen < HeaderSize {
		return Header{}, fmt.Errorf("%w: header length %d smaller than %d", ErrMalformedPacket, h.HeaderLen, HeaderSize)
	}
	if h.HeaderLen > MaxHeaderSize {
		return Header{}, fmt.Errorf("%w: header length %d exceeds %d", ErrMalformedPacket, h.HeaderLen, MaxHeaderSize)
	}
	if h.Version != PacketVersion {
		return Header{}, fmt.Errorf("%w: unsupported version 0x%02x", ErrMalformedPacket, h.Version)
	}
	if h.DataLen > MaxDataSize {
		return Header{}, fmt.Errorf("%w: data length %d exceeds %d", ErrMalformedPacket, h.DataLen, MaxDataSize)
	}

	return h, nil
}

// DecodePacket validates a complete packet and returns its data section
// (payload plus whatever terminators the sender used).
func DecodePacket(raw []byte) ([]byte, error) {
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}

	total := uint64(h.HeaderLen) + uint64(h.DataLen)
	if total != uint64(len(raw)) {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrMalformedPacket, total, len(raw))
	}

	return raw[h.HeaderLen:], nil
}

// ReadPacket reads exactly one packet from a byte stream. The returned slice
// holds the full packet, header included, ready for DecodePacket.
func ReadPacket(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrMalformedPacket)
		}
		return nil, err
	}

	h, err := DecodeHeader(header)
	if err != nil {
		return nil, err
	}

	// Skip any header extension so the returned packet stays self-describing.
	rest := make([]byte, int(h.HeaderLen-HeaderSize)+int(h.DataLen))
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("%w: truncated data: %v", ErrMalformedPacket, err)
	}

	return append(header, rest...), nil
}

// ExtractPayload strips the trailing terminator run (any mix of LF, CR and
// EOF) from raw. At least one terminator must be present.
func ExtractPayload(raw string) (string, error) {
	end := len(raw)
	for end > 0 && isTerminator(raw[end-1]) {
		end--
	}

	if end == len(raw) {
		return "", fmt.Errorf("%w: no terminator in %q", ErrMalformedPacket, truncate(raw, 32))
	}

	return raw[:end], nil
}

// FormatPayload builds the ASCII payload for a wire code and parameter.
func FormatPayload(code, param string) string {
	var b strings.Builder
	b.Grow(len(UnitPrefix) + len(code) + len(param))
	b.WriteString(UnitPrefix)
	b.WriteString(code)
	b.WriteString(param)
	return b.String()
}

func isTerminator(c byte) bool {
	return c == LF || c == CR || c == EOF
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
