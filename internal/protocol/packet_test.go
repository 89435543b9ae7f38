package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncodePacket(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantErr     error
		checkFields func(t *testing.T, packet []byte)
	}{
		{
			name:    "power on",
			payload: "!1PWR01",
			checkFields: func(t *testing.T, packet []byte) {
				if string(packet[0:4]) != Magic {
					t.Errorf("magic = %q, want %q", packet[0:4], Magic)
				}
				if got := binary.BigEndian.Uint32(packet[4:8]); got != HeaderSize {
					t.Errorf("header length = %d, want %d", got, HeaderSize)
				}
				if got := binary.BigEndian.Uint32(packet[8:12]); got != 8 {
					t.Errorf("data length = %d, want 8", got)
				}
				if packet[12] != PacketVersion {
					t.Errorf("version = 0x%02x, want 0x%02x", packet[12], PacketVersion)
				}
				if !bytes.Equal(packet[13:16], []byte{0, 0, 0}) {
					t.Errorf("reserved = %v, want zeros", packet[13:16])
				}
				if got := string(packet[16:]); got != "!1PWR01\x1a" {
					t.Errorf("data = %q, want %q", got, "!1PWR01\x1a")
				}
			},
		},
		{
			name:    "empty payload still carries terminator",
			payload: "",
			checkFields: func(t *testing.T, packet []byte) {
				if len(packet) != HeaderSize+1 {
					t.Errorf("packet size = %d, want %d", len(packet), HeaderSize+1)
				}
				if packet[HeaderSize] != EOF {
					t.Errorf("last byte = 0x%02x, want EOF", packet[HeaderSize])
				}
			},
		},
		{
			name:    "payload at max size",
			payload: strings.Repeat("A", MaxPayloadSize),
			checkFields: func(t *testing.T, packet []byte) {
				if len(packet) != HeaderSize+MaxPayloadSize+1 {
					t.Errorf("packet size = %d, want %d", len(packet), HeaderSize+MaxPayloadSize+1)
				}
			},
		},
		{
			name:    "payload too large",
			payload: strings.Repeat("A", MaxPayloadSize+1),
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := EncodePacket(tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("EncodePacket() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodePacket() unexpected error: %v", err)
			}
			if tt.checkFields != nil {
				tt.checkFields(t, packet)
			}
		})
	}
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "empty", raw: "", wantErr: true},
		{name: "no terminator", raw: "asd", wantErr: true},
		{name: "digits without terminator", raw: "000000", wantErr: true},
		{name: "long without terminator", raw: "!1PWR01" + strings.Repeat("x", 200), wantErr: true},
		{name: "terminator not trailing", raw: "abc\x1adef", wantErr: true},
		{name: "CR", raw: "abc\x0d", want: "abc"},
		{name: "EOF", raw: "abc\x1a", want: "abc"},
		{name: "EOF CR", raw: "abc\x1a\x0d", want: "abc"},
		{name: "EOF CR LF", raw: "abc\x1a\x0d\x0a", want: "abc"},
		{name: "LF CR out of order", raw: "abc\x0a\x0d", want: "abc"},
		{name: "only terminators", raw: "\x1a\x0d\x0a", want: ""},
		{name: "single terminator", raw: "\x1a", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPayload(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPacket) {
					t.Errorf("ExtractPayload(%q) error = %v, want ErrMalformedPacket", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractPayload(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ExtractPayload(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeExtractRoundTrip(t *testing.T) {
	payloads := []string{"!1PWR01", "!1AMT00", "!1MVL2A", "!1PWRQSTN", "abc01", "x"}

	for _, p := range payloads {
		packet, err := EncodePacket(p)
		if err != nil {
			t.Fatalf("EncodePacket(%q) error: %v", p, err)
		}
		data, err := DecodePacket(packet)
		if err != nil {
			t.Fatalf("DecodePacket(%q) error: %v", p, err)
		}
		got, err := ExtractPayload(string(data))
		if err != nil {
			t.Fatalf("ExtractPayload(%q) error: %v", data, err)
		}
		if got != p {
			t.Errorf("round trip = %q, want %q", got, p)
		}
	}
}

func TestDecodePacket(t *testing.T) {
	valid, _ := EncodePacket("!1PWR01")

	tests := []struct {
		name    string
		raw     func() []byte
		want    string
		wantErr bool
	}{
		{
			name: "valid",
			raw:  func() []byte { return valid },
			want: "!1PWR01\x1a",
		},
		{
			name: "receiver style CR LF terminators",
			raw: func() []byte {
				data := "!1AMT01\x1a\r\n"
				p := make([]byte, HeaderSize+len(data))
				copy(p, Magic)
				binary.BigEndian.PutUint32(p[4:8], HeaderSize)
				binary.BigEndian.PutUint32(p[8:12], uint32(len(data)))
				p[12] = PacketVersion
				copy(p[HeaderSize:], data)
				return p
			},
			want: "!1AMT01\x1a\r\n",
		},
		{
			name:    "short header",
			raw:     func() []byte { return valid[:10] },
			wantErr: true,
		},
		{
			name: "bad magic",
			raw: func() []byte {
				p := append([]byte{}, valid...)
				copy(p, "ISCQ")
				return p
			},
			wantErr: true,
		},
		{
			name: "header length too small",
			raw: func() []byte {
				p := append([]byte{}, valid...)
				binary.BigEndian.PutUint32(p[4:8], 8)
				return p
			},
			wantErr: true,
		},
		{
			name: "data length larger than packet",
			raw: func() []byte {
				p := append([]byte{}, valid...)
				binary.BigEndian.PutUint32(p[8:12], 50)
				return p
			},
			wantErr: true,
		},
		{
			name: "trailing bytes beyond declared length",
			raw: func() []byte {
				return append(append([]byte{}, valid...), 'X')
			},
			wantErr: true,
		},
		{
			name: "unsupported version",
			raw: func() []byte {
				p := append([]byte{}, valid...)
				p[12] = 0x02
				return p
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodePacket(tt.raw())
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPacket) {
					t.Errorf("DecodePacket() error = %v, want ErrMalformedPacket", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePacket() unexpected error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("DecodePacket() = %q, want %q", data, tt.want)
			}
		})
	}
}

// chunkReader returns at most n bytes per Read to simulate TCP segmentation
type chunkReader struct {
	data []byte
	n    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.n
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestReadPacket(t *testing.T) {
	first, _ := EncodePacket("!1PWR01")
	second, _ := EncodePacket("!1MVL2A")
	stream := append(append([]byte{}, first...), second...)

	r := &chunkReader{data: stream, n: 3}

	got1, err := ReadPacket(r)
	if err != nil {
		t.Fatalf("ReadPacket() first error: %v", err)
	}
	if !bytes.Equal(got1, first) {
		t.Errorf("first packet = %q, want %q", got1, first)
	}

	got2, err := ReadPacket(r)
	if err != nil {
		t.Fatalf("ReadPacket() second error: %v", err)
	}
	if !bytes.Equal(got2, second) {
		t.Errorf("second packet = %q, want %q", got2, second)
	}

	if _, err := ReadPacket(r); err != io.EOF {
		t.Errorf("ReadPacket() at end error = %v, want io.EOF", err)
	}
}

func TestReadPacket_Truncated(t *testing.T) {
	packet, _ := EncodePacket("!1PWR01")

	if _, err := ReadPacket(bytes.NewReader(packet[:HeaderSize+2])); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("truncated data error = %v, want ErrMalformedPacket", err)
	}
	if _, err := ReadPacket(bytes.NewReader(packet[:5])); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("truncated header error = %v, want ErrMalformedPacket", err)
	}
}

func TestReadPacket_OversizedData(t *testing.T) {
	p := make([]byte, HeaderSize)
	copy(p, Magic)
	binary.BigEndian.PutUint32(p[4:8], HeaderSize)
	binary.BigEndian.PutUint32(p[8:12], MaxDataSize+1)
	p[12] = PacketVersion

	if _, err := ReadPacket(bytes.NewReader(p)); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("ReadPacket() error = %v, want ErrMalformedPacket", err)
	}
}

func TestReadPacket_OversizedHeader(t *testing.T) {
	tests := []struct {
		name      string
		headerLen uint32
	}{
		{"just over limit", MaxHeaderSize + 1},
		{"huge", 0x7FFFFFF0},
		{"max uint32", 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := make([]byte, HeaderSize)
			copy(p, Magic)
			binary.BigEndian.PutUint32(p[4:8], tt.headerLen)
			binary.BigEndian.PutUint32(p[8:12], 1)
			p[12] = PacketVersion

			_, err := ReadPacket(bytes.NewReader(p))
			if !errors.Is(err, ErrMalformedPacket) {
				t.Fatalf("ReadPacket() error = %v, want ErrMalformedPacket", err)
			}
			if !strings.Contains(err.Error(), "header length") {
				t.Errorf("ReadPacket() error = %v, want header length rejection", err)
			}
		})
	}
}

func TestReadPacket_HeaderExtension(t *testing.T) {
	p := make([]byte, HeaderSize+4)
	copy(p, Magic)
	binary.BigEndian.PutUint32(p[4:8], HeaderSize+4)
	binary.BigEndian.PutUint32(p[8:12], 8)
	p[12] = PacketVersion
	p = append(p, "!1PWR01\x1a"...)

	got, err := ReadPacket(bytes.NewReader(p))
	if err != nil {
		t.Fatalf("ReadPacket() error: %v", err)
	}
	data, err := DecodePacket(got)
	if err != nil {
		t.Fatalf("DecodePacket() error: %v", err)
	}
	if string(data) != "!1PWR01\x1a" {
		t.Errorf("data = %q", data)
	}
}

func TestHasPacketHeader(t *testing.T) {
	packet, _ := EncodePacket("!1PWR01")
	if !HasPacketHeader(packet) {
		t.Error("HasPacketHeader(packet) = false, want true")
	}
	if HasPacketHeader([]byte("!1PWR01\x1a")) {
		t.Error("HasPacketHeader(bare payload) = true, want false")
	}
	if HasPacketHeader([]byte("IS")) {
		t.Error("HasPacketHeader(short) = true, want false")
	}
}

func TestFormatPayload(t *testing.T) {
	if got := FormatPayload("PWR", "QSTN"); got != "!1PWRQSTN" {
		t.Errorf("FormatPayload() = %q, want %q", got, "!1PWRQSTN")
	}
}
