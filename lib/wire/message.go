// Package wire implements the tagged-union frame codec shared by the
// hybrid client and server. A single binary format carries
// all four message kinds over the TCP connection: Hello, Seed, Query and
// Response. Every variant is self-delimiting so a reader never needs to
// know in advance which one is coming.
package wire

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// Kind identifies which HybridPIR message variant a frame carries.
type Kind uint32

const (
	KindHello Kind = iota
	KindSeed
	KindQuery
	KindResponse
)

// DefaultMaxFieldLength bounds any single length-prefixed field. It guards
// against a peer declaring an absurd length and forcing an unbounded
// allocation; see MalformedFrameError.
const DefaultMaxFieldLength = 256 << 20 // 256 MiB

// Message is the tagged union. Only the fields relevant to Kind are
// populated; callers use the Kind to decide which to read.
type Message struct {
	Kind Kind

	// Seed carries the 128-bit seed, little-endian, widened from a 64-bit
	// internal seed by zero-extension if the primitive only needs 64 bits.
	Seed [16]byte

	// Query fields. QIT is the R/8-byte IT-PIR selection bitmap, CPIRKey is
	// the opaque C-PIR evaluation key blob, QCPIR is the opaque C-PIR query
	// blob.
	QIT     []byte
	CPIRKey []byte
	QCPIR   []byte

	// Response field: the opaque C-PIR reply blob.
	Reply []byte
}

// Hello builds a zero-payload Hello message.
func Hello() *Message { return &Message{Kind: KindHello} }

// SeedMessage builds a Seed message from a 128-bit little-endian seed.
func SeedMessage(seed [16]byte) *Message {
	return &Message{Kind: KindSeed, Seed: seed}
}

// SeedFromUint64 widens a 64-bit internal seed to the wire's 128-bit form
// by zero-extension.
func SeedFromUint64(seed uint64) *Message {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	return SeedMessage(buf)
}

// QueryMessage builds a Query message.
func QueryMessage(qIT, cpirKey, qCPIR []byte) *Message {
	return &Message{Kind: KindQuery, QIT: qIT, CPIRKey: cpirKey, QCPIR: qCPIR}
}

// ResponseMessage builds a Response message.
func ResponseMessage(reply []byte) *Message {
	return &Message{Kind: KindResponse, Reply: reply}
}

// MalformedFrameError is returned for any decoding failure: an unknown
// discriminant, a truncated payload, or a declared length exceeding the
// configured ceiling. It always fails the connection it occurred on,
// never the process.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return "malformed frame: " + e.Reason
}

// Codec encodes and decodes Messages over a stream, enforcing a per-field
// length ceiling.
type Codec struct {
	MaxFieldLength uint64
}

// NewCodec returns a Codec with the default field-length ceiling.
func NewCodec() *Codec {
	return &Codec{MaxFieldLength: DefaultMaxFieldLength}
}

// WriteTo serializes m to w. All integers are little-endian; every byte
// field is prefixed with its length as a 64-bit little-endian integer.
func (c *Codec) WriteTo(w io.Writer, m *Message) error {
	if err := writeUint32(w, uint32(m.Kind)); err != nil {
		return xerrors.Errorf("wire: writing discriminant: %w", err)
	}

	switch m.Kind {
	case KindHello:
		// no payload
	case KindSeed:
		if _, err := w.Write(m.Seed[:]); err != nil {
			return xerrors.Errorf("wire: writing seed: %w", err)
		}
	case KindQuery:
		for _, field := range [][]byte{m.QIT, m.CPIRKey, m.QCPIR} {
			if err := writeField(w, field); err != nil {
				return xerrors.Errorf("wire: writing query field: %w", err)
			}
		}
	case KindResponse:
		if err := writeField(w, m.Reply); err != nil {
			return xerrors.Errorf("wire: writing response field: %w", err)
		}
	default:
		return xerrors.Errorf("wire: unknown message kind %d", m.Kind)
	}

	return nil
}

// ReadFrom deserializes one Message from r, failing with a
// *MalformedFrameError on any framing violation.
func (c *Codec) ReadFrom(r io.Reader) (*Message, error) {
	maxLen := c.MaxFieldLength
	if maxLen == 0 {
		maxLen = DefaultMaxFieldLength
	}

	kindRaw, err := readUint32(r)
	if err != nil {
		return nil, xerrors.Errorf("wire: reading discriminant: %w", err)
	}

	m := &Message{Kind: Kind(kindRaw)}

	switch m.Kind {
	case KindHello:
		// no payload
	case KindSeed:
		if _, err := io.ReadFull(r, m.Seed[:]); err != nil {
			return nil, &MalformedFrameError{Reason: "truncated seed payload: " + err.Error()}
		}
	case KindQuery:
		if m.QIT, err = readField(r, maxLen); err != nil {
			return nil, err
		}
		if m.CPIRKey, err = readField(r, maxLen); err != nil {
			return nil, err
		}
		if m.QCPIR, err = readField(r, maxLen); err != nil {
			return nil, err
		}
	case KindResponse:
		if m.Reply, err = readField(r, maxLen); err != nil {
			return nil, err
		}
	default:
		return nil, &MalformedFrameError{Reason: "unknown discriminant"}
	}

	return m, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeField(w io.Writer, data []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readField(r io.Reader, maxLen uint64) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, &MalformedFrameError{Reason: "truncated length prefix: " + err.Error()}
	}
	declared := binary.LittleEndian.Uint64(lenBuf[:])
	if declared > maxLen {
		return nil, &MalformedFrameError{Reason: "declared field length exceeds ceiling"}
	}
	if declared == 0 {
		return nil, nil
	}

	data := make([]byte, declared)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, &MalformedFrameError{Reason: "truncated field payload: " + err.Error()}
	}
	return data, nil
}
