// Package bench is the optional benchmark protocol envelope: a side
// channel, never used by the production cmd/hybridpir-server listener,
// that lets one long-lived connection exercise bare IT-PIR, bare C-PIR,
// or the full hybrid scheme on demand, multiplexing all three variants
// behind a single Setup/RefreshQueue/Ready/Protocol envelope so one
// benchmark binary can drive any of them without reconnecting.
//
// Rather than three separate per-scheme wire formats, Protocol envelopes
// here always carry one wire.Message: Variant alone decides which of its
// fields a bare IT-PIR or bare C-PIR run populates, since the connection
// already knows its active variant from the Setup that preceded it.
package bench

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/wire"
)

// Kind identifies an envelope-level message, sent ahead of and around
// any C1 wire.Message traffic it wraps.
type Kind uint32

const (
	KindSetup Kind = iota
	KindRefreshQueue
	KindReady
	KindProtocol
)

// Variant selects which scheme a benchmark connection exercises.
type Variant uint32

const (
	VariantITPIR Variant = iota
	VariantCPIR
	VariantHybrid
)

// SetupParams configures the scheme instance a connection benchmarks.
// Rows/NumServers/Threshold matter for VariantITPIR and VariantHybrid;
// Columns/RecordBytes matter for VariantCPIR and VariantHybrid.
type SetupParams struct {
	Variant     Variant
	Rows        int
	NumServers  int
	Threshold   int
	Columns     int
	RecordBytes int
}

// Message is the envelope's tagged union. Setup is populated only for
// KindSetup; Inner is populated only for KindProtocol.
type Message struct {
	Kind  Kind
	Setup SetupParams
	Inner *wire.Message
}

// SetupMessage builds a Setup envelope.
func SetupMessage(params SetupParams) *Message {
	return &Message{Kind: KindSetup, Setup: params}
}

// RefreshQueueMessage builds a RefreshQueue envelope.
func RefreshQueueMessage() *Message { return &Message{Kind: KindRefreshQueue} }

// ReadyMessage builds a Ready envelope, sent in answer to Setup and
// RefreshQueue.
func ReadyMessage() *Message { return &Message{Kind: KindReady} }

// ProtocolMessage wraps a C1 wire.Message inside an envelope.
func ProtocolMessage(inner *wire.Message) *Message {
	return &Message{Kind: KindProtocol, Inner: inner}
}

// Codec encodes and decodes envelope Messages over a stream, delegating
// KindProtocol payloads to an inner wire.Codec.
type Codec struct {
	inner *wire.Codec
}

// NewCodec returns a Codec with a default-configured inner wire.Codec.
func NewCodec() *Codec {
	return &Codec{inner: wire.NewCodec()}
}

// WriteTo serializes m to w.
func (c *Codec) WriteTo(w io.Writer, m *Message) error {
	if err := writeUint32(w, uint32(m.Kind)); err != nil {
		return xerrors.Errorf("bench: writing discriminant: %w", err)
	}

	switch m.Kind {
	case KindSetup:
		fields := []int{
			int(m.Setup.Variant),
			m.Setup.Rows,
			m.Setup.NumServers,
			m.Setup.Threshold,
			m.Setup.Columns,
			m.Setup.RecordBytes,
		}
		for _, f := range fields {
			if err := writeUint32(w, uint32(f)); err != nil {
				return xerrors.Errorf("bench: writing setup params: %w", err)
			}
		}
	case KindRefreshQueue, KindReady:
		// no payload
	case KindProtocol:
		if m.Inner == nil {
			return xerrors.Errorf("bench: protocol envelope has no inner message")
		}
		if err := c.inner.WriteTo(w, m.Inner); err != nil {
			return xerrors.Errorf("bench: writing protocol payload: %w", err)
		}
	default:
		return xerrors.Errorf("bench: unknown message kind %d", m.Kind)
	}

	return nil
}

// ReadFrom deserializes one Message from r.
func (c *Codec) ReadFrom(r io.Reader) (*Message, error) {
	kindRaw, err := readUint32(r)
	if err != nil {
		return nil, xerrors.Errorf("bench: reading discriminant: %w", err)
	}

	m := &Message{Kind: Kind(kindRaw)}

	switch m.Kind {
	case KindSetup:
		raw := make([]uint32, 6)
		for i := range raw {
			v, err := readUint32(r)
			if err != nil {
				return nil, xerrors.Errorf("bench: reading setup params: %w", err)
			}
			raw[i] = v
		}
		m.Setup = SetupParams{
			Variant:     Variant(raw[0]),
			Rows:        int(raw[1]),
			NumServers:  int(raw[2]),
			Threshold:   int(raw[3]),
			Columns:     int(raw[4]),
			RecordBytes: int(raw[5]),
		}
	case KindRefreshQueue, KindReady:
		// no payload
	case KindProtocol:
		inner, err := c.inner.ReadFrom(r)
		if err != nil {
			return nil, xerrors.Errorf("bench: reading protocol payload: %w", err)
		}
		m.Inner = inner
	default:
		return nil, xerrors.Errorf("bench: unknown discriminant %d", m.Kind)
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
