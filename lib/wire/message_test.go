package wire

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAllVariants(t *testing.T) {
	codec := NewCodec()

	messages := []*Message{
		Hello(),
		SeedFromUint64(1234),
		QueryMessage([]byte{0xde, 0xad}, []byte("galois-key"), []byte("cpir-query-blob")),
		ResponseMessage([]byte("cpir-reply-blob")),
		QueryMessage(nil, nil, nil), // empty payloads
	}

	for _, m := range messages {
		buf := new(bytes.Buffer)
		require.NoError(t, codec.WriteTo(buf, m))

		decoded, err := codec.ReadFrom(buf)
		require.NoError(t, err)

		if diff := cmp.Diff(m, decoded); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRoundTripMaxSizeBlob(t *testing.T) {
	codec := NewCodec()
	big := bytes.Repeat([]byte{0x42}, 1<<20)

	m := ResponseMessage(big)
	buf := new(bytes.Buffer)
	require.NoError(t, codec.WriteTo(buf, m))

	decoded, err := codec.ReadFrom(buf)
	require.NoError(t, err)
	require.True(t, bytes.Equal(m.Reply, decoded.Reply))
}

func TestMalformedFrameUnknownDiscriminant(t *testing.T) {
	codec := NewCodec()
	buf := bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0xff})

	_, err := codec.ReadFrom(buf)
	require.Error(t, err)
	require.IsType(t, &MalformedFrameError{}, err)
}

func TestMalformedFrameTruncatedPayload(t *testing.T) {
	codec := NewCodec()
	buf := new(bytes.Buffer)
	require.NoError(t, codec.WriteTo(buf, QueryMessage([]byte{1, 2, 3}, nil, nil)))

	truncated := bytes.NewBuffer(buf.Bytes()[:buf.Len()-2])
	_, err := codec.ReadFrom(truncated)
	require.Error(t, err)
	require.IsType(t, &MalformedFrameError{}, err)
}

func TestMalformedFrameLengthCeiling(t *testing.T) {
	codec := &Codec{MaxFieldLength: 4}
	buf := new(bytes.Buffer)
	require.NoError(t, codec.WriteTo(buf, ResponseMessage([]byte("way too long"))))

	_, err := codec.ReadFrom(buf)
	require.Error(t, err)
	require.IsType(t, &MalformedFrameError{}, err)
}
