package itpir

import (
	"crypto/rand"

	"github.com/lukechampine/fastxor"
	"golang.org/x/xerrors"
)

// Query is one client's full set of per-server selection bitmaps for a
// single row index: NumServers bitmaps, each R bits wide, whose XOR is
// the unit vector selecting that row. Generalized from a two-server
// GF(2) secret sharing scheme to an arbitrary number of servers. The
// split is always k-of-k: params.Threshold is not read, and the row is
// recovered only from all NumServers shares together.
//
// Construction uses independent client-side randomness rather than any
// seed: a server that could derive its own bitmap share from the seed it
// handed out would also be able to recognize whenever the client's
// query differs from that derived share, which happens precisely at the
// server carrying the XOR fixup and so leaks which server that is. Seeds
// are reserved for the offline/online performance split in Server; they
// never participate in the privacy-critical part of query construction.
type Query struct {
	Bitmaps [][]byte
}

// NewQuery builds a fresh Query selecting row, split across params.NumServers
// bitmaps of params.BitmapBytes() length each.
func NewQuery(params Params, row int) (*Query, error) {
	if row < 0 || row >= params.Rows {
		return nil, xerrors.Errorf("itpir: row %d out of range [0, %d)", row, params.Rows)
	}

	n := params.BitmapBytes()
	k := params.NumServers
	bitmaps := make([][]byte, k)

	// The first k-1 bitmaps are uniformly random; the last is fixed up so
	// the XOR of all k equals the unit vector at row.
	fixup := make([]byte, n)
	setBit(fixup, row)

	for i := 0; i < k-1; i++ {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			return nil, xerrors.Errorf("itpir: sampling query share %d: %w", i, err)
		}
		bitmaps[i] = b
		fastxor.Bytes(fixup, fixup, b)
	}
	bitmaps[k-1] = fixup

	return &Query{Bitmaps: bitmaps}, nil
}

// Combine XORs the per-server answers back into the selected row's
// plaintext. Correctness only requires every server to have answered;
// the order of answers must match the order bitmaps were sent out in.
func Combine(answers [][]byte) ([]byte, error) {
	if len(answers) == 0 {
		return nil, xerrors.Errorf("itpir: no answers to combine")
	}
	rowBytes := len(answers[0])
	for i, a := range answers {
		if len(a) != rowBytes {
			return nil, xerrors.Errorf("itpir: answer %d has length %d, want %d", i, len(a), rowBytes)
		}
	}

	result := make([]byte, rowBytes)
	for _, a := range answers {
		fastxor.Bytes(result, result, a)
	}
	return result, nil
}

func setBit(bitmap []byte, i int) {
	bitmap[i/8] |= 1 << uint(i%8)
}
