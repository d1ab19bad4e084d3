// Package itpir implements the information-theoretic, multi-server PIR
// primitive: a seeded, XOR-based scheme operating over a vector of
// fixed-length "row" records, exposing query/response/combine plus a
// seeded offline/online split. It is the only concrete row-selection
// scheme in this module; the hybrid layer names it alongside the
// column-selection primitive in lib/cpir without generalizing over
// either one.
package itpir

import "golang.org/x/xerrors"

// SeedSize is the width, in bytes, of the seed used both as the PRG key
// for the server's precomputed pad and as the wire encoding of the
// 128-bit seed.
const SeedSize = 16

// Params configures one side (client or server) of the IT-PIR scheme.
// Rows is the IT-PIR operand size R, NumServers is k, Threshold is t.
type Params struct {
	Rows       int
	NumServers int
	Threshold  int
}

// Validate checks the constructor-time invariants: R must be smaller
// than the database length it folds and a multiple of 8*k so the query
// bitmap is byte-aligned, and 0 < t <= k.
func (p Params) Validate(dbLen int) error {
	if p.Rows <= 0 {
		return xerrors.Errorf("itpir: rows must be positive, got %d", p.Rows)
	}
	if dbLen > 0 && p.Rows >= dbLen {
		return xerrors.Errorf("itpir: rows (%d) must be less than database length (%d)", p.Rows, dbLen)
	}
	if p.NumServers < 2 {
		return xerrors.Errorf("itpir: numServers must be >= 2, got %d", p.NumServers)
	}
	if p.Rows%(8*p.NumServers) != 0 {
		return xerrors.Errorf("itpir: rows (%d) must be a multiple of 8*numServers (%d)", p.Rows, 8*p.NumServers)
	}
	if p.Threshold <= 0 || p.Threshold > p.NumServers {
		return xerrors.Errorf("itpir: threshold %d out of range (0, %d]", p.Threshold, p.NumServers)
	}
	return nil
}

// BitmapBytes returns the wire length of a query bitmap: R/8 bytes.
func (p Params) BitmapBytes() int {
	return p.Rows / 8
}
