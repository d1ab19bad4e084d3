// Package hybrid composes the IT-PIR (lib/itpir) and C-PIR (lib/cpir)
// primitives into the full retrieval protocol: a database is folded
// into an R-row, C-column matrix of fixed-size records. Each server
// first runs IT-PIR's XOR-based row selection over its own plaintext
// copy of the matrix, reducing it to the single row the client asked
// for; only then does it set up a C-PIR instance over that one row and
// homomorphically pick out the requested column. The two steps never
// mix: IT-PIR combines plaintext record bytes, C-PIR combines
// ciphertexts belonging to the same encryption, and the client
// recovers the record by decoding every server's ciphertext reply on
// its own before XOR-combining the resulting plaintexts (see
// Server.Response and Client.Combine).
package hybrid

import (
	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
	"golang.org/x/xerrors"
)

// Params bundles one IT-PIR row-selection configuration with one C-PIR
// column-selection configuration. ITPIR.Rows is R, CPIR.Columns is C.
type Params struct {
	ITPIR itpir.Params
	CPIR  cpir.Params
}

// RecordCount returns R*C, the number of fixed-size records the matrix holds.
func (p Params) RecordCount() int {
	return p.ITPIR.Rows * p.CPIR.Columns
}

// RowAndColumn splits a flat record index into its matrix coordinates.
func (p Params) RowAndColumn(index int) (row, column int, err error) {
	if index < 0 || index >= p.RecordCount() {
		return 0, 0, xerrors.Errorf("hybrid: record index %d out of range [0, %d)", index, p.RecordCount())
	}
	return index / p.CPIR.Columns, index % p.CPIR.Columns, nil
}
