// Package cpir implements the single-server, lattice-based computational
// PIR primitive: given a ciphertext encrypting a one-hot selector over a
// matrix row's columns, a server homomorphically picks out one record
// without ever seeing which one, using the BGV scheme from tuneinsight's
// lattigo. It exposes setup/gen_query/get_key/set_galois_key/gen_reply/
// decode_reply and, like lib/itpir for row selection, is the only
// concrete implementation of column selection in this module; the exact
// homomorphic circuit below is a plausible column-selection construction,
// not a claimed replica of any particular published one.
package cpir

import (
	"github.com/tuneinsight/lattigo/v5/he/heint"
	"golang.org/x/xerrors"
)

// Params bundles the homomorphic encryption parameters with the matrix
// shape this instance of the primitive was configured for: Columns is C,
// the number of records per IT-PIR row, and RecordBytes is the fixed
// record size. Each record is packed one byte per slot into its own
// plaintext, and the column selector uses one slot per column, so
// RecordBytes and Columns must each not exceed the ring's slot count.
type Params struct {
	HE          heint.Parameters
	Columns     int
	RecordBytes int
}

// DefaultLiteral is a small BGV parameter set adequate for demonstrating
// the column-selection circuit: N=4096 slots, a 16-bit plaintext modulus
// (matching the plaintext modulus the multiparty PIR example in the
// lattigo example pack uses), and a three-modulus ciphertext chain.
var DefaultLiteral = heint.ParametersLiteral{
	LogN: 12,
	LogQ: []int{39, 39, 39},
	LogP: []int{40},
	T:    0x10001,
}

// NewParams builds heint parameters from literal and validates that one
// record and the column selector each fit in one plaintext's slots.
func NewParams(literal heint.ParametersLiteral, columns, recordBytes int) (Params, error) {
	he, err := heint.NewParametersFromLiteral(literal)
	if err != nil {
		return Params{}, xerrors.Errorf("cpir: building HE parameters: %w", err)
	}
	p := Params{HE: he, Columns: columns, RecordBytes: recordBytes}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks that RecordBytes and Columns are positive and each fit
// the ring's slot budget.
func (p Params) Validate() error {
	if p.Columns <= 0 {
		return xerrors.Errorf("cpir: columns must be positive, got %d", p.Columns)
	}
	if p.RecordBytes <= 0 {
		return xerrors.Errorf("cpir: recordBytes must be positive, got %d", p.RecordBytes)
	}
	if p.RecordBytes > p.HE.MaxSlots() {
		return xerrors.Errorf("cpir: recordBytes (%d) exceeds ring slot count (%d)", p.RecordBytes, p.HE.MaxSlots())
	}
	if p.Columns > p.HE.MaxSlots() {
		return xerrors.Errorf("cpir: columns (%d) exceeds ring slot count (%d)", p.Columns, p.HE.MaxSlots())
	}
	return nil
}
