// Package database folds a flat list of N fixed-size records into the
// R-row, C-column matrix the hybrid scheme serves. The matrix
// construction (numRows, numColumns, a zero-filled base database, an
// ISO/IEC 7816-4 style padding scheme for values shorter than a block)
// follows the same shape as a hash-table-backed keyring lookup matrix,
// adapted to hold opaque records directly instead of entries keyed by
// ID, with C derived from N and R rather than a fixed ratio of the
// input size.
package database

import (
	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/utils"
)

// Columns computes C = ceil(N/R), the number of records per row needed
// so that R rows hold all N records.
func Columns(n, rows int) int {
	return utils.DivideAndRoundUpToMultiple(n, rows, 1)
}

// Fold pads records out to exactly rows*Columns(len(records), rows)
// entries (the last row's unused slots filled with zero records of the
// same length) and returns the flat, row-major matrix together with the
// column count the caller must configure C-PIR with.
func Fold(records [][]byte, rows, recordBytes int) (matrix [][]byte, columns int, err error) {
	if rows <= 0 {
		return nil, 0, xerrors.Errorf("database: rows must be positive, got %d", rows)
	}
	for i, r := range records {
		if len(r) != recordBytes {
			return nil, 0, xerrors.Errorf("database: record %d has length %d, want %d", i, len(r), recordBytes)
		}
	}

	columns = Columns(len(records), rows)
	if columns == 0 {
		columns = 1
	}
	total := rows * columns

	matrix = make([][]byte, total)
	copy(matrix, records)
	for i := len(records); i < total; i++ {
		matrix[i] = make([]byte, recordBytes)
	}

	return matrix, columns, nil
}

// PadRecord applies ISO/IEC 7816-4 padding (append 0x80, then zeros) to
// grow data up to a multiple of blockLen, for records whose natural
// length isn't already the matrix's fixed record size.
func PadRecord(data []byte, blockLen int) []byte {
	padded := append(append([]byte{}, data...), 0x80)
	if rem := len(padded) % blockLen; rem != 0 {
		padded = append(padded, make([]byte, blockLen-rem)...)
	}
	return padded
}

// UnpadRecord reverses PadRecord: it strips trailing zeros, then the
// 0x80 padding marker.
func UnpadRecord(data []byte) []byte {
	i := len(data)
	for i > 0 && data[i-1] == 0 {
		i--
	}
	if i == 0 || data[i-1] != 0x80 {
		return data
	}
	return data[:i-1]
}
