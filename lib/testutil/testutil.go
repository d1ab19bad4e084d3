// Package testutil builds synthetic record sets for tests across this
// module, using github.com/Pallinder/go-randomdata to generate filler
// data rather than every package's tests hand-rolling their own byte
// generator.
package testutil

import "github.com/Pallinder/go-randomdata"

// RandomRecords returns n fixed-length records of recordBytes each,
// filled with go-randomdata's pseudo-random character runes truncated
// or padded to the exact length every record in a matrix must share.
func RandomRecords(n, recordBytes int) [][]byte {
	records := make([][]byte, n)
	for i := range records {
		records[i] = randomBytes(recordBytes)
	}
	return records
}

func randomBytes(n int) []byte {
	out := make([]byte, 0, n+32)
	for len(out) < n {
		out = append(out, []byte(randomdata.RandStringRunes(16))...)
	}
	return out[:n]
}
