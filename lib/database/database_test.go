package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoffeinFlummi/hybridpir/lib/testutil"
)

func makeRecords(n, size int) [][]byte {
	return testutil.RandomRecords(n, size)
}

func TestFoldPadsNonDivisibleDatabaseToFullMatrix(t *testing.T) {
	records := makeRecords(1000, 8)
	matrix, columns, err := Fold(records, 64, 8)
	require.NoError(t, err)
	require.Equal(t, 16, columns) // ceil(1000/64)
	require.Len(t, matrix, 64*16)

	for i, r := range records {
		require.Equal(t, r, matrix[i])
	}
	for i := len(records); i < len(matrix); i++ {
		require.Equal(t, make([]byte, 8), matrix[i])
	}
}

func TestFoldRejectsMismatchedRecordLength(t *testing.T) {
	records := makeRecords(4, 8)
	records[1] = []byte{1, 2, 3}
	_, _, err := Fold(records, 2, 8)
	require.Error(t, err)
}

func TestPadAndUnpadRecordRoundTrip(t *testing.T) {
	data := []byte("deadbeef")
	padded := PadRecord(data, 16)
	require.Len(t, padded, 16)
	require.Equal(t, data, UnpadRecord(padded))
}
