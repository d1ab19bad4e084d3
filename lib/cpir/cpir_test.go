package cpir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoffeinFlummi/hybridpir/lib/testutil"
)

func testParams(t *testing.T) Params {
	t.Helper()
	p, err := NewParams(DefaultLiteral, 4, 8)
	require.NoError(t, err)
	return p
}

func testRow(columns, recordBytes int) []byte {
	row := make([]byte, 0, columns*recordBytes)
	for _, rec := range testutil.RandomRecords(columns, recordBytes) {
		row = append(row, rec...)
	}
	return row
}

func TestGenReplyRecoversSelectedColumn(t *testing.T) {
	params := testParams(t)
	row := testRow(params.Columns, params.RecordBytes)

	client, err := NewClient(params)
	require.NoError(t, err)

	server, err := NewServer(params, row)
	require.NoError(t, err)
	require.NoError(t, server.SetGaloisKey(client.GetKey()))

	for col := 0; col < params.Columns; col++ {
		query, err := client.GenQuery(col)
		require.NoError(t, err)

		reply, err := server.GenReply(query)
		require.NoError(t, err)

		got, err := client.DecodeReply(reply)
		require.NoError(t, err)

		want := row[col*params.RecordBytes : (col+1)*params.RecordBytes]
		require.Equal(t, want, got)
	}
}

func TestGenReplyRejectsMissingGaloisKey(t *testing.T) {
	params := testParams(t)
	row := testRow(params.Columns, params.RecordBytes)

	client, err := NewClient(params)
	require.NoError(t, err)

	server, err := NewServer(params, row)
	require.NoError(t, err)

	query, err := client.GenQuery(0)
	require.NoError(t, err)

	_, err = server.GenReply(query)
	require.Error(t, err)
}

func TestGenQueryRejectsOutOfRangeColumn(t *testing.T) {
	params := testParams(t)

	client, err := NewClient(params)
	require.NoError(t, err)

	_, err = client.GenQuery(params.Columns)
	require.Error(t, err)
	_, err = client.GenQuery(-1)
	require.Error(t, err)
}
