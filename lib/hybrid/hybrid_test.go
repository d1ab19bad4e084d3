package hybrid

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
	"github.com/KoffeinFlummi/hybridpir/lib/testutil"
)

func testParams(t *testing.T) Params {
	t.Helper()
	cp, err := cpir.NewParams(cpir.DefaultLiteral, 4, 8)
	require.NoError(t, err)
	return Params{
		ITPIR: itpir.Params{Rows: 24, NumServers: 3, Threshold: 3},
		CPIR:  cp,
	}
}

func testRecords(rows, columns, recordBytes int) [][]byte {
	return testutil.RandomRecords(rows*columns, recordBytes)
}

// startServer launches one hybrid.Server behind a loopback TCP listener
// that answers exactly one connection (one query) before shutting down,
// mirroring how lib/pool dials a fresh connection per query.
func startServer(t *testing.T, server *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = ServeConnection(conn, server)
	}()

	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestEndToEndRecordRetrieval(t *testing.T) {
	params := testParams(t)
	records := testRecords(params.ITPIR.Rows, params.CPIR.Columns, params.CPIR.RecordBytes)

	client, err := NewClient(params)
	require.NoError(t, err)

	const target = 13 // row 3, column 1 for a 24x4 matrix
	query, err := client.BuildQuery(target)
	require.NoError(t, err)

	addrs := make([]string, params.ITPIR.NumServers)
	for i := 0; i < params.ITPIR.NumServers; i++ {
		server, err := NewServer(params, records)
		require.NoError(t, err)
		addrs[i] = startServer(t, server)
	}

	answers := make([][]byte, params.ITPIR.NumServers)
	for i, addr := range addrs {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		reply, err := DialAndQuery(conn, query.Bitmaps[i], query.CPIRQuery, client.GaloisKey())
		require.NoError(t, err)
		answers[i] = reply
	}

	got, err := client.Combine(answers)
	require.NoError(t, err)
	require.Equal(t, records[target], got)
}

func TestBuildQueryRejectsOutOfRangeIndex(t *testing.T) {
	params := testParams(t)
	client, err := NewClient(params)
	require.NoError(t, err)

	_, err = client.BuildQuery(params.RecordCount())
	require.Error(t, err)
}

func TestResponseRejectsReplayedSeed(t *testing.T) {
	params := testParams(t)
	records := testRecords(params.ITPIR.Rows, params.CPIR.Columns, params.CPIR.RecordBytes)

	server, err := NewServer(params, records)
	require.NoError(t, err)

	client, err := NewClient(params)
	require.NoError(t, err)
	require.NoError(t, server.SetGaloisKey(client.GaloisKey()))

	query, err := client.BuildQuery(0)
	require.NoError(t, err)

	seed, err := server.Seed()
	require.NoError(t, err)

	_, err = server.Response(seed, query.Bitmaps[0], query.CPIRQuery)
	require.NoError(t, err)

	_, err = server.Response(seed, query.Bitmaps[0], query.CPIRQuery)
	require.Error(t, err)
}
