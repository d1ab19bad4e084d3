package pool

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
	"github.com/KoffeinFlummi/hybridpir/lib/testutil"
)

func testParams(t *testing.T) hybrid.Params {
	t.Helper()
	cp, err := cpir.NewParams(cpir.DefaultLiteral, 4, 8)
	require.NoError(t, err)
	return hybrid.Params{
		ITPIR: itpir.Params{Rows: 24, NumServers: 3, Threshold: 3},
		CPIR:  cp,
	}
}

func testRecords(rows, columns, recordBytes int) [][]byte {
	return testutil.RandomRecords(rows*columns, recordBytes)
}

func startServer(t *testing.T, server *hybrid.Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = hybrid.ServeConnection(conn, server)
	}()

	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestPoolRunRetrievesRecord(t *testing.T) {
	params := testParams(t)
	records := testRecords(params.ITPIR.Rows, params.CPIR.Columns, params.CPIR.RecordBytes)

	client, err := hybrid.NewClient(params)
	require.NoError(t, err)

	addrs := make([]string, params.ITPIR.NumServers)
	for i := range addrs {
		server, err := hybrid.NewServer(params, records)
		require.NoError(t, err)
		addrs[i] = startServer(t, server)
	}

	p, err := New(addrs)
	require.NoError(t, err)

	const target = 5
	query, err := client.BuildQuery(target)
	require.NoError(t, err)

	answers, err := p.Run(query, client.GaloisKey())
	require.NoError(t, err)

	got, err := client.Combine(answers)
	require.NoError(t, err)
	require.Equal(t, records[target], got)
}

func TestNewRejectsTooFewAddresses(t *testing.T) {
	_, err := New([]string{"127.0.0.1:1"})
	require.Error(t, err)
}

func TestRunRejectsMismatchedServerCount(t *testing.T) {
	p, err := New([]string{"127.0.0.1:1", "127.0.0.1:2"})
	require.NoError(t, err)

	_, err = p.Run(&hybrid.Query{Bitmaps: [][]byte{{0}}}, nil)
	require.Error(t, err)
}
