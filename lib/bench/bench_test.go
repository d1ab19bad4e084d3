package bench

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
)

func startBenchServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = ServeConnection(conn)
	}()

	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestRunHybridRetrievesRecordAcrossBenchmarkEnvelope(t *testing.T) {
	const rows, numServers, threshold = 24, 3, 3
	const columns, recordBytes = 4, 8

	cp, err := cpir.NewParams(cpir.DefaultLiteral, columns, recordBytes)
	require.NoError(t, err)
	params := hybrid.Params{
		ITPIR: itpir.Params{Rows: rows, NumServers: numServers, Threshold: threshold},
		CPIR:  cp,
	}

	conns := make([]net.Conn, numServers)
	for i := 0; i < numServers; i++ {
		addr := startBenchServer(t)
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		codec := NewCodec()
		require.NoError(t, Setup(codec, conn, SetupParams{
			Variant:     VariantHybrid,
			Rows:        rows,
			NumServers:  numServers,
			Threshold:   threshold,
			Columns:     columns,
			RecordBytes: recordBytes,
		}))
		conns[i] = conn
	}

	client, err := hybrid.NewClient(params)
	require.NoError(t, err)

	record, block, err := RunHybrid(conns, client, 5)
	require.NoError(t, err)
	require.Len(t, record, recordBytes)
	require.NotNil(t, block)
	require.Len(t, block.Answers, numServers)
}

func TestRunHybridRejectsTooFewConnections(t *testing.T) {
	cp, err := cpir.NewParams(cpir.DefaultLiteral, 4, 8)
	require.NoError(t, err)
	params := hybrid.Params{
		ITPIR: itpir.Params{Rows: 8, NumServers: 3, Threshold: 3},
		CPIR:  cp,
	}
	client, err := hybrid.NewClient(params)
	require.NoError(t, err)

	_, _, err = RunHybrid(nil, client, 0)
	require.Error(t, err)
}
