package bench

import (
	"net"
	"sync"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/monitor"
	"github.com/KoffeinFlummi/hybridpir/lib/wire"
)

// Setup drives one Setup/Ready round trip, configuring the scheme a
// benchmark connection will exercise.
func Setup(codec *Codec, conn net.Conn, params SetupParams) error {
	if err := codec.WriteTo(conn, SetupMessage(params)); err != nil {
		return xerrors.Errorf("bench: writing setup: %w", err)
	}
	reply, err := codec.ReadFrom(conn)
	if err != nil {
		return xerrors.Errorf("bench: reading setup ack: %w", err)
	}
	if reply.Kind != KindReady {
		return xerrors.Errorf("bench: expected ready, got kind %d", reply.Kind)
	}
	return nil
}

// RefreshQueue drives one RefreshQueue/Ready round trip.
func RefreshQueue(codec *Codec, conn net.Conn) error {
	if err := codec.WriteTo(conn, RefreshQueueMessage()); err != nil {
		return xerrors.Errorf("bench: writing refresh queue: %w", err)
	}
	reply, err := codec.ReadFrom(conn)
	if err != nil {
		return xerrors.Errorf("bench: reading refresh ack: %w", err)
	}
	if reply.Kind != KindReady {
		return xerrors.Errorf("bench: expected ready, got kind %d", reply.Kind)
	}
	return nil
}

func protocolRoundTrip(codec *Codec, conn net.Conn, inner *wire.Message) (*wire.Message, error) {
	if err := codec.WriteTo(conn, ProtocolMessage(inner)); err != nil {
		return nil, xerrors.Errorf("bench: writing protocol message: %w", err)
	}
	reply, err := codec.ReadFrom(conn)
	if err != nil {
		return nil, xerrors.Errorf("bench: reading protocol reply: %w", err)
	}
	if reply.Kind != KindProtocol || reply.Inner == nil {
		return nil, xerrors.Errorf("bench: expected protocol reply, got kind %d", reply.Kind)
	}
	return reply.Inner, nil
}

// RunHybrid times one full hybrid retrieval against an already-dialed,
// already-Setup connection per server, the benchmark analogue of
// lib/pool.Pool.Run plus lib/hybrid.Client in one call: it issues Hello
// to every server (for the freshness seed), sends the query built from
// client, and decrypts and XOR-combines the answers, recording timings
// into a monitor.Block that times query/answer/reconstruct phases
// separately.
func RunHybrid(conns []net.Conn, client *hybrid.Client, recordIndex int) ([]byte, *monitor.Block, error) {
	if len(conns) < 2 {
		return nil, nil, xerrors.Errorf("bench: need at least 2 connections, got %d", len(conns))
	}

	block := monitor.NewBlock(len(conns))
	m := monitor.NewMonitor()

	query, err := client.BuildQuery(recordIndex)
	if err != nil {
		return nil, nil, xerrors.Errorf("bench: building query: %w", err)
	}
	block.Query = m.RecordAndReset()

	if len(query.Bitmaps) != len(conns) {
		return nil, nil, xerrors.Errorf("bench: query has %d bitmap shares, got %d connections", len(query.Bitmaps), len(conns))
	}

	answers := make([][]byte, len(conns))
	errs := make([]error, len(conns))
	codecs := make([]*Codec, len(conns))
	for i := range codecs {
		codecs[i] = NewCodec()
	}

	wg := sync.WaitGroup{}
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn net.Conn) {
			defer wg.Done()

			codec := codecs[i]
			local := monitor.NewMonitor()

			hello, err := protocolRoundTrip(codec, conn, wire.Hello())
			if err != nil {
				errs[i] = xerrors.Errorf("hello: %w", err)
				return
			}
			if hello.Kind != wire.KindSeed {
				errs[i] = xerrors.Errorf("expected seed, got kind %d", hello.Kind)
				return
			}

			reply, err := protocolRoundTrip(codec, conn, wire.QueryMessage(query.Bitmaps[i], client.GaloisKey(), query.CPIRQuery))
			if err != nil {
				errs[i] = xerrors.Errorf("query: %w", err)
				return
			}

			block.Answers[i] = local.RecordAndReset()
			answers[i] = reply.Reply
		}(i, conn)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, nil, xerrors.Errorf("bench: server %d: %w", i, err)
		}
	}

	m.Reset()
	record, err := client.Combine(answers)
	if err != nil {
		return nil, nil, xerrors.Errorf("bench: combining answers: %w", err)
	}
	block.Reconstruct = m.RecordAndReset()

	return record, block, nil
}
