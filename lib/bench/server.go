package bench

import (
	"math/rand"
	"net"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
	"github.com/KoffeinFlummi/hybridpir/lib/wire"
)

// benchSeed is a fixed PRNG seed so repeated runs exercise identical
// synthetic databases.
const benchSeed = 1234

// runner holds the single active scheme instance a benchmark connection
// is driving: a connection runs exactly one variant at a time, chosen by
// its most recent Setup message.
type runner struct {
	variant Variant

	itServer     *itpir.Server
	cpirServer   *cpir.Server
	hybridServer *hybrid.Server

	lastSeed [itpir.SeedSize]byte
}

func randomDB(count, size int) [][]byte {
	prng := rand.New(rand.NewSource(benchSeed))
	db := make([][]byte, count)
	for i := range db {
		buf := make([]byte, size)
		_, _ = prng.Read(buf)
		db[i] = buf
	}
	return db
}

func (r *runner) setup(p SetupParams) error {
	switch p.Variant {
	case VariantITPIR:
		params := itpir.Params{Rows: p.Rows, NumServers: p.NumServers, Threshold: p.Threshold}
		server, err := itpir.NewServer(params, randomDB(p.Rows, p.RecordBytes), 0)
		if err != nil {
			return xerrors.Errorf("bench: setting up itpir server: %w", err)
		}
		r.itServer = server
	case VariantCPIR:
		cp, err := cpir.NewParams(cpir.DefaultLiteral, p.Columns, p.RecordBytes)
		if err != nil {
			return xerrors.Errorf("bench: building cpir params: %w", err)
		}
		row := make([]byte, 0, p.Columns*p.RecordBytes)
		for _, rec := range randomDB(p.Columns, p.RecordBytes) {
			row = append(row, rec...)
		}
		server, err := cpir.NewServer(cp, row)
		if err != nil {
			return xerrors.Errorf("bench: setting up cpir server: %w", err)
		}
		r.cpirServer = server
	case VariantHybrid:
		cp, err := cpir.NewParams(cpir.DefaultLiteral, p.Columns, p.RecordBytes)
		if err != nil {
			return xerrors.Errorf("bench: building cpir params: %w", err)
		}
		params := hybrid.Params{
			ITPIR: itpir.Params{Rows: p.Rows, NumServers: p.NumServers, Threshold: p.Threshold},
			CPIR:  cp,
		}
		server, err := hybrid.NewServer(params, randomDB(params.RecordCount(), p.RecordBytes))
		if err != nil {
			return xerrors.Errorf("bench: setting up hybrid server: %w", err)
		}
		r.hybridServer = server
	default:
		return xerrors.Errorf("bench: unknown variant %d", p.Variant)
	}
	r.variant = p.Variant
	return nil
}

func (r *runner) refreshQueue() error {
	switch r.variant {
	case VariantITPIR:
		if r.itServer != nil {
			return r.itServer.RefreshQueue()
		}
	case VariantHybrid:
		if r.hybridServer != nil {
			return r.hybridServer.RefreshQueue()
		}
	}
	return nil
}

func (r *runner) handle(msg *wire.Message) (*wire.Message, error) {
	switch r.variant {
	case VariantITPIR:
		if r.itServer == nil {
			return nil, xerrors.Errorf("bench: itpir scheme not set up yet")
		}
		return r.handleITPIR(msg)
	case VariantCPIR:
		if r.cpirServer == nil {
			return nil, xerrors.Errorf("bench: cpir scheme not set up yet")
		}
		return r.handleCPIR(msg)
	case VariantHybrid:
		if r.hybridServer == nil {
			return nil, xerrors.Errorf("bench: hybrid scheme not set up yet")
		}
		return r.handleHybrid(msg)
	default:
		return nil, xerrors.Errorf("bench: no scheme set up yet")
	}
}

func (r *runner) handleITPIR(msg *wire.Message) (*wire.Message, error) {
	switch msg.Kind {
	case wire.KindHello:
		seed, err := r.itServer.Seed()
		if err != nil {
			return nil, err
		}
		r.lastSeed = seed
		return wire.SeedMessage(seed), nil
	case wire.KindQuery:
		reply, err := r.itServer.Response(r.lastSeed, msg.QIT)
		if err != nil {
			return nil, err
		}
		return wire.ResponseMessage(reply), nil
	default:
		return nil, xerrors.Errorf("bench: unexpected message kind %d for itpir", msg.Kind)
	}
}

func (r *runner) handleCPIR(msg *wire.Message) (*wire.Message, error) {
	if msg.Kind != wire.KindQuery {
		return nil, xerrors.Errorf("bench: unexpected message kind %d for cpir", msg.Kind)
	}
	if len(msg.CPIRKey) > 0 {
		if err := r.cpirServer.SetGaloisKey(msg.CPIRKey); err != nil {
			return nil, err
		}
	}
	reply, err := r.cpirServer.GenReply(msg.QCPIR)
	if err != nil {
		return nil, err
	}
	return wire.ResponseMessage(reply), nil
}

func (r *runner) handleHybrid(msg *wire.Message) (*wire.Message, error) {
	switch msg.Kind {
	case wire.KindHello:
		seed, err := r.hybridServer.Seed()
		if err != nil {
			return nil, err
		}
		r.lastSeed = seed
		return wire.SeedMessage(seed), nil
	case wire.KindQuery:
		if len(msg.CPIRKey) > 0 {
			if err := r.hybridServer.SetGaloisKey(msg.CPIRKey); err != nil {
				return nil, err
			}
		}
		reply, err := r.hybridServer.Response(r.lastSeed, msg.QIT, msg.QCPIR)
		if err != nil {
			return nil, err
		}
		return wire.ResponseMessage(reply), nil
	default:
		return nil, xerrors.Errorf("bench: unexpected message kind %d for hybrid", msg.Kind)
	}
}

// ServeConnection runs the benchmark envelope's server loop over conn:
// Setup/RefreshQueue/Protocol messages arrive in any order and any
// number of times, keeping one TCP stream alive across many
// independently-timed requests instead of reconnecting per query the
// way the production server does. It returns nil when the client closes
// the connection.
func ServeConnection(conn net.Conn) error {
	defer conn.Close()

	codec := NewCodec()
	r := &runner{}

	for {
		msg, err := codec.ReadFrom(conn)
		if err != nil {
			return nil
		}

		switch msg.Kind {
		case KindSetup:
			if err := r.setup(msg.Setup); err != nil {
				return xerrors.Errorf("bench: setup: %w", err)
			}
			if err := codec.WriteTo(conn, ReadyMessage()); err != nil {
				return xerrors.Errorf("bench: acking setup: %w", err)
			}
		case KindRefreshQueue:
			if err := r.refreshQueue(); err != nil {
				return xerrors.Errorf("bench: refresh queue: %w", err)
			}
			if err := codec.WriteTo(conn, ReadyMessage()); err != nil {
				return xerrors.Errorf("bench: acking refresh: %w", err)
			}
		case KindProtocol:
			reply, err := r.handle(msg.Inner)
			if err != nil {
				return xerrors.Errorf("bench: handling protocol message: %w", err)
			}
			if err := codec.WriteTo(conn, ProtocolMessage(reply)); err != nil {
				return xerrors.Errorf("bench: writing protocol reply: %w", err)
			}
		default:
			return xerrors.Errorf("bench: unexpected envelope kind %d", msg.Kind)
		}
	}
}
