package hybrid

import (
	"net"
	"time"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/wire"
)

// ConnectionTimeout bounds how long a single read or write on a
// connection may take before it is abandoned. A stalled peer fails only
// its own connection, never the process.
const ConnectionTimeout = 30 * time.Second

// ServeConnection runs the server-side per-connection state machine over
// conn against server: Accept (conn is already accepted by the caller) ->
// ExpectHello -> SendSeed -> ExpectQuery -> SendResponse -> Close. It
// always closes conn before returning, and answers at most one query per
// connection — a client that wants another query reconnects, so a slow
// or malicious peer can only ever tie up one goroutine and one seed.
func ServeConnection(conn net.Conn, server *Server) error {
	defer conn.Close()

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	codec := wire.NewCodec()

	if err := conn.SetDeadline(time.Now().Add(ConnectionTimeout)); err != nil {
		return xerrors.Errorf("hybrid: setting deadline: %w", err)
	}

	hello, err := codec.ReadFrom(conn)
	if err != nil {
		return xerrors.Errorf("hybrid: reading hello: %w", err)
	}
	if hello.Kind != wire.KindHello {
		return xerrors.Errorf("hybrid: expected hello, got kind %d", hello.Kind)
	}

	seed, err := server.Seed()
	if err != nil {
		return xerrors.Errorf("hybrid: generating seed: %w", err)
	}
	if err := codec.WriteTo(conn, wire.SeedMessage(seed)); err != nil {
		return xerrors.Errorf("hybrid: writing seed: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(ConnectionTimeout)); err != nil {
		return xerrors.Errorf("hybrid: resetting deadline: %w", err)
	}

	query, err := codec.ReadFrom(conn)
	if err != nil {
		return xerrors.Errorf("hybrid: reading query: %w", err)
	}
	if query.Kind != wire.KindQuery {
		return xerrors.Errorf("hybrid: expected query, got kind %d", query.Kind)
	}

	if len(query.CPIRKey) > 0 {
		if err := server.SetGaloisKey(query.CPIRKey); err != nil {
			return xerrors.Errorf("hybrid: installing galois key: %w", err)
		}
	}

	reply, err := server.Response(seed, query.QIT, query.QCPIR)
	if err != nil {
		return xerrors.Errorf("hybrid: computing response: %w", err)
	}

	if err := codec.WriteTo(conn, wire.ResponseMessage(reply)); err != nil {
		return xerrors.Errorf("hybrid: writing response: %w", err)
	}

	if err := server.RefreshQueue(); err != nil {
		return xerrors.Errorf("hybrid: refreshing seed queue: %w", err)
	}

	return nil
}

// DialAndQuery runs the client-side half of one connection against a
// single server: Hello -> receive Seed -> send Query -> receive
// Response. galoisKey may be nil on repeat connections to a server that
// already has it installed.
func DialAndQuery(conn net.Conn, bitmap, cpirQuery, galoisKey []byte) ([]byte, error) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	codec := wire.NewCodec()

	if err := conn.SetDeadline(time.Now().Add(ConnectionTimeout)); err != nil {
		return nil, xerrors.Errorf("hybrid: setting deadline: %w", err)
	}

	if err := codec.WriteTo(conn, wire.Hello()); err != nil {
		return nil, xerrors.Errorf("hybrid: writing hello: %w", err)
	}

	// The seed exists purely so this connection's server can reject a
	// replayed query; its value never needs to travel back to the
	// server, since the two are already bound by this one connection.
	seedMsg, err := codec.ReadFrom(conn)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: reading seed: %w", err)
	}
	if seedMsg.Kind != wire.KindSeed {
		return nil, xerrors.Errorf("hybrid: expected seed, got kind %d", seedMsg.Kind)
	}

	if err := codec.WriteTo(conn, wire.QueryMessage(bitmap, galoisKey, cpirQuery)); err != nil {
		return nil, xerrors.Errorf("hybrid: writing query: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(ConnectionTimeout)); err != nil {
		return nil, xerrors.Errorf("hybrid: resetting deadline: %w", err)
	}

	response, err := codec.ReadFrom(conn)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: reading response: %w", err)
	}
	if response.Kind != wire.KindResponse {
		return nil, xerrors.Errorf("hybrid: expected response, got kind %d", response.Kind)
	}

	return response.Reply, nil
}
