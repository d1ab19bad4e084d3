package hybrid

import (
	"sync"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/cpir"
	"github.com/KoffeinFlummi/hybridpir/lib/itpir"
)

// defaultQueueTarget is how many preprocessed IT-PIR seeds a hybrid
// Server tries to keep in reserve, the same offline/online split
// lib/itpir's standalone Server offers.
const defaultQueueTarget = 4

// Server holds one physical server's full copy of the R*C record
// matrix as plaintext rows, wrapped in an itpir.Server for row
// selection. It answers a query in two sequential steps: IT-PIR first
// reduces the matrix to the single row the client's bitmap selects
// (cheap XOR over plaintext), then a C-PIR server is set up over just
// that row and answers the client's column query with exactly one
// homomorphic evaluation. Every query pays for one row's worth of
// C-PIR Setup and one GenReply, never R of them.
type Server struct {
	params   Params
	itServer *itpir.Server

	galoisKeyMu  sync.Mutex
	galoisKey    []byte
	galoisKeySet bool
}

// NewServer builds a Server over records, a flat RecordCount()-length
// slice of RecordBytes-sized records in row-major matrix order.
func NewServer(params Params, records [][]byte) (*Server, error) {
	if err := params.CPIR.Validate(); err != nil {
		return nil, err
	}
	if len(records) != params.RecordCount() {
		return nil, xerrors.Errorf("hybrid: got %d records, want %d", len(records), params.RecordCount())
	}

	rows := make([][]byte, params.ITPIR.Rows)
	for r := 0; r < params.ITPIR.Rows; r++ {
		row := make([]byte, 0, params.CPIR.Columns*params.CPIR.RecordBytes)
		for c := 0; c < params.CPIR.Columns; c++ {
			record := records[r*params.CPIR.Columns+c]
			if len(record) != params.CPIR.RecordBytes {
				return nil, xerrors.Errorf("hybrid: record (%d,%d) has length %d, want %d", r, c, len(record), params.CPIR.RecordBytes)
			}
			row = append(row, record...)
		}
		rows[r] = row
	}

	itServer, err := itpir.NewServer(params.ITPIR, rows, defaultQueueTarget)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: setting up itpir server: %w", err)
	}

	return &Server{
		params:   params,
		itServer: itServer,
	}, nil
}

// SetGaloisKey stores the client's Galois key for this session. It is
// idempotent across calls so the client only has to send it on the
// first query, and cheap to call again if it does. Unlike a standalone
// cpir.Server, the key can't be installed on a row's C-PIR server up
// front, because that server isn't built until a query arrives.
func (s *Server) SetGaloisKey(encoded []byte) error {
	s.galoisKeyMu.Lock()
	defer s.galoisKeyMu.Unlock()
	s.galoisKey = encoded
	s.galoisKeySet = true
	return nil
}

// HasGaloisKey reports whether SetGaloisKey has been called yet.
func (s *Server) HasGaloisKey() bool {
	s.galoisKeyMu.Lock()
	defer s.galoisKeyMu.Unlock()
	return s.galoisKeySet
}

// Seed hands out a preprocessed IT-PIR seed for the Query that follows
// it, delegating to the underlying itpir.Server, whose Response rejects
// a seed it has already answered.
func (s *Server) Seed() ([itpir.SeedSize]byte, error) {
	return s.itServer.Seed()
}

// RefreshQueue tops off the IT-PIR preprocessing queue. Meant to be
// called after a reply has been sent, so precomputation for the next
// query overlaps network latency instead of the following request's
// wait time.
func (s *Server) RefreshQueue() error {
	return s.itServer.RefreshQueue()
}

// Response answers one query: bitmap is this server's IT-PIR row-
// selection share (R bits), cpirQuery is the client's encrypted column
// selector. seed is the freshness token this server previously handed
// out via Seed; it may be consumed at most once. IT-PIR reduces the
// matrix to one plaintext row, then a fresh C-PIR server is set up over
// that row to answer cpirQuery with a single homomorphic evaluation.
func (s *Server) Response(seed [itpir.SeedSize]byte, bitmap, cpirQuery []byte) ([]byte, error) {
	s.galoisKeyMu.Lock()
	galoisKey, haveKey := s.galoisKey, s.galoisKeySet
	s.galoisKeyMu.Unlock()
	if !haveKey {
		return nil, xerrors.Errorf("hybrid: galois key not installed")
	}

	raw, err := s.itServer.Response(seed, bitmap)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: reducing matrix to selected row: %w", err)
	}

	cpirServer, err := cpir.NewServer(s.params.CPIR, raw)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: setting up cpir over selected row: %w", err)
	}
	if err := cpirServer.SetGaloisKey(galoisKey); err != nil {
		return nil, xerrors.Errorf("hybrid: installing galois key: %w", err)
	}

	reply, err := cpirServer.GenReply(cpirQuery)
	if err != nil {
		return nil, xerrors.Errorf("hybrid: generating reply: %w", err)
	}
	return reply, nil
}
