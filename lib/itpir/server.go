package itpir

import (
	"github.com/lukechampine/fastxor"
	"golang.org/x/xerrors"
)

// Server holds one server's share of the database for the IT-PIR
// primitive: the database folded into R fixed-length rows, plus the
// background queue of precomputed seed/pad/partial-XOR triples that make
// answering a query mostly a matter of correcting for what precomputation
// guessed wrong.
type Server struct {
	params   Params
	rowBytes int
	rows     [][]byte

	queue *seedQueue
	seen  *unseenSeed
}

// NewServer builds a Server over rows, a slice of exactly params.Rows
// byte slices all of the same length (one IT-PIR row each; in the hybrid
// scheme, a row is a whole matrix row of concatenated records).
// queueTarget is the number of preprocessed seeds the background refill
// loop tries to keep in reserve.
func NewServer(params Params, rows [][]byte, queueTarget int) (*Server, error) {
	if err := params.Validate(0); err != nil {
		return nil, err
	}
	if len(rows) != params.Rows {
		return nil, xerrors.Errorf("itpir: got %d rows, want %d", len(rows), params.Rows)
	}
	rowBytes := 0
	if len(rows) > 0 {
		rowBytes = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != rowBytes {
			return nil, xerrors.Errorf("itpir: row %d has length %d, want %d", i, len(row), rowBytes)
		}
	}

	return &Server{
		params:   params,
		rowBytes: rowBytes,
		rows:     rows,
		queue:    newSeedQueue(queueTarget),
		seen:     newUnseenSeed(),
	}, nil
}

// Stats reports the current depth of the preprocessed seed queue.
func (s *Server) Stats() int {
	return s.queue.depth()
}

// RefreshQueue tops the seed queue up to its target depth, computing
// fresh seeds and their partial XORs inline. It is meant to be called
// from a dedicated background goroutine (or from the same worker
// goroutine right after a response has been sent) so precomputation
// overlaps with network latency rather than a client's wait time.
func (s *Server) RefreshQueue() error {
	for s.queue.deficit() > 0 {
		entry, err := s.preprocessOne()
		if err != nil {
			return err
		}
		s.queue.push(entry)
	}
	return nil
}

// Seed hands out one preprocessed seed, computing one inline if the queue
// is currently empty, and removes that seed's entry from the queue. The
// seed tags the Query that follows it; Response rejects a seed it has
// already answered.
func (s *Server) Seed() ([SeedSize]byte, error) {
	if entry, ok := s.queue.pop(); ok {
		return entry.seed, nil
	}
	entry, err := s.preprocessOne()
	if err != nil {
		return [SeedSize]byte{}, err
	}
	s.queue.push(entry)
	popped, _ := s.queue.pop()
	return popped.seed, nil
}

func (s *Server) preprocessOne() (preprocessedSeed, error) {
	seed, err := freshSeed()
	if err != nil {
		return preprocessedSeed{}, err
	}
	pad, err := expandSeed(seed, s.params.BitmapBytes())
	if err != nil {
		return preprocessedSeed{}, err
	}
	return preprocessedSeed{
		seed:       seed,
		pad:        pad,
		partialXOR: s.xorSelectedRows(pad),
	}, nil
}

// Response answers a query bitmap previously announced via the seed that
// accompanies it. The seed must not have been consumed by an earlier
// Response call. If the seed's preprocessed entry is still in the queue,
// the online cost is the XOR correction between its pad and the actual
// bitmap; otherwise the answer is a full pass over the rows the bitmap
// selects. Seed removes an entry from the queue when it hands out that
// entry's seed, so for seeds obtained from Seed the full pass is what
// runs.
func (s *Server) Response(seed [SeedSize]byte, bitmap []byte) ([]byte, error) {
	if len(bitmap) != s.params.BitmapBytes() {
		return nil, xerrors.Errorf("itpir: query bitmap has length %d, want %d", len(bitmap), s.params.BitmapBytes())
	}
	if err := s.seen.consume(seed); err != nil {
		return nil, err
	}

	entry, ok := s.takeQueued(seed)
	if !ok {
		// No queued entry for this seed (Seed already removed it); compute
		// the answer directly from the bitmap.
		return s.xorSelectedRows(bitmap), nil
	}

	diff := make([]byte, len(bitmap))
	fastxor.Bytes(diff, entry.pad, bitmap)

	correction := s.xorSelectedRows(diff)
	answer := make([]byte, len(correction))
	fastxor.Bytes(answer, entry.partialXOR, correction)
	return answer, nil
}

// takeQueued removes the queue entry matching seed, if still buffered,
// with a linear scan. Seed pops an entry before handing out its seed, so
// a seed issued by Seed is not found here.
func (s *Server) takeQueued(seed [SeedSize]byte) (preprocessedSeed, bool) {
	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	for i, e := range s.queue.entries {
		if e.seed == seed {
			s.queue.entries = append(s.queue.entries[:i], s.queue.entries[i+1:]...)
			return e, true
		}
	}
	return preprocessedSeed{}, false
}

// xorSelectedRows XORs together every row whose corresponding bit in
// bitmap is set, returning a zeroed row-sized answer if none are.
func (s *Server) xorSelectedRows(bitmap []byte) []byte {
	answer := make([]byte, s.rowBytes)
	for i, row := range s.rows {
		if bitSet(bitmap, i) {
			fastxor.Bytes(answer, answer, row)
		}
	}
	return answer
}

func bitSet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}
