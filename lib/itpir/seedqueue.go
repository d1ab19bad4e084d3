package itpir

import (
	"sync"

	"golang.org/x/xerrors"
)

// preprocessedSeed is one entry of the server's seed queue: a seed handed
// to a client, the pad it expanded into, and the partial XOR the server
// folded over the database using that pad. Response() corrects this
// partial XOR for the symmetric difference between pad and the client's
// actual bitmap only while the entry is still in the queue; Seed() takes
// the entry out of the queue when it hands out the seed.
type preprocessedSeed struct {
	seed       [SeedSize]byte
	pad        []byte
	partialXOR []byte
}

// seedQueue is a small FIFO of preprocessed seeds, refilled in the
// background so a Seed() call can almost always hand out ready work
// instead of computing it inline: a running queue of precomputed shares,
// refilled after serving a request rather than interleaving
// precomputation with request handling on a dedicated goroutine.
type seedQueue struct {
	mu      sync.Mutex
	target  int
	entries []preprocessedSeed
}

func newSeedQueue(target int) *seedQueue {
	if target < 1 {
		target = 1
	}
	return &seedQueue{target: target}
}

// push appends a freshly computed entry.
func (q *seedQueue) push(e preprocessedSeed) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// pop removes and returns the oldest entry, or false if the queue is
// empty (forcing the caller to compute one inline).
func (q *seedQueue) pop() (preprocessedSeed, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return preprocessedSeed{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// depth reports how many preprocessed entries are currently buffered, for
// the Stats() accessor.
func (q *seedQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// deficit reports how many more entries are needed to reach the queue's
// target depth, for the background refill loop to decide how much work
// to do.
func (q *seedQueue) deficit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := q.target - len(q.entries)
	if d < 0 {
		return 0
	}
	return d
}

// unseenSeed tracks which seeds have already been consumed by a Query, so
// a replayed seed is rejected rather than silently answered twice.
type unseenSeed struct {
	mu   sync.Mutex
	seen map[[SeedSize]byte]struct{}
}

func newUnseenSeed() *unseenSeed {
	return &unseenSeed{seen: make(map[[SeedSize]byte]struct{})}
}

// consume marks seed as used, returning an error if it was already used.
func (u *unseenSeed) consume(seed [SeedSize]byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.seen[seed]; ok {
		return xerrors.Errorf("itpir: seed already consumed")
	}
	u.seen[seed] = struct{}{}
	return nil
}
