// Package pool implements the server pool driver: given the addresses
// of every server in a hybrid session, it dials all of them in
// parallel, drives each dial through the hybrid wire protocol with the
// query share meant for that server, and gathers the answers back in
// the order the client's bitmaps were generated in. That order must
// survive the fan-out/fan-in: swapping an IT-PIR share with a different
// server's share before combining produces a wrong answer, not an error.
package pool

import (
	"net"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/KoffeinFlummi/hybridpir/lib/hybrid"
)

// DialTimeout bounds how long dialing a single server may take.
const DialTimeout = 10 * time.Second

// Pool is a fixed, ordered list of server addresses, one per IT-PIR
// bitmap share position.
type Pool struct {
	Addresses []string
}

// New builds a Pool over addresses, in the same order the client's
// hybrid.Query.Bitmaps slice is in.
func New(addresses []string) (*Pool, error) {
	if len(addresses) < 2 {
		return nil, xerrors.Errorf("pool: need at least 2 server addresses, got %d", len(addresses))
	}
	return &Pool{Addresses: addresses}, nil
}

// Run dials every server in the pool concurrently and drives each
// through one hybrid query, returning the per-server answers in
// Addresses order. galoisKey is sent to every server; a server that
// already has one installed replaces it with the resent key.
func (p *Pool) Run(query *hybrid.Query, galoisKey []byte) ([][]byte, error) {
	if len(query.Bitmaps) != len(p.Addresses) {
		return nil, xerrors.Errorf("pool: query has %d bitmap shares, pool has %d servers", len(query.Bitmaps), len(p.Addresses))
	}

	answers := make([][]byte, len(p.Addresses))
	errs := make([]error, len(p.Addresses))

	wg := sync.WaitGroup{}
	for i, addr := range p.Addresses {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			answers[i], errs[i] = p.queryOne(addr, query.Bitmaps[i], query.CPIRQuery, galoisKey)
		}(i, addr)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, xerrors.Errorf("pool: server %s: %w", p.Addresses[i], err)
		}
	}

	return answers, nil
}

func (p *Pool) queryOne(addr string, bitmap, cpirQuery, galoisKey []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, xerrors.Errorf("dialing: %w", err)
	}

	reply, err := hybrid.DialAndQuery(conn, bitmap, cpirQuery, galoisKey)
	if err != nil {
		return nil, xerrors.Errorf("querying: %w", err)
	}

	return reply, nil
}
