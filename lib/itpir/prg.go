package itpir

import (
	"crypto/rand"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/xerrors"
)

// expandSeed deterministically expands a seed into an arbitrary-length
// pseudorandom byte string, the way an information-theoretic PIR client
// keys a blake2b.XOF with its own seed to expand it into the query
// randomness it needs; this reuses the same primitive for the server's
// precomputed pad, keyed with the seed it handed the client.
func expandSeed(seed [SeedSize]byte, n int) ([]byte, error) {
	xof, err := blake2b.NewXOF(uint32(n), seed[:])
	if err != nil {
		return nil, xerrors.Errorf("itpir: keying blake2b XOF from seed: %w", err)
	}

	out := make([]byte, n)
	if _, err := xof.Read(out); err != nil {
		return nil, xerrors.Errorf("itpir: reading PRG output: %w", err)
	}
	return out, nil
}

// freshSeed draws a new cryptographically random 128-bit seed, as handed
// out by Server.Seed().
func freshSeed() ([SeedSize]byte, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, xerrors.Errorf("itpir: sampling fresh seed: %w", err)
	}
	return seed, nil
}
