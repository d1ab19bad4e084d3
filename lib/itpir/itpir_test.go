package itpir

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/KoffeinFlummi/hybridpir/lib/testutil"
)

func testParams() Params {
	return Params{Rows: 96, NumServers: 3, Threshold: 3}
}

func randomRows(t *testing.T, n, rowBytes int) [][]byte {
	t.Helper()
	return testutil.RandomRecords(n, rowBytes)
}

func TestQueryAndCombineRecoverSelectedRow(t *testing.T) {
	params := testParams()
	const rowBytes = 32
	rows := randomRows(t, params.Rows, rowBytes)

	servers := make([]*Server, params.NumServers)
	for i := range servers {
		s, err := NewServer(params, rows, 2)
		require.NoError(t, err)
		servers[i] = s
	}

	for target := 0; target < params.Rows; target++ {
		query, err := NewQuery(params, target)
		require.NoError(t, err)

		answers := make([][]byte, params.NumServers)
		for i, s := range servers {
			seed, err := s.Seed()
			require.NoError(t, err)
			answers[i], err = s.Response(seed, query.Bitmaps[i])
			require.NoError(t, err)
		}

		got, err := Combine(answers)
		require.NoError(t, err)
		require.Equal(t, rows[target], got)
	}
}

func TestSeededOfflineOnlineSplitMatchesInlinePath(t *testing.T) {
	params := testParams()
	rows := randomRows(t, params.Rows, 16)

	s, err := NewServer(params, rows, 4)
	require.NoError(t, err)
	require.NoError(t, s.RefreshQueue())
	require.Equal(t, 4, s.Stats())

	query, err := NewQuery(params, 7)
	require.NoError(t, err)

	seed, err := s.Seed()
	require.NoError(t, err)
	require.Equal(t, 3, s.Stats())

	viaQueue, err := s.Response(seed, query.Bitmaps[0])
	require.NoError(t, err)

	direct := s.xorSelectedRows(query.Bitmaps[0])
	require.Equal(t, direct, viaQueue)
}

func TestSeedCannotBeConsumedTwice(t *testing.T) {
	params := testParams()
	rows := randomRows(t, params.Rows, 8)

	s, err := NewServer(params, rows, 1)
	require.NoError(t, err)

	seed, err := s.Seed()
	require.NoError(t, err)

	bitmap := make([]byte, params.BitmapBytes())
	setBit(bitmap, 0)

	_, err = s.Response(seed, bitmap)
	require.NoError(t, err)

	_, err = s.Response(seed, bitmap)
	require.Error(t, err)
}

// TestQuerySharesXORToUnitVector checks the deterministic
// construction invariant that holds for every row and every random draw:
// the XOR of all k bitmap shares is exactly the unit vector at the
// target row, never anything else.
func TestQuerySharesXORToUnitVector(t *testing.T) {
	params := testParams()

	properties := gopter.NewProperties(nil)
	properties.Property("shares XOR to the unit vector at the target row", prop.ForAll(
		func(row int) bool {
			q, err := NewQuery(params, row)
			if err != nil {
				return false
			}
			combined, err := Combine(q.Bitmaps)
			if err != nil {
				return false
			}
			want := make([]byte, params.BitmapBytes())
			setBit(want, row)
			if len(combined) != len(want) {
				return false
			}
			for i := range combined {
				if combined[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, params.Rows-1),
	))
	properties.TestingRun(t)
}

// TestAnySingleShareLooksUniformRegardlessOfRow exercises the opacity of
// the scheme against fewer than the collusion threshold of servers: a
// single server's view of the query (any one of the k bitmap shares,
// including the fixup share) carries no row-dependent structure on its
// own. We check this the way a statistical randomness smoke test does:
// the popcount of a uniformly random R-bit string concentrates tightly
// around R/2, and that concentration must hold no matter which row was
// targeted or which share index is inspected.
func TestAnySingleShareLooksUniformRegardlessOfRow(t *testing.T) {
	params := testParams()

	properties := gopter.NewProperties(nil)
	properties.Property("every share's popcount concentrates near R/2 independent of row", prop.ForAll(
		func(row, shareIdx int) bool {
			q, err := NewQuery(params, row)
			if err != nil {
				return false
			}
			share := q.Bitmaps[shareIdx%len(q.Bitmaps)]

			count := 0
			for _, b := range share {
				for i := 0; i < 8; i++ {
					if b&(1<<uint(i)) != 0 {
						count++
					}
				}
			}

			lo, hi := params.Rows/2-params.Rows/4, params.Rows/2+params.Rows/4
			return count >= lo && count <= hi
		},
		gen.IntRange(0, params.Rows-1),
		gen.IntRange(0, params.NumServers-1),
	))
	properties.TestingRun(t)
}
