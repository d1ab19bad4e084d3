package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndResetReportsElapsedMilliseconds(t *testing.T) {
	m := NewMonitor()
	m.Reset()
	time.Sleep(5 * time.Millisecond)
	elapsed := m.RecordAndReset()
	require.Greater(t, elapsed, 0.0)
}

func TestSummarizeComputesMeanMedianP95(t *testing.T) {
	summary, err := Summarize([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Equal(t, 3.0, summary.Mean)
	require.Equal(t, 3.0, summary.Median)
}

func TestSummarizeEmptyReturnsZeroValue(t *testing.T) {
	summary, err := Summarize(nil)
	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)
}

func TestChunkQueryAndReconstructTimesCollectFields(t *testing.T) {
	chunk := NewChunk(2)
	chunk.CPU[0] = &Block{Query: 1, Reconstruct: 10}
	chunk.CPU[1] = &Block{Query: 2, Reconstruct: 20}

	require.Equal(t, []float64{1, 2}, chunk.QueryTimes())
	require.Equal(t, []float64{10, 20}, chunk.ReconstructTimes())
}
