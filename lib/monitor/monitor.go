// Package monitor times protocol phases: reset a stopwatch immediately
// before a phase, then pull the elapsed milliseconds back out right
// after, so the caller can attribute cost to "query", "answer",
// "reconstruct" independently instead of timing the whole run as one
// blob. Package bench records one Block per repetition, and Summarize
// digests a series of samples with github.com/montanaflynn/stats.
package monitor

import (
	"time"

	"github.com/montanaflynn/stats"
)

// Monitor is a single resettable stopwatch. It is not safe for
// concurrent use; callers timing several servers in parallel use one
// Monitor per goroutine.
type Monitor struct {
	start time.Time
}

// NewMonitor returns a Monitor already running.
func NewMonitor() *Monitor {
	return &Monitor{start: time.Now()}
}

// Reset restarts the stopwatch from now, discarding any elapsed time
// since the last Reset or RecordAndReset.
func (m *Monitor) Reset() {
	m.start = time.Now()
}

// RecordAndReset returns the elapsed time in milliseconds since the last
// Reset, then immediately restarts the stopwatch.
func (m *Monitor) RecordAndReset() float64 {
	elapsed := time.Since(m.start)
	m.start = time.Now()
	return float64(elapsed) / float64(time.Millisecond)
}

// Block is one repetition's timings: how long the query took to build,
// how long each server took to answer it, and how long the client took
// to reconstruct the record from those answers.
type Block struct {
	Query       float64
	Answers     []float64
	Reconstruct float64
}

// NewBlock allocates a Block with room for numAnswers per-server timings.
func NewBlock(numAnswers int) *Block {
	return &Block{Answers: make([]float64, numAnswers)}
}

// Chunk groups the CPU-time and wire-size Blocks recorded across one
// benchmark run's repetitions.
type Chunk struct {
	CPU       []*Block
	Bandwidth []*Block
}

// NewChunk allocates a Chunk with room for numBlocks repetitions.
func NewChunk(numBlocks int) *Chunk {
	return &Chunk{
		CPU:       make([]*Block, numBlocks),
		Bandwidth: make([]*Block, numBlocks),
	}
}

// Summary is a statistical digest of one set of per-repetition samples.
type Summary struct {
	Mean   float64
	Median float64
	P95    float64
}

// Summarize computes mean, median, and 95th percentile over samples. An
// empty input returns the zero Summary.
func Summarize(samples []float64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, nil
	}

	mean, err := stats.Mean(samples)
	if err != nil {
		return Summary{}, err
	}
	median, err := stats.Median(samples)
	if err != nil {
		return Summary{}, err
	}
	p95, err := stats.Percentile(samples, 95)
	if err != nil {
		return Summary{}, err
	}

	return Summary{Mean: mean, Median: median, P95: p95}, nil
}

// QueryTimes collects the Query field across every Block in a Chunk's
// CPU series, for feeding into Summarize.
func (c *Chunk) QueryTimes() []float64 {
	out := make([]float64, len(c.CPU))
	for i, b := range c.CPU {
		out[i] = b.Query
	}
	return out
}

// ReconstructTimes collects the Reconstruct field across every Block in
// a Chunk's CPU series, for feeding into Summarize.
func (c *Chunk) ReconstructTimes() []float64 {
	out := make([]float64, len(c.CPU))
	for i, b := range c.CPU {
		out[i] = b.Reconstruct
	}
	return out
}
