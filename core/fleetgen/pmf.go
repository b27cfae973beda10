package fleetgen

import (
	"fmt"
	"math/rand"
)

// Bucket is one value range of a probability mass function. The range is
// half-open [Lo, Hi); Weight is relative and need not sum to anything
// particular across buckets.
type Bucket struct {
	Lo     float64 `json:"lo" yaml:"lo"`
	Hi     float64 `json:"hi" yaml:"hi"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// PMF is a discrete probability mass over value buckets, sampled by drawing a
// bucket from the cumulative distribution and a uniform value inside it.
type PMF struct {
	buckets []Bucket
	cum     []float64
	total   float64
}

// NewPMF validates the buckets and precomputes the cumulative weights.
func NewPMF(buckets []Bucket) (*PMF, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("pmf needs at least one bucket")
	}
	p := &PMF{buckets: buckets, cum: make([]float64, len(buckets))}
	for i, b := range buckets {
		if b.Hi < b.Lo {
			return nil, fmt.Errorf("bucket %d: hi %v below lo %v", i, b.Hi, b.Lo)
		}
		if b.Weight <= 0 {
			return nil, fmt.Errorf("bucket %d: weight must be positive", i)
		}
		p.total += b.Weight
		p.cum[i] = p.total
	}
	return p, nil
}

// Sample draws one value from the distribution.
func (p *PMF) Sample(rng *rand.Rand) float64 {
	r := rng.Float64() * p.total
	i := 0
	for i < len(p.cum)-1 && r > p.cum[i] {
		i++
	}
	b := p.buckets[i]
	if b.Hi == b.Lo {
		return b.Lo
	}
	return b.Lo + rng.Float64()*(b.Hi-b.Lo)
}
