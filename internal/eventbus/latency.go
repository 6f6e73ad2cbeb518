package eventbus

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// LatencyKind selects which shape LatencyParameters draws from.
type LatencyKind uint8

const (
	// LatencyFixed draws base + U[0, jitter).
	LatencyFixed LatencyKind = iota
	// LatencyLognormal draws from a lognormal distribution and caps the
	// result.
	LatencyLognormal
)

// LatencyParameters selects and parameterizes one inter-agent delay
// shape. Only the fields relevant to Kind are meaningful.
type LatencyParameters struct {
	Kind LatencyKind

	// Fixed
	BaseUS   float64
	JitterUS float64

	// Lognormal
	MedianUS float64
	Sigma    float64
	CapUS    float64
}

// FixedLatency builds a Fixed(base_us, jitter_us) parameter set.
func FixedLatency(baseUS, jitterUS float64) LatencyParameters {
	return LatencyParameters{Kind: LatencyFixed, BaseUS: baseUS, JitterUS: jitterUS}
}

// LognormalLatency builds a Lognormal(median_us, sigma, cap_us)
// parameter set.
func LognormalLatency(medianUS, sigma, capUS float64) LatencyParameters {
	return LatencyParameters{Kind: LatencyLognormal, MedianUS: medianUS, Sigma: sigma, CapUS: capUS}
}

// DefaultLatency is drawn for any (publisher, subscriber) pair with no
// explicit entry in the bus's latency table: a conservative lognormal
// with a wide cap.
var DefaultLatency = LognormalLatency(750, 0.6, 15_000)

// sampler draws latencies from a single seeded source, so that a fixed
// bus seed reproduces the same delivery schedule on every run.
//
// The source is an x/exp/rand one because that is what gonum's
// stat/distuv is built on; the Lognormal shape's Src and the Fixed
// kind's plain uniform jitter draw share it, so draws of either kind
// interleave deterministically. The Fixed jitter stays a direct
// Float64 call: a bounded uniform isn't a "distribution" in any sense
// distuv models, so reaching for the library there would just be
// indirection around rand.Float64.
type sampler struct {
	rng *rand.Rand
}

func newSampler(seed int64) *sampler {
	return &sampler{rng: rand.New(rand.NewSource(uint64(seed)))}
}

// sample draws a non-negative latency for the given parameters.
func (s *sampler) sample(p LatencyParameters) time.Duration {
	var us float64
	switch p.Kind {
	case LatencyFixed:
		us = p.BaseUS + s.rng.Float64()*p.JitterUS
	case LatencyLognormal:
		dist := distuv.LogNormal{
			Mu:    logOrZero(p.MedianUS),
			Sigma: p.Sigma,
			Src:   s.rng,
		}
		us = dist.Rand()
		if p.CapUS > 0 && us > p.CapUS {
			us = p.CapUS
		}
	}
	if us < 0 {
		us = 0
	}
	return time.Duration(us * float64(time.Microsecond))
}

func logOrZero(median float64) float64 {
	if median <= 0 {
		return 0
	}
	return math.Log(median)
}
