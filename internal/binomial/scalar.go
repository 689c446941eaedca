// Package binomial draws Binomial(n, p) variates.
//
// Two regimes are used, chosen by the expected count of the rarer outcome,
// n*min(p, 1-p):
//
//   - below InversionThreshold, inverse transform sampling: one uniform is
//     mapped through the CDF, walked sequentially on the uncached path or
//     binary searched over precomputed breakpoints on the cached path;
//   - at or above it, Hörmann's BTRS transformed rejection, whose expected
//     cost is bounded independently of n.
//
// Probabilities above one half are sampled as n minus a draw with 1-p, which
// keeps both regimes working on the tail they are fast for and is exact in
// distribution.
//
// A Table carries everything that only depends on p (and optionally on n) so
// that repeated draws with a fixed p skip the setup.
package binomial

import "math"

// InversionThreshold is the value of n*min(p, 1-p) from which transformed
// rejection replaces inversion.
const InversionThreshold = 10.0

// BitSource is the stream the samplers consume. *bitsource.Source satisfies it.
type BitSource interface {
	Uint64() uint64
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

// probConst holds the p-only constants shared by every n.
type probConst struct {
	p    float64
	q    float64 // min(p, 1-p)
	flip bool    // p > 0.5: sample with q and reflect
	r    float64 // q / (1-q), the pmf step ratio
	lr   float64 // log(r)
	l1mq float64 // log(1-q)
}

func newProbConst(p float64) probConst {
	pc := probConst{p: p, q: p}
	if p > 0.5 {
		pc.q = 1 - p
		pc.flip = true
	}
	if pc.q > 0 {
		pc.r = pc.q / (1 - pc.q)
		pc.lr = math.Log(pc.r)
		pc.l1mq = math.Log1p(-pc.q)
	}
	return pc
}

// Sample draws one Binomial(n, p) variate from src.
func Sample(n int64, p float64, src BitSource) (int64, error) {
	if err := ValidateProbability(p); err != nil {
		return 0, err
	}
	if err := ValidateTrials(n); err != nil {
		return 0, err
	}
	pc := newProbConst(p)
	return sampleUncached(n, &pc, src), nil
}

// sampleUncached performs the per-call setup and draws. n must be >= 0.
func sampleUncached(n int64, pc *probConst, src BitSource) int64 {
	if n == 0 || pc.q == 0 {
		return reflect(n, 0, pc.flip)
	}
	c := newCoeffs(n, pc)
	return reflect(n, c.sample(src), pc.flip)
}

// reflect maps a draw made with q back to p.
func reflect(n, k int64, flip bool) int64 {
	if flip {
		return n - k
	}
	return k
}

// coeffs are the per-(n, q) constants of one regime.
type coeffs struct {
	n       int64
	inverse bool

	// inversion
	f0    float64   // P(X = 0) = (1-q)^n
	r     float64   // q / (1-q)
	bound int64     // walks beyond this restart; the mass past it is negligible
	cdf   []float64 // breakpoints P(X <= k), k = 0..bound; nil on the uncached path

	// transformed rejection, in offsets j = k - mode
	b     float64
	a     float64
	c     float64 // hat centre relative to mode
	vr    float64
	alpha float64
	lpq   float64 // log(q / (1-q))
	mode  int64
	fcm   float64 // stirlingTail(mode) + stirlingTail(n-mode)
}

func newCoeffs(n int64, pc *probConst) coeffs {
	mean := float64(n) * pc.q
	if mean < InversionThreshold {
		return newInversionCoeffs(n, mean, pc)
	}
	return newRejectionCoeffs(n, pc)
}

func (c *coeffs) sample(src BitSource) int64 {
	if c.inverse {
		if c.cdf != nil {
			return c.search(src)
		}
		return c.walk(src)
	}
	return c.reject(src)
}
