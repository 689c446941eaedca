package binomial

import "math"

// newRejectionCoeffs sets up BTRS (W. Hörmann, "The generation of binomial
// random variates", 1993). Requires n*q >= InversionThreshold.
//
// Candidates are drawn as offsets from the mode and the acceptance ratio is
// evaluated in Stirling form, so no quantity grows with n beyond what float64
// carries exactly; this keeps the test valid up to n = math.MaxInt64.
func newRejectionCoeffs(n int64, pc *probConst) coeffs {
	nf := float64(n)
	spq := math.Sqrt(nf * pc.q * (1 - pc.q))
	b := 1.15 + 2.53*spq
	mode := min(max(int64(math.Floor((nf+1)*pc.q)), 0), n)
	return coeffs{
		n:     n,
		b:     b,
		a:     -0.0873 + 0.0248*b + 0.01*pc.q,
		c:     math.FMA(nf, pc.q, -float64(mode)) + 0.5,
		vr:    0.92 - 4.2/b,
		alpha: (2.83 + 5.1/b) * spq,
		lpq:   pc.lr,
		mode:  mode,
		fcm:   stirlingTail(float64(mode)) + stirlingTail(float64(n-mode)),
	}
}

// reject draws candidates from the transformed uniform hat until one is
// accepted, first by the cheap squeeze and otherwise against the exact
// log-ratio f(k)/f(mode).
func (c *coeffs) reject(src BitSource) int64 {
	for {
		u := src.Float64() - 0.5
		v := src.Float64()
		us := 0.5 - math.Abs(u)
		j := math.Floor((2*c.a/us+c.b)*u + c.c)
		if j < -float64(c.mode) || j > float64(c.n-c.mode) {
			continue
		}
		k := c.mode + int64(j)
		if us >= 0.07 && v <= c.vr {
			return k
		}
		v = math.Log(v * c.alpha / (c.a/(us*us) + c.b))
		if v <= c.logRatio(k, j) {
			return k
		}
	}
}

// logRatio is log f(k)/f(mode) for the Binomial(n, q) pmf f, with j = k-mode.
// Writing log x! = (x+1/2)log(x+1) - (x+1) + log(2π)/2 + stirlingTail(x)
// turns the ratio of factorials into log1p terms of j relative to the mode
// and to n-mode, which stay accurate where differences of log-gamma values
// cancel catastrophically.
func (c *coeffs) logRatio(k int64, j float64) float64 {
	m := float64(c.mode)
	nm := float64(c.n - c.mode)
	k1 := float64(k) + 1
	nk1 := float64(c.n-k) + 1
	return -(m+0.5)*math.Log1p(j/(m+1)) -
		(nm+0.5)*math.Log1p(-j/(nm+1)) +
		j*(math.Log(nk1/k1)+c.lpq) +
		c.fcm - stirlingTail(float64(k)) - stirlingTail(float64(c.n-k))
}

// stirlingTail is log x! minus its Stirling approximation
// (x+1/2)log(x+1) - (x+1) + log(2π)/2; tabulated below 10, series above.
func stirlingTail(x float64) float64 {
	if x < float64(len(stirlingTails)) {
		return stirlingTails[int(x)]
	}
	x1 := x + 1
	x1sq := x1 * x1
	return (1.0/12 - (1.0/360-1.0/1260/x1sq)/x1sq) / x1
}

var stirlingTails = [...]float64{
	0.0810614667953272,
	0.0413406959554092,
	0.0276779256849983,
	0.02079067210376509,
	0.0166446911898211,
	0.0138761288230707,
	0.0118967099458917,
	0.0104112652619720,
	0.00925546218271273,
	0.00833056343336287,
}
