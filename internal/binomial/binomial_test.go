package binomial

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/errkind"
)

func seeded(t testing.TB, alg bitsource.Algorithm, seed uint64) *bitsource.Source {
	t.Helper()
	s, err := bitsource.NewSeeded(alg, seed)
	require.NoError(t, err)
	return s
}

// chiSquarePValue tests samples against the Binomial(n, p) pmf, pooling
// outcomes into bins with an expected count of at least 5.
func chiSquarePValue(samples []int64, n int64, p float64) (float64, int) {
	ref := distuv.Binomial{N: float64(n), P: p}
	counts := make(map[int64]float64)
	for _, k := range samples {
		counts[k]++
	}
	total := float64(len(samples))

	var obs, exp []float64
	var accObs, accExp float64
	for k := int64(0); k <= n; k++ {
		accObs += counts[k]
		accExp += total * ref.Prob(float64(k))
		if accExp >= 5 {
			obs = append(obs, accObs)
			exp = append(exp, accExp)
			accObs, accExp = 0, 0
		}
	}
	if len(exp) == 0 {
		return 1, 0
	}
	// Fold the remainder of the upper tail into the last bin.
	obs[len(obs)-1] += accObs
	exp[len(exp)-1] += accExp

	df := len(exp) - 1
	if df < 1 {
		return 1, df
	}
	x2 := stat.ChiSquare(obs, exp)
	return distuv.ChiSquared{K: float64(df)}.Survival(x2), df
}

func toFloats(xs []int64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
}

var fidelityCases = []struct {
	n int64
	p float64
}{
	{5, 0.5},
	{20, 0.1},
	{30, 0.9},     // reflected, inversion
	{50, 0.4},     // rejection
	{500, 0.75},   // reflected, rejection
	{1000, 0.3},   // rejection
	{10000, 1e-3}, // rejection at the threshold
	{400, 0.02},   // inversion just under the threshold
}

func TestSampleEdgeCases(t *testing.T) {
	src := seeded(t, bitsource.FastChaotic, 1)
	for i := 0; i < 1000; i++ {
		k, err := Sample(int64(i), 0, src)
		require.NoError(t, err)
		require.Zero(t, k)

		k, err = Sample(int64(i), 1, src)
		require.NoError(t, err)
		require.Equal(t, int64(i), k)

		k, err = Sample(0, float64(i)/1000, src)
		require.NoError(t, err)
		require.Zero(t, k)
	}
}

func TestTrivialDrawsConsumeNoBits(t *testing.T) {
	a := seeded(t, bitsource.MersenneTwister, 3)
	b := seeded(t, bitsource.MersenneTwister, 3)
	zero, one := MustBuild(0), MustBuild(1)
	for i := 0; i < 10; i++ {
		_, _ = Sample(100, 0, a)
		_, _ = Sample(100, 1, a)
		_, _ = Sample(0, 0.5, a)
		_ = zero.Sample(100, a)
		_ = one.Sample(100, a)
	}
	assert.Equal(t, b.Uint64(), a.Uint64())
}

func TestSampleValidation(t *testing.T) {
	src := seeded(t, bitsource.FastChaotic, 1)
	for _, p := range []float64{-0.1, 1.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Sample(10, p, src)
		assert.ErrorIs(t, err, ErrInvalidProbability, "p=%v", p)
		assert.ErrorIs(t, err, errkind.ErrConfiguration)

		_, err = Build(p)
		assert.ErrorIs(t, err, ErrInvalidProbability, "p=%v", p)
	}
	_, err := Sample(-1, 0.5, src)
	assert.ErrorIs(t, err, ErrNegativeTrials)
	assert.ErrorIs(t, err, errkind.ErrConfiguration)

	_, err = Build(0.5, WithMaxN(-1))
	assert.ErrorIs(t, err, ErrTableSize)
	_, err = Build(0.5, WithMaxN(MaxTableN+1))
	assert.ErrorIs(t, err, ErrTableSize)
}

func TestSampleWithinRange(t *testing.T) {
	src := seeded(t, bitsource.FastChaotic, 11)
	for _, tc := range fidelityCases {
		tbl := MustBuild(tc.p)
		for i := 0; i < 2000; i++ {
			k, err := Sample(tc.n, tc.p, src)
			require.NoError(t, err)
			require.True(t, k >= 0 && k <= tc.n, "uncached n=%d p=%v k=%d", tc.n, tc.p, k)
			k = tbl.Sample(tc.n, src)
			require.True(t, k >= 0 && k <= tc.n, "cached n=%d p=%v k=%d", tc.n, tc.p, k)
		}
	}
}

func TestFidelity(t *testing.T) {
	const draws = 50000
	for _, alg := range []bitsource.Algorithm{bitsource.FastChaotic, bitsource.MersenneTwister} {
		for _, tc := range fidelityCases {
			name := fmt.Sprintf("%v/n=%d/p=%v", alg, tc.n, tc.p)
			t.Run(name, func(t *testing.T) {
				src := seeded(t, alg, 2024)
				tbl := MustBuild(tc.p, WithMaxN(tc.n))
				uncached := make([]int64, draws)
				cached := make([]int64, draws)
				for i := range uncached {
					k, err := Sample(tc.n, tc.p, src)
					require.NoError(t, err)
					uncached[i] = k
					cached[i] = tbl.Sample(tc.n, src)
				}
				for label, xs := range map[string][]int64{"uncached": uncached, "cached": cached} {
					pv, df := chiSquarePValue(xs, tc.n, tc.p)
					assert.Greater(t, pv, 1e-6, "%s chi-square p-value (df=%d)", label, df)
				}
			})
		}
	}
}

func TestMeanAndVariance(t *testing.T) {
	const (
		n     = 1000
		p     = 0.3
		draws = 100000
	)
	for _, alg := range []bitsource.Algorithm{bitsource.FastChaotic, bitsource.MersenneTwister} {
		src := seeded(t, alg, 42)
		tbl := MustBuild(p)
		uncached := make([]float64, draws)
		cached := make([]float64, draws)
		for i := 0; i < draws; i++ {
			k, err := Sample(n, p, src)
			require.NoError(t, err)
			uncached[i] = float64(k)
			cached[i] = float64(tbl.Sample(n, src))
		}
		for _, xs := range [][]float64{uncached, cached} {
			mean, variance := stat.MeanVariance(xs, nil)
			assert.InEpsilon(t, 300, mean, 0.01, alg.String())
			assert.InEpsilon(t, 210, variance, 0.05, alg.String())
		}
	}
}

func TestCacheEquivalence(t *testing.T) {
	const draws = 100000
	tbl := MustBuild(0.4)
	a := seeded(t, bitsource.FastChaotic, 9)
	b := seeded(t, bitsource.FastChaotic, 9)

	cached := make([]int64, draws)
	uncached := make([]int64, draws)
	for i := range cached {
		cached[i] = tbl.Sample(50, a)
		k, err := Sample(50, 0.4, b)
		require.NoError(t, err)
		uncached[i] = k
	}
	// n*q = 20: both paths run the same rejection constants on the same stream.
	assert.Equal(t, uncached, cached)

	cm, cv := stat.MeanVariance(toFloats(cached), nil)
	assert.InEpsilon(t, 20, cm, 0.01)
	assert.InEpsilon(t, 12, cv, 0.05)
}

func TestBreakpointsMatchWalk(t *testing.T) {
	pc := newProbConst(0.05)
	c := newCoeffs(40, &pc)
	require.True(t, c.inverse)
	c.buildBreakpoints()
	require.Len(t, c.cdf, int(c.bound)+1)
	ref := distuv.Binomial{N: 40, P: 0.05}
	for k, v := range c.cdf {
		assert.InDelta(t, ref.CDF(float64(k)), v, 1e-12, "k=%d", k)
	}

	const draws = 50000
	src := seeded(t, bitsource.MersenneTwister, 5)
	searched := make([]int64, draws)
	walked := make([]int64, draws)
	for i := range searched {
		searched[i] = c.search(src)
		walked[i] = c.walk(src)
	}
	sm, sv := stat.MeanVariance(toFloats(searched), nil)
	wm, wv := stat.MeanVariance(toFloats(walked), nil)
	assert.InEpsilon(t, 2.0, sm, 0.03)
	assert.InEpsilon(t, 2.0, wm, 0.03)
	assert.InEpsilon(t, 1.9, sv, 0.05)
	assert.InEpsilon(t, 1.9, wv, 0.05)
}

func TestTableBeyondMaxN(t *testing.T) {
	tbl := MustBuild(0.25, WithMaxN(8))
	assert.Equal(t, int64(8), tbl.MaxN())
	assert.Equal(t, 0.25, tbl.P())

	src := seeded(t, bitsource.FastChaotic, 77)
	const draws = 50000
	xs := make([]int64, draws)
	for i := range xs {
		xs[i] = tbl.Sample(2000, src)
	}
	pv, _ := chiSquarePValue(xs, 2000, 0.25)
	assert.Greater(t, pv, 1e-6)
}

func TestTrivial(t *testing.T) {
	k, ok := MustBuild(1).Trivial(17)
	assert.True(t, ok)
	assert.Equal(t, int64(17), k)

	k, ok = MustBuild(0).Trivial(17)
	assert.True(t, ok)
	assert.Zero(t, k)

	k, ok = MustBuild(0.3).Trivial(0)
	assert.True(t, ok)
	assert.Zero(t, k)

	_, ok = MustBuild(0.3).Trivial(1)
	assert.False(t, ok)
}

// Moments at trial counts far beyond float64's exact integer range. Deviations
// are taken in int64 before converting so the check itself loses nothing.
func TestHugeTrialCounts(t *testing.T) {
	const draws = 100000
	cases := []struct {
		n int64
		p float64
	}{
		{1_000_000_000_000_000, 0.5},
		{1_000_000_000_000_000, 0.3},
		{math.MaxInt64, 0.5},
		{math.MaxInt64, 0.7},
		{math.MaxInt64, 1e-15},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d,p=%v", tc.n, tc.p), func(t *testing.T) {
			src := seeded(t, bitsource.FastChaotic, 3)
			tbl := MustBuild(tc.p)
			// n*p rounded to an int64 centre; the fraction left over is far below
			// one standard deviation.
			centre := int64(math.Round(float64(tc.n) * tc.p))
			if tc.p == 0.5 {
				centre = tc.n / 2
			}
			wantVar := float64(tc.n) * tc.p * (1 - tc.p)
			sd := math.Sqrt(wantVar)

			paths := []struct {
				name string
				draw func() int64
			}{
				{"uncached", func() int64 {
					k, err := Sample(tc.n, tc.p, src)
					require.NoError(t, err)
					return k
				}},
				{"table", func() int64 { return tbl.Sample(tc.n, src) }},
			}
			for _, path := range paths {
				name, draw := path.name, path.draw
				devs := make([]float64, draws)
				for i := range devs {
					k := draw()
					require.GreaterOrEqual(t, k, int64(0))
					require.LessOrEqual(t, k, tc.n)
					devs[i] = float64(k - centre)
				}
				mean, variance := stat.PopMeanVariance(devs, nil)
				assert.Less(t, math.Abs(mean), 5*sd/math.Sqrt(draws), "%s mean offset", name)
				assert.InEpsilon(t, 1, variance/wantVar, 0.03, "%s variance ratio", name)
			}
		})
	}
}
