package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/generator"
)

func newGenerator(t *testing.T, cached generator.Probs) *generator.Generator {
	t.Helper()
	seed := uint64(42)
	g, err := generator.New(generator.Config{
		Algorithm: bitsource.MersenneTwister,
		Seed:      &seed,
		CachedP:   cached,
	})
	require.NoError(t, err)
	return g
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	s := Summarize([]int64{4, 4, 4, 4})
	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, 4.0, s.Mean)
	assert.Zero(t, s.Var)
	assert.Equal(t, 4.0, s.P50)
	assert.Equal(t, 4.0, s.P99)

	s = Summarize([]int64{1, 2, 3, 4})
	assert.Equal(t, 2.5, s.Mean)
	assert.InDelta(t, 1.25, s.Var, 1e-12)
	assert.InDelta(t, 1.118033988749895, s.StdDev, 1e-12)
	assert.LessOrEqual(t, s.P50, s.P90)
	assert.LessOrEqual(t, s.P90, s.P99)
	assert.LessOrEqual(t, s.P99, 4.0)
	assert.Equal(t, []int64{1, 2, 3, 4}, s.Samples)
}

func TestRunMonteCarlo(t *testing.T) {
	g := newGenerator(t, generator.ScalarP(0.3))
	s, err := RunMonteCarlo(g, 1000, generator.NoP(), 100000)
	require.NoError(t, err)
	assert.Equal(t, 100000, s.Trials)
	assert.InEpsilon(t, 300, s.Mean, 0.01)
	assert.InEpsilon(t, 210, s.Var, 0.05)
	assert.InDelta(t, 300, s.P50, 2)
	assert.Greater(t, s.P99, s.P90)

	s, err = RunMonteCarlo(g, 40, generator.ScalarP(1), 10)
	require.NoError(t, err)
	assert.Equal(t, 40.0, s.Mean)
}

func TestRunMonteCarloErrors(t *testing.T) {
	g := newGenerator(t, generator.NoP())
	_, err := RunMonteCarlo(g, 10, generator.NoP(), 10)
	assert.ErrorIs(t, err, errkind.ErrMissingProbability)

	_, err = RunMonteCarlo(g, 10, generator.ScalarP(0.5), -1)
	assert.ErrorIs(t, err, ErrTrials)

	s, err := RunMonteCarlo(g, 10, generator.ScalarP(0.5), 0)
	require.NoError(t, err)
	assert.Zero(t, s.Trials)
}
