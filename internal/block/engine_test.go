package block

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/xtding233/fastbinomial/internal/binomial"
	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/errkind"
)

var presets = []int{1, 3, Small, Medium, Large, XLarge, XXLarge, XXXLarge}

func seeded(t testing.TB, seed uint64) *bitsource.Source {
	t.Helper()
	s, err := bitsource.NewSeeded(bitsource.FastChaotic, seed)
	require.NoError(t, err)
	return s
}

func mustEngine(t testing.TB, size int, opts ...Option) *Engine {
	t.Helper()
	e, err := New(size, opts...)
	require.NoError(t, err)
	return e
}

func counts(size int) []int64 {
	ns := make([]int64, size)
	for i := range ns {
		ns[i] = int64(i % 97)
	}
	return ns
}

func TestNewValidation(t *testing.T) {
	for _, size := range []int{0, -1, MaxSize + 1} {
		_, err := New(size)
		assert.ErrorIs(t, err, ErrInvalidBlockSize, "size=%d", size)
		assert.ErrorIs(t, err, errkind.ErrConfiguration)
	}
	_, err := New(8, WithWorkers(-2))
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	e := mustEngine(t, 13, WithWorkers(4))
	assert.Equal(t, 13, e.Size())
	assert.True(t, e.Parallel())
	assert.False(t, mustEngine(t, 13, WithWorkers(1)).Parallel())
}

func TestBlockSizeDoesNotChangeSequentialOutput(t *testing.T) {
	ns := counts(5000)
	probs := Single(binomial.MustBuild(0.35))

	var want []int64
	for _, size := range presets {
		out := make([]int64, len(ns))
		require.NoError(t, mustEngine(t, size).Generate(ns, probs, seeded(t, 17), out))
		if want == nil {
			want = out
			continue
		}
		assert.Equal(t, want, out, "block size %d", size)
	}
}

func TestPositionalOrdering(t *testing.T) {
	ns := []int64{10, 20, 30}
	probs := PerElement([]*binomial.Table{
		binomial.MustBuild(0.1),
		binomial.MustBuild(0.5),
		binomial.MustBuild(0.9),
	})
	const reps = 40000
	for _, size := range []int{1, 2, Small, XXXLarge} {
		t.Run(fmt.Sprintf("block=%d", size), func(t *testing.T) {
			e := mustEngine(t, size)
			src := seeded(t, 3)
			cols := make([][]float64, 3)
			out := make([]int64, 3)
			for r := 0; r < reps; r++ {
				require.NoError(t, e.Generate(ns, probs, src, out))
				for i, v := range out {
					require.True(t, v >= 0 && v <= ns[i])
					cols[i] = append(cols[i], float64(v))
				}
			}
			wantMean := []float64{1, 10, 27}
			wantVar := []float64{0.9, 5, 2.7}
			for i := range cols {
				m, v := stat.MeanVariance(cols[i], nil)
				assert.InEpsilon(t, wantMean[i], m, 0.03, "result[%d] mean", i)
				assert.InEpsilon(t, wantVar[i], v, 0.06, "result[%d] variance", i)
			}
		})
	}
}

func TestBroadcastOverRows(t *testing.T) {
	// n shape (4, 3) with p shape (3,): columns share a probability.
	ns := []int64{
		50, 50, 50,
		50, 50, 50,
		50, 50, 50,
		50, 50, 50,
	}
	probs := PerElement([]*binomial.Table{binomial.MustBuild(0), binomial.MustBuild(1), binomial.MustBuild(0.5)})
	out := make([]int64, len(ns))
	require.NoError(t, mustEngine(t, Small).Generate(ns, probs, seeded(t, 1), out))
	for row := 0; row < 4; row++ {
		assert.Equal(t, int64(0), out[row*3])
		assert.Equal(t, int64(50), out[row*3+1])
	}
}

func TestNegativeCountLeavesOutputUntouched(t *testing.T) {
	ns := []int64{1, 2, 3, -4, 5}
	out := []int64{-9, -9, -9, -9, -9}
	src := seeded(t, 8)
	ref := seeded(t, 8)

	err := mustEngine(t, 2).Generate(ns, Single(binomial.MustBuild(0.5)), src, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, binomial.ErrNegativeTrials)
	assert.Contains(t, err.Error(), "n[3]")
	assert.Equal(t, []int64{-9, -9, -9, -9, -9}, out)
	assert.Equal(t, ref.Uint64(), src.Uint64(), "no bits consumed")
}

func TestGenerateArgumentErrors(t *testing.T) {
	e := mustEngine(t, Small)
	err := e.Generate([]int64{1, 2}, Single(binomial.MustBuild(0.5)), seeded(t, 1), make([]int64, 1))
	assert.ErrorIs(t, err, errkind.ErrShapeMismatch)

	err = e.Generate([]int64{1}, Probabilities{}, seeded(t, 1), make([]int64, 1))
	assert.ErrorIs(t, err, errkind.ErrMissingProbability)

	assert.NoError(t, e.Generate(nil, Probabilities{}, seeded(t, 1), nil))
}

func TestParallelDeterministicAcrossWorkerCounts(t *testing.T) {
	ns := counts(10000)
	probs := Single(binomial.MustBuild(0.6))

	var want []int64
	for _, workers := range []int{2, 3, 8} {
		out := make([]int64, len(ns))
		e := mustEngine(t, Large, WithWorkers(workers))
		require.NoError(t, e.Generate(ns, probs, seeded(t, 21), out))
		for i, v := range out {
			require.True(t, v >= 0 && v <= ns[i])
		}
		if want == nil {
			want = out
			continue
		}
		assert.Equal(t, want, out, "workers=%d", workers)
	}
}

func TestParallelDistribution(t *testing.T) {
	const size = 200000
	ns := make([]int64, size)
	for i := range ns {
		ns[i] = 1000
	}
	out := make([]int64, size)
	e := mustEngine(t, XXXLarge, WithWorkers(4))
	require.NoError(t, e.Generate(ns, Single(binomial.MustBuild(0.3)), seeded(t, 5), out))

	xs := make([]float64, size)
	for i, v := range out {
		xs[i] = float64(v)
	}
	m, v := stat.MeanVariance(xs, nil)
	assert.InEpsilon(t, 300, m, 0.01)
	assert.InEpsilon(t, 210, v, 0.05)
}
