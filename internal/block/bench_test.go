package block

import (
	"fmt"
	"testing"

	"github.com/xtding233/fastbinomial/internal/binomial"
)

func BenchmarkGenerate(b *testing.B) {
	ns := counts(1 << 14)
	out := make([]int64, len(ns))
	probs := Single(binomial.MustBuild(0.3))
	for _, size := range []int{Small, Medium, Large, XLarge, XXLarge, XXXLarge} {
		b.Run(fmt.Sprintf("block=%d", size), func(b *testing.B) {
			e := mustEngine(b, size)
			src := seeded(b, 1)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = e.Generate(ns, probs, src, out)
			}
		})
	}
	b.Run("parallel", func(b *testing.B) {
		e := mustEngine(b, XXXLarge, WithWorkers(4))
		src := seeded(b, 1)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = e.Generate(ns, probs, src, out)
		}
	})
}
