package contamination

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

// expectedSites builds n sites at depth whose alt support follows the model
// for contamination c exactly (up to rounding).
func expectedSites(n int, c float64, depth int) []Site {
	var sites []Site
	m := float64(depth)
	for k := 0; k <= depth; k++ {
		p := 0.5*poissonProb(0.5*c*m, k) + 0.25*poissonProb(c*m, k)
		if k == 0 {
			p += 0.25
		}
		count := int(math.Round(p * float64(n)))
		for i := 0; i < count; i++ {
			sites = append(sites, Site{Chrom: "1", Pos: len(sites) + 1, NormalDepth: depth, TumorDepth: depth, TumorAltSupport: k})
		}
	}
	return sites
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		c     float64
		depth int
	}{
		{0.1, 100},
		{0.05, 120},
		{0.3, 80},
	}
	for _, tt := range tests {
		sites := expectedSites(200000, tt.c, tt.depth)
		got := DefaultModel.Estimate(sites)
		expect.True(t, math.Abs(got-tt.c) <= 0.002, "c=%v got=%v", tt.c, got)
	}
}

func TestEstimateFallback(t *testing.T) {
	// Plenty of alt support, but too few sites with >= 3.
	var sites []Site
	for i := 0; i < 5000; i++ {
		sites = append(sites, Site{TumorDepth: 100, TumorAltSupport: i % 3})
	}
	for i := 0; i < DefaultMinThreePlusSites-1; i++ {
		sites = append(sites, Site{TumorDepth: 100, TumorAltSupport: 3 + i%5})
	}
	expect.EQ(t, DefaultModel.Estimate(sites), 0.0)
	expect.EQ(t, DefaultModel.Estimate(nil), 0.0)

	sites = append(sites, Site{TumorDepth: 100, TumorAltSupport: 7})
	expect.True(t, DefaultModel.Estimate(sites) > 0)
}

func TestScore(t *testing.T) {
	sites := expectedSites(200000, 0.2, 100)
	h := NewHistogram(sites)
	m := MedianTumorDepth(sites)
	expect.EQ(t, m, 100.0)
	best := Score(0.2, m, h)
	for _, c := range []float64{0.05, 0.1, 0.15, 0.25, 0.5, 1} {
		expect.True(t, Score(c, m, h) > best, "c=%v", c)
	}
	expect.True(t, math.IsInf(Score(0, m, h), 1))
	expect.True(t, math.IsInf(Score(0.2, m, Histogram{0: 10, 1: 3}), 1))
}

func TestHistogram(t *testing.T) {
	h := NewHistogram([]Site{{TumorAltSupport: 0}, {TumorAltSupport: 3}, {TumorAltSupport: 3}, {TumorAltSupport: 5}})
	expect.EQ(t, h, Histogram{0: 1, 3: 2, 5: 1})
	expect.EQ(t, h.CountAtLeast(3), 3)
	expect.EQ(t, h.CountAtLeast(4), 1)
	expect.EQ(t, MedianTumorDepth([]Site{{TumorDepth: 4}, {TumorDepth: 1}, {TumorDepth: 3}, {TumorDepth: 2}}), 2.0)
	expect.EQ(t, MedianTumorDepth(nil), 0.0)
	expect.EQ(t, poissonProb(0, 0), 1.0)
	expect.EQ(t, poissonProb(0, 2), 0.0)
}
