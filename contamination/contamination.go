// Package contamination estimates the fraction of foreign DNA in a tumor
// sample from the alt support seen at sites where the matched normal is
// homozygous reference.
//
// A contaminating genome is heterozygous at about half of those sites and
// homozygous alt at about a quarter, so with contamination c and median depth
// m the alt support k follows
//
//   0.5*Poisson(0.5*c*m) + 0.25*Poisson(c*m)
//
// plus a 0.25 point mass at k=0.  Low counts are dominated by sequencing
// errors, so the fit only compares the shape of the k>=2 tail.
package contamination

import (
	"math"
	"sort"

	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Site is the tumor evidence at a germline homozygous-reference site.
type Site struct {
	Chrom string
	// Pos is 1-based.
	Pos             int
	NormalDepth     int
	TumorDepth      int
	TumorAltSupport int
}

const (
	// DefaultMinThreePlusSites is the default Model.MinThreePlusSites.
	DefaultMinThreePlusSites = 2000
	// gridSteps is the number of contamination levels tried, uniformly
	// spaced in (0, 1].
	gridSteps = 1000
)

// Model fits contamination levels.
type Model struct {
	// MinThreePlusSites is the number of sites with tumor alt support >= 3
	// below which the sample is deemed uncontaminated without fitting.
	MinThreePlusSites int
}

// DefaultModel uses DefaultMinThreePlusSites.
var DefaultModel = Model{MinThreePlusSites: DefaultMinThreePlusSites}

// Histogram maps a tumor alt support count to the number of sites showing it.
type Histogram map[int]int

// NewHistogram counts the tumor alt support of sites.
func NewHistogram(sites []Site) Histogram {
	h := make(Histogram)
	for _, s := range sites {
		h[s.TumorAltSupport]++
	}
	return h
}

// CountAtLeast returns the number of sites with alt support >= k.
func (h Histogram) CountAtLeast(k int) int {
	n := 0
	for support, count := range h {
		if support >= k {
			n += count
		}
	}
	return n
}

// MedianTumorDepth returns the lower median of the tumor depths, or 0 for no
// sites.
func MedianTumorDepth(sites []Site) float64 {
	if len(sites) == 0 {
		return 0
	}
	depths := make([]float64, len(sites))
	for i, s := range sites {
		depths[i] = float64(s.TumorDepth)
	}
	sort.Float64s(depths)
	return stat.Quantile(0.5, stat.Empirical, depths, nil)
}

// poissonProb is the Poisson pmf, with the lambda=0 case defined as a point
// mass at zero.
func poissonProb(lambda float64, k int) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	return distuv.Poisson{Lambda: lambda}.Prob(float64(k))
}

// Score returns the distance between the observed k>=2 alt-support
// distribution and the model for contamination c at median depth
// medianDepth.  Lower is better.
func Score(c, medianDepth float64, h Histogram) float64 {
	het := 0.5 * c * medianDepth
	homAlt := c * medianDepth
	unadjusted := func(k int) float64 {
		return 0.5*poissonProb(het, k) + 0.25*poissonProb(homAlt, k)
	}
	noAlt := unadjusted(0) + 0.25
	oneAlt := unadjusted(1)
	twoPlus := 1 - noAlt - oneAlt
	if twoPlus <= 0 {
		return math.Inf(1)
	}
	nTwoPlus := h.CountAtLeast(2)
	if nTwoPlus == 0 {
		return math.Inf(1)
	}

	// Iterate in key order so that the floating point sum is reproducible.
	keys := make([]int, 0, len(h))
	for k := range h {
		if k > 1 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	score, totalModel := 0.0, 0.0
	for _, k := range keys {
		model := unadjusted(k) / twoPlus
		observed := float64(h[k]) / float64(nTwoPlus)
		score += math.Abs(observed - model)
		totalModel += model
	}
	return score + (1 - totalModel)
}

// Estimate returns the contamination level in [0, 1], with a resolution of
// 1/1000.  It returns exactly 0 without fitting when fewer than
// MinThreePlusSites sites have alt support >= 3.
func (m Model) Estimate(sites []Site) float64 {
	h := NewHistogram(sites)
	threePlus := h.CountAtLeast(3)
	if threePlus < m.MinThreePlusSites || h.CountAtLeast(2) == 0 {
		log.Printf("contamination: %d site(s) with alt support >= 3, below %d; assuming none",
			threePlus, m.MinThreePlusSites)
		return 0
	}
	medianDepth := MedianTumorDepth(sites)
	best, bestScore := 0.0, math.Inf(1)
	for i := 1; i <= gridSteps; i++ {
		c := float64(i) / gridSteps
		if score := Score(c, medianDepth, h); score < bestScore {
			best, bestScore = c, score
		}
	}
	log.Printf("contamination: %d site(s), median depth %v, estimate %v (score %v)",
		len(sites), medianDepth, best, bestScore)
	return best
}
