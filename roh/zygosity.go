package roh

import (
	"github.com/grailbio/allelic/pileup/evidence"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// minHomozygousRatio is the fraction of support one allele needs before
	// the Poisson test is consulted.
	minHomozygousRatio = 0.75
	// maxHeterozygousTail is the largest P(X <= total-count) under
	// Poisson(total/2) at which a site still counts as homozygous.
	maxHeterozygousTail = 0.005
)

// Zygosity is the genotype call of a site.
type Zygosity int

const (
	// Unclear marks a site with no ref or alt support.
	Unclear Zygosity = iota
	Homozygous
	Heterozygous
)

func (z Zygosity) String() string {
	switch z {
	case Homozygous:
		return "HOM"
	case Heterozygous:
		return "HET"
	}
	return "UNCLEAR"
}

// IsAlleleHomozygous reports whether count reads out of total are too many to
// have come from one allele of a heterozygous site.
func IsAlleleHomozygous(total, count int) bool {
	if count == total {
		return true
	}
	if float64(count) <= minHomozygousRatio*float64(total) {
		return false
	}
	p := distuv.Poisson{Lambda: float64(total) / 2}
	return p.CDF(float64(total-count)) < maxHeterozygousTail
}

// SiteZygosity classifies e from its ref and alt support.
func SiteZygosity(e *evidence.PositionEvidence) Zygosity {
	ref, alt := int(e.RefSupport), int(e.AltSupport)
	total := ref + alt
	if total == 0 {
		return Unclear
	}
	if IsAlleleHomozygous(total, ref) || IsAlleleHomozygous(total, alt) {
		return Homozygous
	}
	return Heterozygous
}
