package genome

import (
	"fmt"
	"strconv"
	"strings"
)

// Version identifies the reference-genome build that catalog coordinates
// refer to.  It selects the centromere and heterochromatin resources.
type Version int

const (
	// V37 is GRCh37 / hg19.
	V37 Version = iota
	// V38 is GRCh38 / hg38.
	V38
)

// ParseVersion accepts "37", "38", "hg19", "hg38", "GRCh37", "GRCh38" (case
// insensitive).
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(s) {
	case "37", "v37", "hg19", "grch37":
		return V37, nil
	case "38", "v38", "hg38", "grch38":
		return V38, nil
	}
	return V37, fmt.Errorf("genome.ParseVersion: unknown reference genome version %q", s)
}

func (v Version) String() string {
	if v == V38 {
		return "V38"
	}
	return "V37"
}

// AutosomeLength is the combined length of chromosomes 1-22 in GRCh37.  It is
// the denominator of the consanguinity proportion regardless of version.
const AutosomeLength = 2881033286

// unrankedBase is added to the rank of contigs that are not human primary
// chromosomes, so that they sort after chrY.
const unrankedBase = 1000

// StripPrefix removes a leading "chr" from a contig name.
func StripPrefix(chrom string) string {
	if strings.HasPrefix(chrom, "chr") {
		return chrom[3:]
	}
	return chrom
}

// Rank returns the ordering key of a chromosome: 1-22 for autosomes, 23 for
// X, 24 for Y, 25 for MT, and unrankedBase for everything else.  Contigs with
// equal rank are ordered by name by the caller.
func Rank(chrom string) int {
	name := StripPrefix(chrom)
	switch name {
	case "X":
		return 23
	case "Y":
		return 24
	case "M", "MT":
		return 25
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= 22 {
		return n
	}
	return unrankedBase
}

// Less orders chromosome names by Rank, then by name.
func Less(a, b string) bool {
	ra, rb := Rank(a), Rank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// IsAutosome reports whether chrom is one of chromosomes 1-22.
func IsAutosome(chrom string) bool {
	return Rank(chrom) <= 22
}
