package genome

// Region is a 1-based, inclusive genomic interval.  Chrom carries no "chr"
// prefix.
type Region struct {
	Chrom      string
	Start, End int
}

// Centromere ranges.  V37 values are the UCSC hg19 gap-table centromere
// entries; V38 values are the hg38 acen cytobands.
var centromeres = map[Version][]Region{
	V37: {
		{"1", 121535435, 124535434},
		{"2", 92326172, 95326171},
		{"3", 90504855, 93504854},
		{"4", 49660118, 52660117},
		{"5", 46405642, 49405641},
		{"6", 58830167, 61830166},
		{"7", 58054332, 61054331},
		{"8", 43838888, 46838887},
		{"9", 47367680, 50367679},
		{"10", 39254936, 42254935},
		{"11", 51644206, 54644205},
		{"12", 34856695, 37856694},
		{"13", 16000001, 19000000},
		{"14", 16000001, 19000000},
		{"15", 17000001, 20000000},
		{"16", 35335802, 38335801},
		{"17", 22263007, 25263006},
		{"18", 15460899, 18460898},
		{"19", 24681783, 27681782},
		{"20", 26369570, 29369569},
		{"21", 11288130, 14288129},
		{"22", 13000001, 16000000},
		{"X", 58632013, 61632012},
		{"Y", 10104554, 13104553},
	},
	V38: {
		{"1", 121700001, 125100000},
		{"2", 91800001, 96000000},
		{"3", 87800001, 94000000},
		{"4", 48200001, 51800000},
		{"5", 46100001, 51400000},
		{"6", 58500001, 62600000},
		{"7", 58100001, 62100000},
		{"8", 43200001, 47200000},
		{"9", 42200001, 45500000},
		{"10", 38000001, 41600000},
		{"11", 51000001, 55800000},
		{"12", 33200001, 37800000},
		{"13", 16500001, 18900000},
		{"14", 16100001, 18200000},
		{"15", 17500001, 20500000},
		{"16", 35300001, 38400000},
		{"17", 22700001, 27400000},
		{"18", 15400001, 21500000},
		{"19", 24200001, 28100000},
		{"20", 25700001, 30400000},
		{"21", 10900001, 13000000},
		{"22", 13700001, 17400000},
		{"X", 58100001, 61000000},
		{"Y", 10300001, 10600000},
	},
}

// Large constitutive heterochromatin blocks (1q12, 9q12, 16q11.2).
var heterochromatin = map[Version][]Region{
	V37: {
		{"1", 124535435, 142535434},
		{"9", 50367680, 65367679},
		{"16", 38335802, 46335801},
	},
	V38: {
		{"1", 125100001, 143200000},
		{"9", 45500001, 61500000},
		{"16", 38400001, 47000000},
	},
}

// Acrocentric chromosomes; their short arms carry no usable sites.
var acrocentric = []string{"13", "14", "15", "21", "22"}

// Centromeres returns the centromere ranges of the given build.
func Centromeres(v Version) []Region {
	return centromeres[v]
}

// Centromere returns the centromere of chrom (with or without "chr").
func Centromere(v Version, chrom string) (Region, bool) {
	name := StripPrefix(chrom)
	for _, r := range centromeres[v] {
		if r.Chrom == name {
			return r, true
		}
	}
	return Region{}, false
}

// Heterochromatin returns the curated heterochromatin blocks of the given
// build.
func Heterochromatin(v Version) []Region {
	return heterochromatin[v]
}

// AcrocentricArms returns the short arm (position 1 up to the centromere
// start) of every acrocentric chromosome.
func AcrocentricArms(v Version) []Region {
	var arms []Region
	for _, name := range acrocentric {
		c, ok := Centromere(v, name)
		if !ok {
			continue
		}
		arms = append(arms, Region{Chrom: name, Start: 1, End: c.Start - 1})
	}
	return arms
}
