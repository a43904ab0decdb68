// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/contamination"
	"github.com/grailbio/allelic/genome"
	"github.com/grailbio/allelic/germline"
	"github.com/grailbio/allelic/internal/readtest"
	"github.com/grailbio/allelic/roh"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const testCatalog = `#CHROM	POS	REF	ALT
chr1	1000	A	G
chr1	2000	A	G
chr1	3000	A	G
chr2	500	A	G
`

// writeBAM writes a BAM with one 11-base read per base of pileup[pos],
// centered on the 1-based chr1 position pos.
func writeBAM(t *testing.T, path string, positions []int, pileup map[int]string) {
	header := readtest.NewHeader(t, readtest.Ref{Name: "chr1", Len: 100000}, readtest.Ref{Name: "chr2", Len: 100000})
	var recs []*sam.Record
	for _, pos := range positions {
		for i, b := range []byte(pileup[pos]) {
			seq := []byte("CCCCCCCCCCC")
			seq[5] = b
			recs = append(recs, readtest.NewRecord(t, fmt.Sprintf("r%d_%d", pos, i), header.Refs()[0], pos-6, "11M", string(seq), readtest.DefaultOpts))
		}
	}
	readtest.WriteIndexedBAM(t, path, header, recs)
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	if strings.HasSuffix(path, ".gz") {
		r, err := gzip.NewReader(strings.NewReader(string(data)))
		require.NoError(t, err)
		data, err = ioutil.ReadAll(r)
		require.NoError(t, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func parseFloat(t *testing.T, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func testRunOpts(tmpdir string) runOpts {
	o := runOpts{
		catalogPath: filepath.Join(tmpdir, "catalog.tsv"),
		refPaths:    []string{filepath.Join(tmpdir, "normal.bam")},
		refNames:    []string{"normal"},
		outPrefix:   filepath.Join(tmpdir, "out"),
		version:     genome.V37,
		germline:    germline.DefaultOpts,
		roh:         roh.DefaultOpts,
		model:       contamination.DefaultModel,
	}
	o.germline.Scan.Plan.MinGap = 1
	o.germline.Scan.Parallelism = 2
	return o
}

func TestRun(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "germline")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(tmpdir, "catalog.tsv"), []byte(testCatalog), 0644))

	positions := []int{1000, 2000, 3000}
	het, hom := strings.Repeat("AG", 10), strings.Repeat("A", 20)
	writeBAM(t, filepath.Join(tmpdir, "normal.bam"), positions, map[int]string{1000: het, 2000: hom, 3000: het})
	writeBAM(t, filepath.Join(tmpdir, "tumor.bam"), positions, map[int]string{
		1000: strings.Repeat("A", 5) + strings.Repeat("G", 15),
		2000: strings.Repeat("A", 27) + "GGG",
		3000: het,
	})

	o := testRunOpts(tmpdir)
	o.tumorPath = filepath.Join(tmpdir, "tumor.bam")
	assert.NoError(t, run(context.Background(), o))

	homLines := readLines(t, o.outPrefix+".homozygous.tsv")
	require.Len(t, homLines, 2)
	expect.True(t, strings.HasPrefix(homLines[0], "#CHROM\tPOS\tREF\tALT\tREAD_DEPTH"), homLines[0])
	expect.True(t, strings.HasPrefix(homLines[1], "chr1\t2000\tA\tG\t20\t20\t0\t0"), homLines[1])

	bafLines := readLines(t, o.outPrefix+".baf.tsv.gz")
	require.Len(t, bafLines, 3)
	for i, want := range []struct {
		pos, tumorRef, tumorAlt string
		normalBAF, tumorBAF     float64
	}{
		{"1000", "5", "15", 0.5, 0.75},
		{"3000", "10", "10", 0.5, 0.5},
	} {
		fields := strings.Split(bafLines[i+1], "\t")
		require.Len(t, fields, 9)
		expect.EQ(t, fields[:3], []string{"chr1", want.pos, "20"})
		expect.EQ(t, fields[4:7], []string{"20", want.tumorRef, want.tumorAlt})
		expect.EQ(t, parseFloat(t, fields[3]), want.normalBAF)
		expect.EQ(t, parseFloat(t, fields[7]), want.tumorBAF)
	}

	contLines := readLines(t, o.outPrefix+".contamination.tsv")
	require.Len(t, contLines, 2)
	expect.EQ(t, contLines[1], "chr1\t2000\t20\t30\t3")

	qcLines := readLines(t, o.outPrefix+".qc.tsv")
	expect.EQ(t, qcLines, []string{
		"KEY\tVALUE",
		"MEDIAN_DEPTH\t20",
		"HOMOZYGOUS_SITES\t1",
		"HETEROZYGOUS_SITES\t2",
		"CONSANGUINITY_PROPORTION\t0",
		"UNIPARENTAL_DISOMY\tNONE",
		"CONTAMINATION\t0",
	})
}

func TestRunRegionAndSnpCheck(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "germline")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(tmpdir, "catalog.tsv"), []byte(testCatalog), 0644))
	snpCheck := "#CHROM\tPOS\tREF\tALT\nchr1\t1500\tC\tT\n"
	assert.NoError(t, ioutil.WriteFile(filepath.Join(tmpdir, "snpcheck.tsv"), []byte(snpCheck), 0644))

	positions := []int{1000, 1500, 2000, 3000}
	writeBAM(t, filepath.Join(tmpdir, "normal.bam"), positions, map[int]string{
		1000: strings.Repeat("AG", 10),
		1500: strings.Repeat("CT", 10),
		2000: strings.Repeat("A", 20),
		3000: strings.Repeat("A", 20),
	})

	o := testRunOpts(tmpdir)
	o.snpCheckPath = filepath.Join(tmpdir, "snpcheck.tsv")
	o.region = "chr1:1-2500"
	assert.NoError(t, run(context.Background(), o))

	expect.EQ(t, readLines(t, o.outPrefix+".sites.tsv"), []string{
		"#CHROM\tPOS\tREF\tALT\tPANEL",
		"chr1\t1000\tA\tG\t0",
		"chr1\t1500\tC\tT\t0",
		"chr1\t2000\tA\tG\t0",
	})
	sites, err := catalog.ReadFile(context.Background(), o.outPrefix+".sites.tsv")
	assert.NoError(t, err)
	expect.EQ(t, sites.Len(), 3)

	snpLines := readLines(t, o.outPrefix+".snpcheck.tsv")
	require.Len(t, snpLines, 2)
	expect.True(t, strings.HasPrefix(snpLines[1], "chr1\t1500\tC\tT\t20\t10\t10\t0"), snpLines[1])
	// chr1:3000 lies outside the region.
	homLines := readLines(t, o.outPrefix+".homozygous.tsv")
	require.Len(t, homLines, 2)
	expect.True(t, strings.HasPrefix(homLines[1], "chr1\t2000\t"), homLines[1])

	o.region = "chr1:0"
	expect.NotNil(t, run(context.Background(), o))
}

func TestSampleName(t *testing.T) {
	expect.EQ(t, sampleName("s3://bucket/dir/normal.bam"), "normal")
	expect.EQ(t, sampleName("/tmp/x/tumor"), "tumor")
	expect.EQ(t, splitList(""), []string(nil))
	expect.EQ(t, splitList("a,b"), []string{"a", "b"})
}

func TestQCRows(t *testing.T) {
	q := qcValues{medianDepth: 31.5, nHomozygous: 4, nHeterozygous: 2, consanguinity: 0.25, upd: "chr7", hasUPD: true}
	rows := q.rows()
	require.Len(t, rows, 5)
	expect.EQ(t, rows[0], qcRow{"MEDIAN_DEPTH", "31.5"})
	expect.EQ(t, rows[4], qcRow{"UNIPARENTAL_DISOMY", "chr7"})
}
