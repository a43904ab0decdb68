package catalog

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const testTSV = "#CHROM\tPOS\tREF\tALT\tPANEL\n" +
	"chr1\t100\tA\tG\t1\n" +
	"chr1\t250\tc\tt\t0\n" +
	"chr2\t7\tG\tA\t0\n"

func TestNew(t *testing.T) {
	c, err := New([]Entry{
		{Chrom: "chr1", Pos: 10, Ref: 'A', Alt: 'C'},
		{Chrom: "chr1", Pos: 20, Ref: 'A', Alt: 'C'},
		{Chrom: "chr2", Pos: 5, Ref: 'A', Alt: 'C'},
	})
	assert.NoError(t, err)
	expect.EQ(t, c.Len(), 3)
	expect.EQ(t, c.ChromosomeNames(), []string{"chr1", "chr2"})
	for i, e := range c.Entries() {
		expect.EQ(t, e.Idx, i)
	}

	tests := []struct {
		name    string
		entries []Entry
	}{
		{"split", []Entry{{Chrom: "chr1", Pos: 10}, {Chrom: "chr2", Pos: 5}, {Chrom: "chr1", Pos: 20}}},
		{"unsorted", []Entry{{Chrom: "chr1", Pos: 20}, {Chrom: "chr1", Pos: 10}}},
		{"duplicate", []Entry{{Chrom: "chr1", Pos: 10}, {Chrom: "chr1", Pos: 10}}},
		{"zero", []Entry{{Chrom: "chr1", Pos: 0}}},
	}
	for _, tt := range tests {
		_, err := New(tt.entries)
		expect.NotNil(t, err, tt.name)
	}
}

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(testTSV))
	assert.NoError(t, err)
	expect.EQ(t, c.Entries(), []Entry{
		{Chrom: "chr1", Pos: 100, Ref: 'A', Alt: 'G', Panel: true, Idx: 0},
		{Chrom: "chr1", Pos: 250, Ref: 'C', Alt: 'T', Idx: 1},
		{Chrom: "chr2", Pos: 7, Ref: 'G', Alt: 'A', Idx: 2},
	})

	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, c))
	c2, err := Read(&buf)
	assert.NoError(t, err)
	expect.EQ(t, c2.Entries(), c.Entries())

	c, err = Read(strings.NewReader("#CHROM\tPOS\tREF\tALT\n" +
		"chr1\t100\tA\tG\n" +
		"chr3\t5\tT\tC\n"))
	assert.NoError(t, err)
	expect.EQ(t, c.Entries(), []Entry{
		{Chrom: "chr1", Pos: 100, Ref: 'A', Alt: 'G', Idx: 0},
		{Chrom: "chr3", Pos: 5, Ref: 'T', Alt: 'C', Idx: 1},
	})

	_, err = Read(strings.NewReader("#CHROM\tPOS\tREF\tPANEL\nchr1\t100\tA\t1\n"))
	expect.NotNil(t, err)

	_, err = Read(strings.NewReader("#CHROM\tPOS\tREF\tALT\tPANEL\nchr1\t100\tAG\tG\t0\n"))
	expect.NotNil(t, err)
	_, err = Read(strings.NewReader("#CHROM\tPOS\tREF\tALT\tPANEL\nchr1\t100\tA\tX\t0\n"))
	expect.NotNil(t, err)
	_, err = Read(strings.NewReader("#CHROM\tPOS\tREF\tALT\tPANEL\nchr1\t100\tA\tG\t0\nchr1\t50\tA\tG\t0\n"))
	expect.NotNil(t, err)
}

func TestReadFileGzip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "catalog")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	path := filepath.Join(tmpdir, "sites.tsv.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testTSV))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	c, err := ReadFile(vcontext.Background(), path)
	assert.NoError(t, err)
	expect.EQ(t, c.Len(), 3)

	_, err = ReadFile(vcontext.Background(), filepath.Join(tmpdir, "missing.tsv"))
	expect.NotNil(t, err)
}

func TestFilterMergeLoci(t *testing.T) {
	a, err := New([]Entry{
		{Chrom: "chr1", Pos: 10, Ref: 'A', Alt: 'C'},
		{Chrom: "chr1", Pos: 30, Ref: 'A', Alt: 'C'},
	})
	assert.NoError(t, err)
	b, err := New([]Entry{
		{Chrom: "chr3", Pos: 1, Ref: 'T', Alt: 'G'},
		{Chrom: "chr1", Pos: 20, Ref: 'G', Alt: 'T'},
		{Chrom: "chr1", Pos: 30, Ref: 'T', Alt: 'T'},
	})
	assert.NoError(t, err)

	m, err := Merge(a, b)
	assert.NoError(t, err)
	expect.EQ(t, m.Entries(), []Entry{
		{Chrom: "chr1", Pos: 10, Ref: 'A', Alt: 'C', Idx: 0},
		{Chrom: "chr1", Pos: 20, Ref: 'G', Alt: 'T', Idx: 1},
		{Chrom: "chr1", Pos: 30, Ref: 'A', Alt: 'C', Idx: 2},
		{Chrom: "chr3", Pos: 1, Ref: 'T', Alt: 'G', Idx: 3},
	})

	f := m.Filter(func(e Entry) bool { return e.Chrom == "chr1" && e.Pos > 10 })
	expect.EQ(t, f.Len(), 2)
	expect.EQ(t, f.Entries()[0].Idx, 0)
	expect.EQ(t, f.Entries()[0].Pos, 20)

	loci := b.Loci()
	expect.True(t, loci.Contains("chr1", 20))
	expect.False(t, loci.Contains("chr1", 10))
	expect.False(t, loci.Contains("chr2", 20))
}
