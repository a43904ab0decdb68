// Package readtest builds alignment records and small indexed BAM files for
// unit tests.
package readtest

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/require"
)

// Ref describes one reference sequence of a test header.
type Ref struct {
	Name string
	Len  int
}

// NewHeader creates a coordinate-sorted header with the given references.
func NewHeader(t testing.TB, refs ...Ref) *sam.Header {
	var samRefs []*sam.Reference
	for _, r := range refs {
		ref, err := sam.NewReference(r.Name, "", "", r.Len, nil, nil)
		require.NoError(t, err)
		samRefs = append(samRefs, ref)
	}
	h, err := sam.NewHeader(nil, samRefs)
	require.NoError(t, err)
	h.SortOrder = sam.Coordinate
	return h
}

// Opts sets the optional fields of NewRecord.
type Opts struct {
	MapQ  byte
	Flags sam.Flags
	// Qual is the quality of every base.  Per-base values in Quals take
	// precedence.
	Qual  byte
	Quals []byte
}

// DefaultOpts is a primary, well-mapped read with base quality 30.
var DefaultOpts = Opts{MapQ: 60, Qual: 30}

// NewRecord creates a record at the 0-based position pos.  cigar uses SAM
// syntax, e.g. "3M1D4M".
func NewRecord(t testing.TB, name string, ref *sam.Reference, pos int, cigar, seq string, opts Opts) *sam.Record {
	co, err := sam.ParseCigar([]byte(cigar))
	require.NoError(t, err)
	qual := opts.Quals
	if qual == nil {
		qual = bytes.Repeat([]byte{opts.Qual}, len(seq))
	}
	require.Equal(t, len(seq), len(qual), "record %s", name)
	rec, err := sam.NewRecord(name, ref, nil, pos, -1, 0, opts.MapQ, co, []byte(seq), qual, nil)
	require.NoError(t, err)
	rec.Flags = opts.Flags
	return rec
}

// WriteIndexedBAM writes recs (coordinate sorted) to path and an index to
// path+".bai".
func WriteIndexedBAM(t testing.TB, path string, header *sam.Header, recs []*sam.Record) {
	out, err := os.Create(path)
	require.NoError(t, err)
	bw, err := bam.NewWriter(out, header, 1)
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, bw.Write(rec))
	}
	require.NoError(t, bw.Close())
	require.NoError(t, out.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	br, err := bam.NewReader(in, 1)
	require.NoError(t, err)
	var idx bam.Index
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, idx.Add(rec, br.LastChunk()))
	}
	require.NoError(t, br.Close())
	require.NoError(t, in.Close())

	indexOut, err := os.Create(path + ".bai")
	require.NoError(t, err)
	require.NoError(t, bam.WriteIndex(indexOut, &idx))
	require.NoError(t, indexOut.Close())
}
