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
package pileup_test

import (
	"testing"

	"github.com/grailbio/allelic/internal/readtest"
	"github.com/grailbio/allelic/pileup"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

func TestRefToRead(t *testing.T) {
	header := readtest.NewHeader(t, readtest.Ref{Name: "chr1", Len: 1000})
	ref := header.Refs()[0]
	// Read bases: SS MMM I MM DD MMM
	// offsets     01 234 5 67    89a
	rec := readtest.NewRecord(t, "r", ref, 100, "2S3M1I2M2D3M", "AACGTTACGTA", readtest.DefaultOpts)
	tests := []struct {
		pos      pileup.PosType
		want     int
		nextRead int
		nextRef  pileup.PosType
	}{
		{99, -1, 2, 100},
		{100, 2, 2, 100},
		{102, 4, 4, 102},
		{103, 6, 6, 103},
		{104, 7, 7, 104},
		{105, -1, 8, 107},
		{106, -1, 8, 107},
		{107, 8, 8, 107},
		{109, 10, 10, 109},
		{110, -1, -1, -1},
	}
	for _, tt := range tests {
		expect.EQ(t, pileup.RefToRead(rec, tt.pos), tt.want, "pos=%d", tt.pos)
		readPos, refPos := pileup.NextAligned(rec, tt.pos)
		expect.EQ(t, readPos, tt.nextRead, "pos=%d", tt.pos)
		expect.EQ(t, refPos, tt.nextRef, "pos=%d", tt.pos)
	}
	expect.EQ(t, rec.End(), 110)
}

func TestIsCountable(t *testing.T) {
	header := readtest.NewHeader(t, readtest.Ref{Name: "chr1", Len: 1000})
	ref := header.Refs()[0]
	tests := []struct {
		flags sam.Flags
		mapq  byte
		want  bool
	}{
		{0, 60, true},
		{sam.Paired | sam.ProperPair | sam.Reverse, 60, true},
		{0, 0, false},
		{sam.Unmapped, 60, false},
		{sam.Secondary, 60, false},
		{sam.Supplementary, 60, false},
		{sam.Duplicate, 60, false},
	}
	for _, tt := range tests {
		opts := readtest.DefaultOpts
		opts.Flags = tt.flags
		opts.MapQ = tt.mapq
		rec := readtest.NewRecord(t, "r", ref, 100, "4M", "ACGT", opts)
		expect.EQ(t, pileup.IsCountable(rec, 1), tt.want, "flags=%v mapq=%d", tt.flags, tt.mapq)
	}
}

func TestSeqAt(t *testing.T) {
	seq := sam.NewSeq([]byte("ACGTNAC"))
	for i, c := range []byte("ACGTNAC") {
		expect.EQ(t, pileup.SeqAt(seq, i), c)
	}
}
