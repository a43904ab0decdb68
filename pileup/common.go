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
package pileup

import (
	"github.com/grailbio/allelic/interval"
	"github.com/grailbio/hts/sam"
)

// Common pileup components.

// PosType is the integer type used to represent genomic positions.
type PosType = interval.PosType

// Seq8ToASCIITable is the .bam seq nibble -> ASCII mapping.
var Seq8ToASCIITable = [...]byte{'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}

// FlagExclude is the set of flags that disqualify a record from pileup.
const FlagExclude = sam.Unmapped | sam.Secondary | sam.Supplementary | sam.Duplicate

// IsCountable reports whether rec passes the flag and MAPQ filters.  Records
// without a CIGAR never align to anything and are rejected too.
func IsCountable(rec *sam.Record, minMapQ int) bool {
	return rec.Flags&FlagExclude == 0 && int(rec.MapQ) >= minMapQ && len(rec.Cigar) != 0
}

// SeqAt returns the ASCII base at offset i of seq.
func SeqAt(seq sam.Seq, i int) byte {
	nibble := byte(seq.Seq[i>>1])
	if i&1 == 0 {
		nibble >>= 4
	} else {
		nibble &= 0xf
	}
	return Seq8ToASCIITable[nibble]
}
