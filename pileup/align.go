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
	"github.com/grailbio/hts/sam"
)

// NextAligned returns the 0-based read offset of the first base aligned to a
// reference position >= pos, together with that reference position.  It
// returns (-1, -1) when no such base exists.  Soft clips and insertions are
// never aligned.
func NextAligned(rec *sam.Record, pos PosType) (int, PosType) {
	posInRef := PosType(rec.Pos)
	posInRead := 0
	for _, co := range rec.Cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			nextPosInRef := posInRef + PosType(cLen)
			if pos < nextPosInRef {
				offset := 0
				if pos > posInRef {
					offset = int(pos - posInRef)
				}
				return posInRead + offset, posInRef + PosType(offset)
			}
			posInRef = nextPosInRef
			posInRead += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped:
			posInRead += cLen
		case sam.CigarDeletion, sam.CigarSkipped:
			posInRef += PosType(cLen)
		}
	}
	return -1, -1
}

// RefToRead returns the 0-based read offset aligned to the 0-based reference
// position pos, or -1 if pos is outside the alignment or falls in a deletion
// or a skip.
func RefToRead(rec *sam.Record, pos PosType) int {
	readPos, refPos := NextAligned(rec, pos)
	if refPos != pos {
		return -1
	}
	return readPos
}
