package interval

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
	// Padding extends every interval by this many bases on both sides before
	// merging.  Starts are clamped at zero.
	Padding PosType
}

// PosType is BEDUnion's coordinate type.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosType checks a[idx], then a[idx + 1], then a[idx + 3], then
// a[idx + 7], etc., and then uses binary search to finish the job.  It's
// usually a better choice than searchPosType when iterating.
func fwdsearchPosType(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// BEDUnion is a collection of length-2N sequences, one per chromosome, where N
// is the number of disjoint intervals on that chromosome.  The (0-based) start
// of interval #k is in element [2k] and its end in element [2k+1], in
// increasing order.  A position is inside the union iff the number of
// endpoints <= it is odd.
//
// Lookups cache the last chromosome and position, so a BEDUnion must not be
// queried from several goroutines; use Clone to get an independent cursor.
type BEDUnion struct {
	// nameMap is a chromosome-keyed map with disjoint-interval-set values.
	// Always initialized.
	nameMap map[string]([]PosType)
	// lastChrIntervals points to the disjoint-interval-set for the most recently
	// queried chromosome.
	lastChrIntervals []PosType
	// lastChrName is the name of the last queried chromosome.  If it's
	// nonempty, it must be in sync with lastChrIntervals.
	lastChrName string
	// lastPosPlus1 is 1 plus the last spot-queried position.
	lastPosPlus1 PosType
	// lastIdx is searchPosType(lastChrIntervals, lastPosPlus1).
	lastIdx int
	// isSequential is true if all queries since the last chromosome change have
	// been in order of nondecreasing position.
	isSequential bool
}

func (u *BEDUnion) selectChr(chrName string) {
	u.lastChrName = chrName
	u.lastChrIntervals = u.nameMap[chrName]
	u.isSequential = false
}

// ContainsByName checks whether the (0-based) interval [pos, pos+1) is
// contained within the BEDUnion.
func (u *BEDUnion) ContainsByName(chrName string, pos PosType) bool {
	posPlus1 := pos + 1
	if chrName != u.lastChrName || u.lastChrIntervals == nil {
		u.selectChr(chrName)
		if u.lastChrIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastChrIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastChrIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastChrIntervals, posPlus1)&1 == 1
}

// IntersectsByName checks whether the (0-based) half-open interval
// [start, limit) on chrName shares at least one base with the BEDUnion.  An
// empty query interval never intersects.
func (u *BEDUnion) IntersectsByName(chrName string, start, limit PosType) bool {
	if limit <= start {
		return false
	}
	chrIntervals := u.nameMap[chrName]
	if chrIntervals == nil {
		return false
	}
	idx := searchPosType(chrIntervals, start+1)
	if idx&1 == 1 {
		return true
	}
	return idx != len(chrIntervals) && limit > chrIntervals[idx]
}

// Chromosomes returns the names of the chromosomes with at least one
// interval, in no particular order.
func (u *BEDUnion) Chromosomes() []string {
	names := make([]string, 0, len(u.nameMap))
	for name, intervals := range u.nameMap {
		if len(intervals) != 0 {
			names = append(names, name)
		}
	}
	return names
}

// NBases returns the number of bases covered by the union.
func (u *BEDUnion) NBases() int {
	n := 0
	for _, intervals := range u.nameMap {
		for i := 0; i+1 < len(intervals); i += 2 {
			n += int(intervals[i+1] - intervals[i])
		}
	}
	return n
}

func initBEDUnion() (bedUnion BEDUnion) {
	bedUnion.nameMap = make(map[string]([]PosType))
	return
}

// unionBuilder accumulates sorted intervals, merging touching/overlapping
// ones.
type unionBuilder struct {
	bedUnion     BEDUnion
	prevChr      string
	prevStart    PosType
	prevEnd      PosType
	chrIntervals []PosType
	totBases     int
}

func newUnionBuilder() *unionBuilder {
	return &unionBuilder{bedUnion: initBEDUnion(), prevStart: -1, prevEnd: -1}
}

func (b *unionBuilder) finishChr() {
	if b.prevChr == "" {
		return
	}
	if b.prevEnd != -1 {
		b.chrIntervals = append(b.chrIntervals, b.prevStart, b.prevEnd)
	}
	b.bedUnion.nameMap[b.prevChr] = b.chrIntervals
}

func (b *unionBuilder) add(chr string, start, end PosType) error {
	if chr != b.prevChr {
		b.finishChr()
		if _, found := b.bedUnion.nameMap[chr]; found {
			return fmt.Errorf("interval.unionBuilder: unsorted input (split chromosome %v)", chr)
		}
		b.prevChr = chr
		b.chrIntervals = []PosType{}
		if end == start {
			// Distinguish between 'mentioned' chromosomes without any overlapping
			// bases and unmentioned chromosomes.
			b.prevStart = -1
			b.prevEnd = -1
		} else {
			b.prevStart = start
			b.prevEnd = end
			b.totBases += int(end - start)
		}
		return nil
	}
	if end == start {
		return nil
	}
	if b.prevEnd == -1 {
		b.prevStart = start
		b.prevEnd = end
		b.totBases += int(end - start)
		return nil
	}
	if start > b.prevEnd {
		b.chrIntervals = append(b.chrIntervals, b.prevStart, b.prevEnd)
		b.prevStart = start
		b.prevEnd = end
		b.totBases += int(end - start)
		return nil
	}
	if start < b.prevStart {
		return fmt.Errorf("interval.unionBuilder: unsorted input on chromosome %v", chr)
	}
	if end > b.prevEnd {
		b.totBases += int(end - b.prevEnd)
		b.prevEnd = end
	}
	return nil
}

func (b *unionBuilder) finish() BEDUnion {
	b.finishChr()
	return b.bedUnion
}

func pad(start, end, padding PosType) (PosType, PosType) {
	start -= padding
	if start < 0 {
		start = 0
	}
	end += padding
	if end >= PosTypeMax {
		end = PosTypeMax - 1
	}
	return start, end
}

func scanBEDUnion(scanner *bufio.Scanner, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	builder := newUnionBuilder()
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) > 0 && curLine[0] == '#' {
			continue
		}
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			err = fmt.Errorf("interval.scanBEDUnion: line %d has fewer tokens than expected", lineIdx)
			return
		}
		var parsedStart int
		if parsedStart, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
			return
		}
		parsedStart -= startSubtract
		if parsedStart < 0 {
			err = fmt.Errorf("interval.scanBEDUnion: negative start coordinate %s on line %d", tokens[1], lineIdx)
			return
		}
		var parsedEnd int
		if parsedEnd, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
			return
		}
		if (parsedEnd < parsedStart) || (parsedEnd >= PosTypeMax) {
			err = fmt.Errorf("interval.scanBEDUnion: invalid coordinate pair on line %d", lineIdx)
			return
		}
		start, end := PosType(parsedStart), PosType(parsedEnd)
		if end > start {
			start, end = pad(start, end, opts.Padding)
		}
		// string() copies; tokens point into the scanner's buffer.
		if err = builder.add(string(tokens[0]), start, end); err != nil {
			err = fmt.Errorf("%v (line %d)", err, lineIdx)
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	bedUnion = builder.finish()
	log.Printf("BED loaded, %d base(s) covered.", builder.totBases)
	return
}

// NewBEDUnion loads just the intervals from a sorted (by first coordinate)
// interval-BED, merging touching/overlapping intervals and eliminating empty
// ones in the process.  Lines starting with '#' are ignored.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (BEDUnion, error) {
	return scanBEDUnion(bufio.NewScanner(reader), opts)
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped input is detected from the path.
func NewBEDUnionFromPath(path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewBEDUnion(reader, opts)
}

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// SortEntries orders entries by chromosome name, then start, which is the
// order NewBEDUnionFromEntries requires.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ChrName != entries[j].ChrName {
			return entries[i].ChrName < entries[j].ChrName
		}
		return entries[i].Start0 < entries[j].Start0
	})
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosTypeMax - 1] is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.Start0 = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.ChrName = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	if end0 < start1 || end0 >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}

// NewBEDUnionFromEntries initializes a BEDUnion from a []Entry sorted by
// chromosome block, then start (see SortEntries).
func NewBEDUnionFromEntries(entries []Entry, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	builder := newUnionBuilder()
	for _, entry := range entries {
		if entry.Start0 < 0 {
			err = fmt.Errorf("interval.NewBEDUnionFromEntries: negative start coordinate")
			return
		}
		if (entry.End < entry.Start0) || (entry.End >= PosTypeMax) {
			err = fmt.Errorf("interval.NewBEDUnionFromEntries: invalid coordinate pair [%d, %d)", entry.Start0, entry.End)
			return
		}
		start, end := entry.Start0, entry.End
		if end > start {
			start, end = pad(start, end, opts.Padding)
		}
		if err = builder.add(entry.ChrName, start, end); err != nil {
			return
		}
	}
	bedUnion = builder.finish()
	return
}

// Union returns a BEDUnion covering every base of u and v.
func Union(u, v *BEDUnion) (BEDUnion, error) {
	var entries []Entry
	for _, src := range []*BEDUnion{u, v} {
		for name, intervals := range src.nameMap {
			for i := 0; i+1 < len(intervals); i += 2 {
				entries = append(entries, Entry{ChrName: name, Start0: intervals[i], End: intervals[i+1]})
			}
		}
	}
	SortEntries(entries)
	return NewBEDUnionFromEntries(entries, NewBEDOpts{})
}

// Clone returns a new BEDUnion which shares the interval set, but has its own
// search state.
func (u *BEDUnion) Clone() (bedUnion BEDUnion) {
	bedUnion.nameMap = u.nameMap
	return
}
