package catalog

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Row is one line of a catalog TSV.  Columns are matched by header name.
type Row struct {
	Chrom string `tsv:"#CHROM"`
	Pos   int    `tsv:"POS"`
	Ref   string `tsv:"REF"`
	Alt   string `tsv:"ALT"`
	// Panel is 0 or 1.
	Panel int `tsv:"PANEL"`
}

// siteRow is a Row for catalogs without a PANEL column.
type siteRow struct {
	Chrom string `tsv:"#CHROM"`
	Pos   int    `tsv:"POS"`
	Ref   string `tsv:"REF"`
	Alt   string `tsv:"ALT"`
}

const panelColumn = "PANEL"

// hasColumn reports whether the tab-separated header line names col.
func hasColumn(header, col string) bool {
	for _, name := range strings.Split(strings.TrimRight(header, "\r\n"), "\t") {
		if name == col {
			return true
		}
	}
	return false
}

func parseBase(s string) (byte, error) {
	if len(s) != 1 {
		return 0, errors.Errorf("expected a single base, got %q", s)
	}
	switch b := s[0] &^ 0x20; b {
	case 'A', 'C', 'G', 'T', 'N':
		return b, nil
	}
	return 0, errors.Errorf("invalid base %q", s)
}

func (r *Row) entry() (Entry, error) {
	e := Entry{Chrom: r.Chrom, Pos: r.Pos, Panel: r.Panel != 0}
	var err error
	if e.Ref, err = parseBase(r.Ref); err != nil {
		return e, errors.Wrap(err, "REF")
	}
	if e.Alt, err = parseBase(r.Alt); err != nil {
		return e, errors.Wrap(err, "ALT")
	}
	return e, nil
}

// Read parses a catalog TSV with header #CHROM POS REF ALT and an optional
// PANEL column; without it no site is a panel site.  Rows must be grouped by
// chromosome and sorted by position.
func Read(r io.Reader) (*Catalog, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "catalog.Read: header")
	}
	withPanel := hasColumn(header, panelColumn)
	tsvReader := tsv.NewReader(io.MultiReader(strings.NewReader(header), br))
	tsvReader.HasHeaderRow = true
	tsvReader.UseHeaderNames = true
	var entries []Entry
	for line := 2; ; line++ {
		var row Row
		if withPanel {
			err = tsvReader.Read(&row)
		} else {
			var site siteRow
			err = tsvReader.Read(&site)
			row = Row{Chrom: site.Chrom, Pos: site.Pos, Ref: site.Ref, Alt: site.Alt}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "catalog.Read: row %d", line)
		}
		e, err := row.entry()
		if err != nil {
			return nil, errors.Wrapf(err, "catalog.Read: row %d (%s:%d)", line, row.Chrom, row.Pos)
		}
		entries = append(entries, e)
	}
	return New(entries)
}

// ReadFile reads a (possibly gzipped) catalog TSV from path.
func ReadFile(ctx context.Context, path string) (c *Catalog, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog.ReadFile: open %s", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var reader io.Reader = in.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog.ReadFile: %s", path)
		}
		defer gz.Close()
		reader = gz
	}
	if c, err = Read(reader); err != nil {
		return nil, errors.Wrap(err, path)
	}
	log.Printf("catalog: loaded %d site(s) on %d chromosome(s) from %s", c.Len(), len(c.chroms), path)
	return c, nil
}

// Write emits the catalog in the format accepted by Read.
func Write(w io.Writer, c *Catalog) error {
	tsvWriter := tsv.NewRowWriter(w)
	for _, chrom := range c.chroms {
		for _, e := range chrom.Entries {
			row := Row{Chrom: e.Chrom, Pos: e.Pos, Ref: string(e.Ref), Alt: string(e.Alt)}
			if e.Panel {
				row.Panel = 1
			}
			if err := tsvWriter.Write(&row); err != nil {
				return err
			}
		}
	}
	return tsvWriter.Flush()
}

// ChromosomeNames returns the chromosome names in catalog order.
func (c *Catalog) ChromosomeNames() []string {
	names := make([]string, len(c.chroms))
	for i, chrom := range c.chroms {
		names[i] = chrom.Name
	}
	return names
}

// String summarizes the catalog for log messages.
func (c *Catalog) String() string {
	return "catalog{" + strings.Join(c.ChromosomeNames(), ",") + "}"
}
