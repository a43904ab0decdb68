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
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/allelic/catalog"
	"github.com/grailbio/allelic/contamination"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/allelic/roh"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// evidenceRow is one line of the snpcheck and homozygous outputs.
type evidenceRow struct {
	Chrom      string  `tsv:"#CHROM"`
	Pos        int     `tsv:"POS"`
	Ref        string  `tsv:"REF"`
	Alt        string  `tsv:"ALT"`
	ReadDepth  uint32  `tsv:"READ_DEPTH"`
	RefSupport uint32  `tsv:"REF_SUPPORT"`
	AltSupport uint32  `tsv:"ALT_SUPPORT"`
	IndelCount uint32  `tsv:"INDEL_COUNT"`
	AltQuality float64 `tsv:"AVG_ALT_QUAL"`
}

// bafRow is one line of the B-allele frequency output.  The tumor columns
// are zero without a tumor sample.
type bafRow struct {
	Chrom           string  `tsv:"#CHROM"`
	Pos             int     `tsv:"POS"`
	NormalDepth     uint32  `tsv:"NORMAL_DEPTH"`
	NormalBAF       float64 `tsv:"NORMAL_BAF"`
	TumorDepth      uint32  `tsv:"TUMOR_DEPTH"`
	TumorRefSupport uint32  `tsv:"TUMOR_REF_SUPPORT"`
	TumorAltSupport uint32  `tsv:"TUMOR_ALT_SUPPORT"`
	TumorBAF        float64 `tsv:"TUMOR_BAF"`
	TumorAltQuality float64 `tsv:"TUMOR_AVG_ALT_QUAL"`
}

type regionRow struct {
	Chrom      string `tsv:"#CHROM"`
	Start      int    `tsv:"START"`
	End        int    `tsv:"END"`
	Length     int    `tsv:"LENGTH"`
	SnpCount   int    `tsv:"SNP_COUNT"`
	NumHom     int    `tsv:"HOM_COUNT"`
	NumHet     int    `tsv:"HET_COUNT"`
	NumUnclear int    `tsv:"UNCLEAR_COUNT"`
	Filter     string `tsv:"FILTER"`
}

type contaminationRow struct {
	Chrom           string `tsv:"#CHROM"`
	Pos             int    `tsv:"POS"`
	NormalDepth     int    `tsv:"NORMAL_DEPTH"`
	TumorDepth      int    `tsv:"TUMOR_DEPTH"`
	TumorAltSupport int    `tsv:"TUMOR_ALT_SUPPORT"`
}

type qcRow struct {
	Key   string `tsv:"KEY"`
	Value string `tsv:"VALUE"`
}

// qcValues are the summary values of a run.
type qcValues struct {
	medianDepth   float64
	nHomozygous   int
	nHeterozygous int
	consanguinity float64
	upd           string
	hasUPD        bool
	hasTumor      bool
	contamination float64
}

func (q qcValues) rows() []qcRow {
	upd := "NONE"
	if q.hasUPD {
		upd = q.upd
	}
	rows := []qcRow{
		{"MEDIAN_DEPTH", formatFloat(q.medianDepth)},
		{"HOMOZYGOUS_SITES", formatInt(q.nHomozygous)},
		{"HETEROZYGOUS_SITES", formatInt(q.nHeterozygous)},
		{"CONSANGUINITY_PROPORTION", formatFloat(q.consanguinity)},
		{"UNIPARENTAL_DISOMY", upd},
	}
	if q.hasTumor {
		rows = append(rows, qcRow{"CONTAMINATION", formatFloat(q.contamination)})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

// writeTSV creates path and hands fn a RowWriter over it.  Paths ending in
// ".gz" are bgzf-compressed.
func writeTSV(ctx context.Context, path string, parallelism int, fn func(w *tsv.RowWriter) error) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)

	var out io.Writer = dst.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		bgzfWriter := bgzf.NewWriter(out, parallelism)
		defer func() {
			if e := bgzfWriter.Close(); e != nil && err == nil {
				err = e
			}
		}()
		out = bgzfWriter
	}
	w := tsv.NewRowWriter(out)
	if err = fn(w); err != nil {
		return errors.E(err, "write", path)
	}
	if err = w.Flush(); err != nil {
		return errors.E(err, "write", path)
	}
	log.Printf("wrote %s", path)
	return nil
}

// writeCatalog records the sites that are scanned, after the snpcheck merge
// and the region restriction, in the format catalog.Read accepts.
func writeCatalog(ctx context.Context, path string, cat *catalog.Catalog) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if err = catalog.Write(dst.Writer(ctx), cat); err != nil {
		return errors.E(err, "write", path)
	}
	log.Printf("wrote %s", path)
	return nil
}

func writeEvidence(ctx context.Context, path string, parallelism int, set *evidence.Set) error {
	return writeTSV(ctx, path, parallelism, func(w *tsv.RowWriter) (err error) {
		set.Each(func(e *evidence.PositionEvidence) {
			if err != nil {
				return
			}
			err = w.Write(&evidenceRow{
				Chrom:      e.Chrom,
				Pos:        e.Pos,
				Ref:        string(e.Ref),
				Alt:        string(e.Alt),
				ReadDepth:  e.ReadDepth,
				RefSupport: e.RefSupport,
				AltSupport: e.AltSupport,
				IndelCount: e.IndelCount,
				AltQuality: e.AvgAltQuality(),
			})
		})
		return err
	})
}

// writeBAF writes the heterozygous sites of het, joined with the matching
// sites of tumor when it is not nil.
func writeBAF(ctx context.Context, path string, parallelism int, het, tumor *evidence.Set) error {
	tumorByIdx := map[int]*evidence.PositionEvidence{}
	if tumor != nil {
		tumor.Each(func(e *evidence.PositionEvidence) { tumorByIdx[e.CatalogIdx] = e })
	}
	return writeTSV(ctx, path, parallelism, func(w *tsv.RowWriter) (err error) {
		het.Each(func(e *evidence.PositionEvidence) {
			if err != nil {
				return
			}
			row := bafRow{
				Chrom:       e.Chrom,
				Pos:         e.Pos,
				NormalDepth: e.ReadDepth,
				NormalBAF:   e.BAF(),
			}
			if t, ok := tumorByIdx[e.CatalogIdx]; ok {
				row.TumorDepth = t.ReadDepth
				row.TumorRefSupport = t.RefSupport
				row.TumorAltSupport = t.AltSupport
				row.TumorBAF = t.BAF()
				row.TumorAltQuality = t.AvgAltQuality()
			}
			err = w.Write(&row)
		})
		return err
	})
}

func writeRegions(ctx context.Context, path string, regions []roh.Region, opts roh.Opts) error {
	return writeTSV(ctx, path, 1, func(w *tsv.RowWriter) error {
		for _, r := range regions {
			row := regionRow{
				Chrom:      r.Chrom,
				Start:      r.Start,
				End:        r.End,
				Length:     r.Length(),
				SnpCount:   r.SnpCount(),
				NumHom:     r.NumHom,
				NumHet:     r.NumHet,
				NumUnclear: r.NumUnclear,
				Filter:     r.Filter(opts),
			}
			if err := w.Write(&row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeContaminationSites(ctx context.Context, path string, sites []contamination.Site) error {
	return writeTSV(ctx, path, 1, func(w *tsv.RowWriter) error {
		for _, s := range sites {
			row := contaminationRow{
				Chrom:           s.Chrom,
				Pos:             s.Pos,
				NormalDepth:     s.NormalDepth,
				TumorDepth:      s.TumorDepth,
				TumorAltSupport: s.TumorAltSupport,
			}
			if err := w.Write(&row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeQC(ctx context.Context, path string, q qcValues) error {
	return writeTSV(ctx, path, 1, func(w *tsv.RowWriter) error {
		for _, row := range q.rows() {
			if err := w.Write(&row); err != nil {
				return err
			}
		}
		return nil
	})
}
