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
package scan

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grailbio/allelic/encoding/bamprovider"
	"github.com/grailbio/allelic/pileup"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Opts controls Scan.
type Opts struct {
	// Parallelism is the number of worker goroutines.  Each holds its own
	// iterator, hence its own file handle.
	Parallelism int
	// MinMappingQuality is the minimum MAPQ of a counted record.
	MinMappingQuality int
	// MinBaseQuality is the minimum quality of a counted base.
	MinBaseQuality int
	Plan           PlanOpts
	// ProgressInterval is the period of the progress log line.
	ProgressInterval time.Duration
}

// DefaultOpts is the default scan configuration for a local BAM.
var DefaultOpts = Opts{
	Parallelism:       1,
	MinMappingQuality: 1,
	MinBaseQuality:    13,
	Plan: PlanOpts{
		MinGap:   LowLatencyMinGap,
		MaxTasks: DefaultMaxTasks,
	},
	ProgressInterval: 30 * time.Second,
}

// Scan accumulates the evidence of every site of set from the records of
// provider.  It blocks until every task has run.  If any task fails, the
// first error is returned and the contents of set must be discarded.
func Scan(provider bamprovider.Provider, set *evidence.Set, opts Opts) error {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultOpts.ProgressInterval
	}
	header, err := provider.GetHeader()
	if err != nil {
		return errors.E(err, "scan: read header")
	}
	nFound := 0
	for _, chrom := range set.Chromosomes {
		if bamprovider.RefByName(header, chrom.Name) == nil {
			log.Printf("scan: chromosome %s is absent from the alignment header; its %d site(s) get no evidence",
				chrom.Name, len(chrom.Sites))
			continue
		}
		nFound++
	}
	if nFound == 0 && len(set.Chromosomes) > 0 {
		return errors.E(errors.NotExist,
			fmt.Sprintf("scan: none of the %d catalog chromosome(s) appear in the alignment header (chr prefix mismatch?)",
				len(set.Chromosomes)))
	}
	tasks, err := Plan(set, opts.Plan)
	if err != nil {
		return err
	}

	taskCh := make(chan Task, len(tasks))
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	var (
		wg     sync.WaitGroup
		errRep errors.Once
		nDone  int64
	)
	minBaseQual := byte(opts.MinBaseQuality)
	log.Debug.Printf("scan: creating %d workers for %d tasks", opts.Parallelism, len(tasks))
	t0 := time.Now()
	for i := 0; i < opts.Parallelism; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for task := range taskCh {
				if errRep.Err() != nil {
					// Drain without work once any task failed.
					continue
				}
				sites := set.Chromosomes[task.ChromIdx].Sites[task.Lo:task.Hi]
				if err := scanTask(provider, task, sites, opts.MinMappingQuality, minBaseQual); err != nil {
					errRep.Set(errors.E(err, "scan task", task.String()))
					continue
				}
				atomic.AddInt64(&nDone, 1)
			}
			log.Debug.Printf("scan: worker %d done", worker)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	ticker := time.NewTicker(opts.ProgressInterval)
	defer ticker.Stop()
	for waiting := true; waiting; {
		select {
		case <-done:
			waiting = false
		case <-ticker.C:
			log.Printf("scan: %d/%d tasks done", atomic.LoadInt64(&nDone), len(tasks))
		}
	}
	if err := errRep.Err(); err != nil {
		return err
	}
	log.Printf("scan: %d site(s) in %d task(s) done in %v", set.Len(), len(tasks), time.Since(t0))
	return nil
}

// scanTask routes every counted record overlapping the task's region to the
// sites it covers.  Records arrive sorted by start, so the first candidate
// site only moves forward.
func scanTask(provider bamprovider.Provider, task Task, sites []evidence.PositionEvidence, minMapQ int, minBaseQual byte) error {
	iter := provider.NewIterator(task.Region())
	lo := 0
	for iter.Scan() {
		rec := iter.Record()
		if !pileup.IsCountable(rec, minMapQ) {
			continue
		}
		// Sites are 1-based; the record covers 1-based (rec.Pos, rec.End()].
		recPos, recEnd := rec.Pos, rec.End()
		rest := sites[lo:]
		lo += sort.Search(len(rest), func(i int) bool { return rest[i].Pos > recPos })
		for i := lo; i < len(sites) && sites[i].Pos <= recEnd; i++ {
			evidence.AddEvidence(&sites[i], rec, minBaseQual)
		}
	}
	return iter.Close()
}
