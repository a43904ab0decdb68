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

// Package scan fills evidence sets from alignment files.  Plan splits a set
// into region tasks; Scan runs the tasks on a pool of goroutines, each with
// its own iterator.
package scan

import (
	"fmt"

	"github.com/grailbio/allelic/encoding/bamprovider"
	"github.com/grailbio/allelic/pileup/evidence"
	"github.com/grailbio/base/log"
)

const (
	// LowLatencyMinGap is the default minimum gap for local files, where a
	// seek is cheap compared with reading through the gap.
	LowLatencyMinGap = 1000
	// HighLatencyMinGap is the default minimum gap for files on remote object
	// stores.
	HighLatencyMinGap = 10000
	// DefaultMaxTasks is the default task-count ceiling.
	DefaultMaxTasks = 10000
)

// DefaultMinGap returns the minimum gap suited to the file's seek cost.
func DefaultMinGap(highLatency bool) int {
	if highLatency {
		return HighLatencyMinGap
	}
	return LowLatencyMinGap
}

// PlanOpts controls Plan.
type PlanOpts struct {
	// MinGap is the distance between consecutive sites, in bases, from which
	// a new task is started.
	MinGap int
	// MaxTasks is the task-count ceiling.  When a pass produces more tasks,
	// MinGap is doubled and the pass is rerun.  Values <= 0 mean
	// DefaultMaxTasks.
	MaxTasks int
	// FixedGap disables the MinGap adjustment.
	FixedGap bool
}

// Task is a genomic interval and the range of sites it owns.
type Task struct {
	// ChromIdx indexes evidence.Set.Chromosomes.
	ChromIdx int
	Chrom    string
	// Start and End are the 1-based positions of the first and last site.
	Start, End int
	// Lo and Hi delimit the task's sites, Sites[Lo:Hi].
	Lo, Hi int
}

// Region returns the 0-based, half-open region covering the task's sites.
func (t Task) Region() bamprovider.Region {
	return bamprovider.Region{Chrom: t.Chrom, Start: t.Start - 1, End: t.End}
}

func (t Task) String() string {
	return fmt.Sprintf("%s:%d-%d[%d:%d]", t.Chrom, t.Start, t.End, t.Lo, t.Hi)
}

// Plan partitions the sites of set into tasks.  Each chromosome is swept left
// to right; a site joins the current task when it lies less than MinGap bases
// past the task's last site, else it starts a new task.  Every site belongs
// to exactly one task.  Plan fails if positions within a chromosome are not
// strictly increasing.
func Plan(set *evidence.Set, opts PlanOpts) ([]Task, error) {
	if opts.MinGap <= 0 {
		return nil, fmt.Errorf("scan.Plan: MinGap must be positive, got %d", opts.MinGap)
	}
	if opts.MaxTasks <= 0 {
		opts.MaxTasks = DefaultMaxTasks
	}
	// One task per non-empty chromosome is the floor.
	minTasks := 0
	for _, chrom := range set.Chromosomes {
		if len(chrom.Sites) > 0 {
			minTasks++
		}
	}
	minGap := opts.MinGap
	for {
		tasks, err := planPass(set, minGap)
		if err != nil {
			return nil, err
		}
		if len(tasks) <= opts.MaxTasks || opts.FixedGap || len(tasks) <= minTasks {
			log.Debug.Printf("scan.Plan: %d task(s), min gap %d", len(tasks), minGap)
			return tasks, nil
		}
		log.Debug.Printf("scan.Plan: %d tasks exceed %d at min gap %d, retrying", len(tasks), opts.MaxTasks, minGap)
		minGap *= 2
	}
}

func planPass(set *evidence.Set, minGap int) ([]Task, error) {
	var tasks []Task
	for ci, chrom := range set.Chromosomes {
		sites := chrom.Sites
		if len(sites) == 0 {
			continue
		}
		cur := Task{ChromIdx: ci, Chrom: chrom.Name, Start: sites[0].Pos, End: sites[0].Pos, Lo: 0}
		for i := 1; i < len(sites); i++ {
			pos := sites[i].Pos
			if pos <= sites[i-1].Pos {
				return nil, fmt.Errorf("scan.Plan: unsorted input on chromosome %s (position %d after %d)",
					chrom.Name, pos, sites[i-1].Pos)
			}
			if pos-cur.End < minGap {
				cur.End = pos
				continue
			}
			cur.Hi = i
			tasks = append(tasks, cur)
			cur = Task{ChromIdx: ci, Chrom: chrom.Name, Start: pos, End: pos, Lo: i}
		}
		cur.Hi = len(sites)
		tasks = append(tasks, cur)
	}
	return tasks, nil
}
