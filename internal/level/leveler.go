// Package level partitions a task set into ordered batches (levels) such that
// every task's in-set dependencies live in a strictly earlier batch. Cycles do
// not fail the run: the leveler breaks them by forcing the highest-priority
// blocked task into the next level and re-evaluating the rest.
package level

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/tandemgrid/internal/ctxlog"
	"github.com/vk/tandemgrid/internal/task"
)

// Level computes the execution levels for the given tasks.
//
// A task with no in-set dependencies sits at level 0; otherwise its level is
// 1 + the maximum level of its in-set dependencies (longest path from a
// source). Dependencies naming tasks absent from the set are treated as
// already satisfied. Within a level, tasks are sorted ascending by priority,
// then by ID, so the output is deterministic for a given input.
//
// Empty input yields no levels and no error. The only error condition is a
// malformed task list: a duplicate task ID.
func Level(ctx context.Context, tasks []task.Task) ([][]task.Task, error) {
	logger := ctxlog.FromContext(ctx)

	if len(tasks) == 0 {
		return nil, nil
	}

	byID := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		byID[t.ID] = t
	}

	// Deterministic resolution order: priority, then ID.
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		order = append(order, t.ID)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := byID[order[i]], byID[order[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	assigned := make(map[string]int, len(tasks))
	maxLevel := -1

	// resolve attempts a memoized longest-path computation for one task. It
	// reports false when a dependency cycle blocks the computation.
	var resolve func(id string, visiting map[string]bool) (int, bool)
	resolve = func(id string, visiting map[string]bool) (int, bool) {
		if lvl, ok := assigned[id]; ok {
			return lvl, true
		}
		if visiting[id] {
			return 0, false
		}
		visiting[id] = true
		defer delete(visiting, id)

		lvl := 0
		for _, dep := range byID[id].DependsOn {
			if _, present := byID[dep]; !present {
				continue // soft dependency: filtered out upstream, counts as satisfied
			}
			depLvl, ok := resolve(dep, visiting)
			if !ok {
				return 0, false
			}
			if depLvl+1 > lvl {
				lvl = depLvl + 1
			}
		}
		assigned[id] = lvl
		if lvl > maxLevel {
			maxLevel = lvl
		}
		return lvl, true
	}

	for len(assigned) < len(tasks) {
		progressed := false
		for _, id := range order {
			if _, done := assigned[id]; done {
				continue
			}
			if _, ok := resolve(id, make(map[string]bool)); ok {
				progressed = true
			}
		}
		if progressed {
			continue
		}

		// Every remaining task is blocked by a cycle. Force the one with the
		// lowest priority value into the next free level and re-evaluate;
		// this guarantees termination at the cost of the broken edge's order.
		var blocked []string
		for _, id := range order {
			if _, done := assigned[id]; !done {
				blocked = append(blocked, id)
			}
		}
		forced := blocked[0] // order is already (priority, ID) sorted
		assigned[forced] = maxLevel + 1
		maxLevel++
		logger.Warn("Dependency cycle broken by priority.",
			"task", forced,
			"level", assigned[forced],
			"blocked", blocked,
		)
	}

	levels := make([][]task.Task, maxLevel+1)
	for id, lvl := range assigned {
		levels[lvl] = append(levels[lvl], byID[id])
	}
	for _, lvl := range levels {
		sort.Slice(lvl, func(i, j int) bool {
			if lvl[i].Priority != lvl[j].Priority {
				return lvl[i].Priority < lvl[j].Priority
			}
			return lvl[i].ID < lvl[j].ID
		})
	}

	// Levels are contiguous: normal resolution places a task one past its
	// deepest dependency, and forcing always targets maxLevel+1, so every
	// index up to maxLevel is occupied.
	return levels, nil
}
