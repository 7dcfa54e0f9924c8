// Package grid implements the grid-resolution search at the heart of
// gridveil: given a point set, find the finest uniform grid in which every
// occupied cell holds at least a minimum number of points, optionally
// discarding a bounded number of points to get there.
package grid

import (
	"github.com/samirrijal/gridveil/internal/core/domain"
)

// Evaluate assigns every point of ps to a cell at the given resolution and
// reports per-cell counts plus the number of points in under-populated
// cells. It is a pure function: no state, no side effects, linear in the
// number of points.
func Evaluate(ps *domain.PointSet, res domain.GridResolution, minPoints int) (domain.Evaluation, error) {
	if minPoints <= 0 {
		return domain.Evaluation{}, &domain.InvalidParameterError{Name: "min_points", Value: float64(minPoints)}
	}
	if res.CellWidth <= 0 {
		return domain.Evaluation{}, &domain.InvalidParameterError{Name: "cell_width", Value: res.CellWidth}
	}
	if res.CellHeight <= 0 {
		return domain.Evaluation{}, &domain.InvalidParameterError{Name: "cell_height", Value: res.CellHeight}
	}

	counts := make(map[domain.Cell]int)
	for i := 0; i < ps.Len(); i++ {
		counts[domain.CellFor(ps.At(i), res)]++
	}

	discarded := 0
	for _, c := range counts {
		if c < minPoints {
			discarded += c
		}
	}

	return domain.Evaluation{
		Resolution:     res,
		CellCounts:     counts,
		DiscardedCount: discarded,
	}, nil
}

// Materialise turns an accepted evaluation into the published result:
// the id→cell assignment for every retained point, and the ids excluded
// because their cell held fewer than minPoints. Points are walked in the
// set's insertion order, so the discard list is reproducible.
func Materialise(ps *domain.PointSet, ev domain.Evaluation, minPoints int) *domain.GridResult {
	result := &domain.GridResult{
		Resolution:  ev.Resolution,
		Discarded:   []string{},
		Assignments: make(map[string]domain.Cell, ps.Len()),
		CellCounts:  make(map[domain.Cell]int, len(ev.CellCounts)),
	}
	for i := 0; i < ps.Len(); i++ {
		p := ps.At(i)
		cell := domain.CellFor(p, ev.Resolution)
		if ev.CellCounts[cell] < minPoints {
			result.Discarded = append(result.Discarded, p.ID)
			continue
		}
		result.Assignments[p.ID] = cell
		result.CellCounts[cell]++
	}
	return result
}
