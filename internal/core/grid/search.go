package grid

import (
	"github.com/samirrijal/gridveil/internal/core/domain"
)

// FindFinestGrid walks the candidate resolutions coarsest to finest and
// returns the result at the finest candidate whose discarded-point count
// stays within the tolerance.
//
// The acceptance predicate is monotone non-increasing in coarseness:
// merging cells can only grow cell populations, never shrink them. The
// search therefore accepts candidates until the first rejection and stops
// there; if the very first candidate is rejected (or the sequence is
// empty), no grid satisfies the tolerance and a NoSolutionError carrying
// the coarsest-tested discard count is returned.
//
// The walk is strictly sequential and fully deterministic: identical
// inputs always converge on the identical resolution, and equally fine
// candidates resolve first-wins in the sequence's own order.
func FindFinestGrid(ps *domain.PointSet, minPoints, tolerance int, candidates CandidateSource) (*domain.GridResult, error) {
	if tolerance < 0 {
		return nil, &domain.InvalidParameterError{Name: "tolerance", Value: float64(tolerance)}
	}

	var accepted *domain.Evaluation
	for {
		res, ok := candidates.Next()
		if !ok {
			break
		}

		ev, err := Evaluate(ps, res, minPoints)
		if err != nil {
			return nil, err
		}

		if ev.DiscardedCount > tolerance {
			if accepted == nil {
				return nil, &domain.NoSolutionError{CoarsestDiscarded: ev.DiscardedCount}
			}
			// All finer candidates are assumed no better.
			break
		}
		accepted = &ev
	}

	if accepted == nil {
		return nil, &domain.NoSolutionError{}
	}
	return Materialise(ps, *accepted, minPoints), nil
}
