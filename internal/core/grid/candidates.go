package grid

import "github.com/samirrijal/gridveil/internal/core/domain"

// CandidateSource produces candidate resolutions, ordered coarsest first.
// The search treats it as opaque: it does not prescribe the step function,
// only the ordering.
type CandidateSource interface {
	// Next returns the next candidate, or ok=false when the sequence is
	// exhausted.
	Next() (domain.GridResolution, bool)
}

// HalvingSource halves the cell size at each step, starting from a coarsest
// square cell, for a bounded number of steps.
type HalvingSource struct {
	next  domain.GridResolution
	steps int
}

// NewHalvingSource returns a source yielding startCellSize, startCellSize/2,
// startCellSize/4, ... for steps candidates in total.
func NewHalvingSource(startCellSize float64, steps int) *HalvingSource {
	return &HalvingSource{
		next:  domain.GridResolution{CellWidth: startCellSize, CellHeight: startCellSize},
		steps: steps,
	}
}

func (s *HalvingSource) Next() (domain.GridResolution, bool) {
	if s.steps <= 0 {
		return domain.GridResolution{}, false
	}
	s.steps--
	res := s.next
	s.next = domain.GridResolution{CellWidth: res.CellWidth / 2, CellHeight: res.CellHeight / 2}
	return res, true
}

// ListSource yields an explicit, caller-ordered list of resolutions.
type ListSource struct {
	resolutions []domain.GridResolution
	i           int
}

// NewListSource copies the given resolutions; the caller is responsible for
// ordering them coarsest to finest.
func NewListSource(resolutions []domain.GridResolution) *ListSource {
	rs := make([]domain.GridResolution, len(resolutions))
	copy(rs, resolutions)
	return &ListSource{resolutions: rs}
}

func (s *ListSource) Next() (domain.GridResolution, bool) {
	if s.i >= len(s.resolutions) {
		return domain.GridResolution{}, false
	}
	res := s.resolutions[s.i]
	s.i++
	return res, true
}

// SourceForPolicy builds a CandidateSource from a job's stored policy. An
// explicit resolution list wins over the halving parameters.
func SourceForPolicy(p domain.CandidatePolicy) CandidateSource {
	if len(p.Resolutions) > 0 {
		return NewListSource(p.Resolutions)
	}
	return NewHalvingSource(p.StartCellSize, p.MaxHalvings)
}
