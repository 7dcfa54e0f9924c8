package domain

import "fmt"

// DuplicateIDError reports a repeated record id in the input data.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate point id %q", e.ID)
}

// OutOfRangeError reports a coordinate outside the valid lon/lat domain.
type OutOfRangeError struct {
	ID        string
	Longitude float64
	Latitude  float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("point %q has out-of-range coordinates (%.6f, %.6f)", e.ID, e.Longitude, e.Latitude)
}

// InvalidParameterError reports a non-positive search parameter or cell size.
// The caller owns the fix; nothing is substituted silently.
type InvalidParameterError struct {
	Name  string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%g", e.Name, e.Value)
}

// NoSolutionError is an algorithmic outcome, not a bug: no candidate
// resolution satisfied the tolerance, even the coarsest one tested.
// CoarsestDiscarded carries the discard count at the coarsest candidate
// for diagnostics.
type NoSolutionError struct {
	CoarsestDiscarded int
}

func (e *NoSolutionError) Error() string {
	return fmt.Sprintf("no grid satisfies the tolerance (coarsest candidate would discard %d points)", e.CoarsestDiscarded)
}
