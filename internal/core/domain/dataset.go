package domain

import "time"

// Dataset is a named, uploaded collection of points held in storage.
type Dataset struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	PointCount int       `json:"point_count"`
	Extent     *Bounds   `json:"extent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// CandidatePolicy describes how the candidate resolution sequence for a job
// is generated, coarsest first.
type CandidatePolicy struct {
	// StartCellSize is the coarsest candidate cell size in degrees
	// (square cells).
	StartCellSize float64 `json:"start_cell_size"`
	// MaxHalvings bounds the sequence: each step halves the cell size.
	MaxHalvings int `json:"max_halvings"`
	// Resolutions, when non-empty, overrides the halving policy with an
	// explicit list, ordered coarsest to finest.
	Resolutions []GridResolution `json:"resolutions,omitempty"`
}

// AnonymisationJob is one requested run of the resolution search over a
// dataset.
type AnonymisationJob struct {
	ID          string          `json:"id"`
	DatasetID   string          `json:"dataset_id"`
	MinPoints   int             `json:"min_points"`
	Tolerance   int             `json:"tolerance"`
	Policy      CandidatePolicy `json:"policy"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// JobEvent is published on the message broker when a job finishes.
type JobEvent struct {
	JobID     string      `json:"job_id"`
	DatasetID string      `json:"dataset_id"`
	Status    string      `json:"status"`
	Reason    string      `json:"reason,omitempty"`
	Result    *GridResult `json:"result,omitempty"`
	Time      time.Time   `json:"time"`
}
