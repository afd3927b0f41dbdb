package export

import (
	"demoreport/internal/workbook"
)

// Status is the outcome of a run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Result is the outcome of Generate. Workbook is set only when Status is
// StatusCompleted; Err only when it is not.
type Result struct {
	Status   Status
	Workbook *workbook.Workbook
	Err      error
	// Warnings are failures that did not stop the run, such as a cache
	// write that did not persist
	Warnings []error
	// Run is a snapshot of the run state when Generate returned
	Run *RunState
}

// OK reports whether the run completed
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusCompleted
}
