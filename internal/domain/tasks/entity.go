package tasks

import (
	"time"

	"github.com/reviewhub/code-review-agent/internal/domain/review"
)

// TaskID identifier type
type TaskID string

// Status enum. Transitions are monotonic: a terminal status is never left.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusProgress Status = "PROGRESS"
	StatusRetry    Status = "RETRY"
	StatusSuccess  Status = "SUCCESS"
	StatusFailure  Status = "FAILURE"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// CanTransition encodes the task state machine:
//
//	PENDING  -> PROGRESS
//	PROGRESS -> SUCCESS | FAILURE | RETRY
//	RETRY    -> PROGRESS
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProgress
	case StatusProgress:
		return to == StatusSuccess || to == StatusFailure || to == StatusRetry
	case StatusRetry:
		return to == StatusProgress
	}
	return false
}

// Aggregate root: AnalysisTask. Owned by the orchestrator and mutated only
// by the worker currently holding the task.
type AnalysisTask struct {
	ID       TaskID `json:"id"`
	RepoURL  string `json:"repo_url"`
	PRNumber int    `json:"pr_number"`
	// AccessToken travels with the record so a worker on another node can
	// use it; the HTTP layer never echoes it back to callers.
	AccessToken string                 `json:"access_token,omitempty"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Attempts    int                    `json:"attempts"`
	Result      *review.AnalysisResult `json:"result,omitempty"`
	Error       *ErrorDescriptor       `json:"error,omitempty"`
	// LastError keeps the most recent attempt error for diagnostics even
	// when a later attempt succeeds.
	LastError *ErrorDescriptor `json:"last_error,omitempty"`
	ReportURL string           `json:"report_url,omitempty"`
}

// Transition moves the task to a new status, enforcing monotonicity.
func (t *AnalysisTask) Transition(to Status, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return &ErrorDescriptor{
			Kind:      KindInternal,
			Message:   "illegal transition " + string(t.Status) + " -> " + string(to),
			Component: "orchestrator",
		}
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// Complete attaches the result and moves the task to SUCCESS.
func (t *AnalysisTask) Complete(res *review.AnalysisResult, now time.Time) error {
	if err := t.Transition(StatusSuccess, now); err != nil {
		return err
	}
	t.Result = res
	t.Error = nil
	return nil
}

// Fail attaches the error descriptor and moves the task to FAILURE.
func (t *AnalysisTask) Fail(desc *ErrorDescriptor, now time.Time) error {
	if err := t.Transition(StatusFailure, now); err != nil {
		return err
	}
	t.Result = nil
	t.Error = desc
	t.LastError = desc
	return nil
}
