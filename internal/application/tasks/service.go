package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reviewhub/code-review-agent/internal/application"
	"github.com/reviewhub/code-review-agent/internal/application/analysis"
	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
	"github.com/reviewhub/code-review-agent/internal/domain/review"
	domain "github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

const defaultTaskTimeout = 10 * time.Minute

// Service implements the job orchestrator: it owns task identity, the
// state machine, the retry policy and the task record. Safe for
// concurrent use.
type Service struct {
	Store    domain.Store
	Queue    domain.Queue
	Provider gitrepo.Provider
	Engine   *analysis.Engine
	Clock    application.Clock

	// Optional collaborators
	Archive domain.Archive
	Reports domain.ReportStore

	Retry       *RetryPolicy
	TaskTimeout time.Duration

	// Counter hooks, all optional. Wired to the metrics package at startup
	// so this layer stays free of HTTP concerns.
	OnSubmitted func()
	OnSucceeded func()
	OnFailed    func()
	OnRetry     func()
}

func fire(hook func()) {
	if hook != nil {
		hook()
	}
}

// Submit validates the repository reference, persists a new PENDING task
// and enqueues it. It returns the id immediately without waiting for
// processing; the task is visible to readers as soon as it is persisted.
func (s *Service) Submit(ctx context.Context, repoURL string, prNumber int, token string) (domain.TaskID, error) {
	if _, err := gitrepo.ParseRef(repoURL); err != nil {
		return "", err
	}
	if prNumber <= 0 {
		return "", &gitrepo.ValidationError{Field: "pr_number", Message: "must be positive"}
	}

	now := s.Clock.Now()
	task := &domain.AnalysisTask{
		ID:          domain.TaskID(uuid.New().String()),
		RepoURL:     repoURL,
		PRNumber:    prNumber,
		AccessToken: token,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Put(ctx, task); err != nil {
		return "", fmt.Errorf("persisting task: %w", err)
	}
	if err := s.Queue.Enqueue(ctx, task.ID); err != nil {
		return "", fmt.Errorf("enqueueing task: %w", err)
	}
	fire(s.OnSubmitted)
	return task.ID, nil
}

// Status returns the current status of a task.
func (s *Service) Status(ctx context.Context, id domain.TaskID) (domain.Status, error) {
	task, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return task.Status, nil
}

// Result returns the full task record, including result or error once the
// task is terminal. Unknown or expired ids yield domain.ErrNotFound.
func (s *Service) Result(ctx context.Context, id domain.TaskID) (*domain.AnalysisTask, error) {
	return s.Store.Get(ctx, id)
}

// Latest lists archived terminal tasks, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.AnalysisTask, error) {
	if s.Archive == nil {
		return []*domain.AnalysisTask{}, nil
	}
	return s.Archive.Latest(ctx, limit)
}

// RunWorkers consumes the queue with n parallel workers until ctx is
// cancelled. Each task is processed by exactly one worker at a time; a
// crashed worker causes redelivery, which process treats as a new attempt
// under the same retry budget.
func (s *Service) RunWorkers(ctx context.Context, n int) {
	if n <= 0 {
		n = 4
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				id, ack, err := s.Queue.Dequeue(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("worker=%d dequeue error: %v", worker, err)
					continue
				}
				s.process(ctx, id)
				ack()
			}
		}(i)
	}
	wg.Wait()
}

// process runs one task to a terminal state.
func (s *Service) process(ctx context.Context, id domain.TaskID) {
	task, err := s.Store.Get(ctx, id)
	if err != nil {
		// Evicted past retention before a worker got to it; nothing to do.
		log.Printf("task=%s dropped: %v", id, err)
		return
	}
	if task.Status.Terminal() {
		// Redelivery after completion, e.g. an ack lost in a crash.
		return
	}

	timeout := s.TaskTimeout
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	policy := s.Retry
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	for {
		// A redelivered task can already be in PROGRESS; that counts as a
		// fresh attempt against the same budget.
		if task.Status != domain.StatusProgress {
			if err := task.Transition(domain.StatusProgress, s.Clock.Now()); err != nil {
				log.Printf("task=%s %v", task.ID, err)
				return
			}
		}
		task.Attempts++
		s.put(tctx, task)

		res, attemptErr := s.runAttempt(tctx, task)
		if attemptErr == nil {
			if err := task.Complete(res, s.Clock.Now()); err != nil {
				log.Printf("task=%s %v", task.ID, err)
				return
			}
			s.finish(ctx, task)
			return
		}

		desc := describeFailure(attemptErr)
		task.LastError = desc

		if tctx.Err() != nil {
			// Wall-clock timeout: force FAILURE and discard whatever the
			// in-flight calls would have produced.
			s.fail(ctx, task, &domain.ErrorDescriptor{
				Kind:      domain.KindTimeout,
				Message:   fmt.Sprintf("task exceeded %s deadline", timeout),
				Component: "orchestrator",
			})
			return
		}
		if !recoverable(attemptErr) || task.Attempts >= policy.maxAttempts() {
			s.fail(ctx, task, desc)
			return
		}

		if err := task.Transition(domain.StatusRetry, s.Clock.Now()); err != nil {
			log.Printf("task=%s %v", task.ID, err)
			return
		}
		s.put(tctx, task)

		fire(s.OnRetry)
		backoff := policy.Backoff(task.Attempts)
		log.Printf("task=%s attempt=%d retrying in %s: %v", task.ID, task.Attempts, backoff, attemptErr)
		select {
		case <-tctx.Done():
			// The deadline fired mid-backoff, so the task still sits in
			// RETRY. Step it back to PROGRESS first; FAILURE is only
			// reachable from there.
			if err := task.Transition(domain.StatusProgress, s.Clock.Now()); err != nil {
				log.Printf("task=%s %v", task.ID, err)
			}
			s.fail(ctx, task, &domain.ErrorDescriptor{
				Kind:      domain.KindTimeout,
				Message:   fmt.Sprintf("task exceeded %s deadline", timeout),
				Component: "orchestrator",
			})
			return
		case <-time.After(backoff):
		}
	}
}

// runAttempt performs one fetch+analyze pass. The provider call is the
// only failure source here: the engine degrades internally and never
// returns an error.
func (s *Service) runAttempt(ctx context.Context, task *domain.AnalysisTask) (*review.AnalysisResult, error) {
	ref, err := gitrepo.ParseRef(task.RepoURL)
	if err != nil {
		return nil, err
	}
	pr, err := s.Provider.FetchPullRequest(ctx, ref, task.PRNumber, task.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request: %w", err)
	}
	return s.Engine.Analyze(ctx, pr), nil
}

// fail moves the task to FAILURE carrying the full descriptor. Losing the
// descriptor on the way to the store would be a defect, so it is attached
// before the write and the write error itself is only logged.
func (s *Service) fail(ctx context.Context, task *domain.AnalysisTask, desc *domain.ErrorDescriptor) {
	if err := task.Fail(desc, s.Clock.Now()); err != nil {
		log.Printf("task=%s %v", task.ID, err)
		if !task.Status.Terminal() {
			// The terminal write was refused; keep the descriptor visible
			// on the record instead of losing the failure.
			task.LastError = desc
			s.put(ctx, task)
		}
		return
	}
	s.finish(ctx, task)
}

// finish writes a terminal task and runs the optional report upload and
// archive row, both best-effort.
func (s *Service) finish(ctx context.Context, task *domain.AnalysisTask) {
	if s.Reports != nil && task.Status == domain.StatusSuccess {
		if data, err := json.Marshal(task.Result); err == nil {
			key := fmt.Sprintf("reports/%s.json", task.ID)
			if url, err := s.Reports.UploadReport(ctx, key, data); err != nil {
				log.Printf("task=%s report upload failed: %v", task.ID, err)
			} else {
				task.ReportURL = url
			}
		}
	}
	s.put(ctx, task)
	if s.Archive != nil {
		if err := s.Archive.Save(ctx, task); err != nil {
			log.Printf("task=%s archive save failed: %v", task.ID, err)
		}
	}
	if task.Status == domain.StatusSuccess {
		fire(s.OnSucceeded)
	} else {
		fire(s.OnFailed)
	}
	log.Printf("task=%s finished status=%s attempts=%d", task.ID, task.Status, task.Attempts)
}

func (s *Service) put(ctx context.Context, task *domain.AnalysisTask) {
	if err := s.Store.Put(ctx, task); err != nil {
		log.Printf("task=%s store put failed: %v", task.ID, err)
	}
}

// recoverable classifies provider failures: rate limits, transient
// outages and per-call timeouts drive RETRY; everything else is terminal.
func recoverable(err error) bool {
	if errors.Is(err, gitrepo.ErrRateLimited) || errors.Is(err, gitrepo.ErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

func describeFailure(err error) *domain.ErrorDescriptor {
	switch {
	case errors.Is(err, gitrepo.ErrAuthFailed):
		return domain.Describe(err, domain.KindAuth, "repository-provider")
	case errors.Is(err, gitrepo.ErrNotFound):
		return domain.Describe(err, domain.KindNotFound, "repository-provider")
	case errors.Is(err, gitrepo.ErrRateLimited), errors.Is(err, gitrepo.ErrUnavailable):
		return domain.Describe(err, domain.KindProvider, "repository-provider")
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Describe(err, domain.KindTimeout, "repository-provider")
	default:
		var verr *gitrepo.ValidationError
		if errors.As(err, &verr) {
			return domain.Describe(err, domain.KindValidation, "orchestrator")
		}
		return domain.Describe(err, domain.KindProvider, "worker")
	}
}
