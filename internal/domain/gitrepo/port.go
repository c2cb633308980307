package gitrepo

import (
	"context"
	"errors"
)

// Provider failure classes. Rate limits and transient outages are
// recoverable; auth failures and missing repos/PRs are not.
var (
	ErrRateLimited = errors.New("repository provider rate limited")
	ErrUnavailable = errors.New("repository provider unavailable")
	ErrAuthFailed  = errors.New("repository provider authentication failed")
	ErrNotFound    = errors.New("repository or pull request not found")
)

// Provider port (interface for the repository data provider)
type Provider interface {
	FetchPullRequest(ctx context.Context, ref Ref, number int, token string) (*PullRequest, error)
}
