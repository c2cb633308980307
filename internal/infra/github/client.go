package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v84/github"

	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
)

const filesPerPage = 100

// Provider implements gitrepo.Provider on the GitHub REST API.
type Provider struct {
	// DefaultToken is used when a task carries no credential of its own.
	DefaultToken string
	// BaseHTTP lets tests inject a transport; nil uses the default client.
	BaseHTTP *http.Client
}

func NewProvider(defaultToken string) *Provider {
	return &Provider{DefaultToken: defaultToken}
}

func (p *Provider) client(ref gitrepo.Ref, token string) (*github.Client, error) {
	cli := github.NewClient(p.BaseHTTP)
	if ref.Host != "" && ref.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", ref.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", ref.Host)
		var err error
		cli, err = cli.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("building enterprise client for %s: %w", ref.Host, err)
		}
	}
	if token == "" {
		token = p.DefaultToken
	}
	if token != "" {
		cli = cli.WithAuthToken(token)
	}
	return cli, nil
}

// FetchPullRequest loads PR metadata and all changed files (paged).
func (p *Provider) FetchPullRequest(ctx context.Context, ref gitrepo.Ref, number int, token string) (*gitrepo.PullRequest, error) {
	cli, err := p.client(ref, token)
	if err != nil {
		return nil, err
	}

	pr, _, err := cli.PullRequests.Get(ctx, ref.Owner, ref.Name, number)
	if err != nil {
		return nil, classify(err)
	}

	var files []gitrepo.ChangedFile
	opts := &github.ListOptions{PerPage: filesPerPage}
	for {
		page, resp, err := cli.PullRequests.ListFiles(ctx, ref.Owner, ref.Name, number, opts)
		if err != nil {
			return nil, classify(err)
		}
		for _, f := range page {
			files = append(files, gitrepo.ChangedFile{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Patch:     f.GetPatch(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return &gitrepo.PullRequest{
		Number:      number,
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		Author:      pr.GetUser().GetLogin(),
		BaseBranch:  pr.GetBase().GetRef(),
		HeadBranch:  pr.GetHead().GetRef(),
		Files:       files,
	}, nil
}

// classify maps GitHub API failures onto the provider error classes the
// orchestrator retries on (or not).
func classify(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %v", gitrepo.ErrRateLimited, err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %v", gitrepo.ErrRateLimited, err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", gitrepo.ErrAuthFailed, err)
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: %v", gitrepo.ErrNotFound, err)
		case code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", gitrepo.ErrRateLimited, err)
		case code >= 500:
			return fmt.Errorf("%w: %v", gitrepo.ErrUnavailable, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", gitrepo.ErrUnavailable, err)
}
