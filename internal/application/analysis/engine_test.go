package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
	"github.com/reviewhub/code-review-agent/internal/domain/review"
)

type fakeAI struct {
	response string
	err      error
	calls    int
}

func (f *fakeAI) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestAnalyzeEmptyDiff(t *testing.T) {
	e := &Engine{AI: &fakeAI{response: "[]"}}
	res := e.Analyze(context.Background(), &gitrepo.PullRequest{Number: 1})

	require.NotNil(t, res)
	assert.Equal(t, review.ModeRules, res.Mode)
	assert.Equal(t, 0, res.Summary.FilesAnalyzed)
	assert.Empty(t, res.Issues)
}

func TestAnalyzeAIPath(t *testing.T) {
	ai := &fakeAI{response: `[{"file": "main.py", "line": 2, "category": "bug", "severity": "warning", "message": "Print statement"}]`}
	e := &Engine{AI: ai}

	pr := prWithPatch("main.py", "@@\n+print(1)")
	res := e.Analyze(context.Background(), pr)

	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, review.ModeAI, res.Mode)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, 1, res.Summary.FilesAnalyzed)
}

func TestAnalyzeFallsBackOnProviderError(t *testing.T) {
	e := &Engine{AI: &fakeAI{err: errors.New("connection refused")}}
	res := e.Analyze(context.Background(), prWithPatch("main.py", "@@\n+print(1)"))

	assert.Equal(t, review.ModeRules, res.Mode)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Print statement found", res.Issues[0].Message)
}

func TestAnalyzeFallsBackOnSchemaViolation(t *testing.T) {
	// Prose instead of the JSON array: the whole response is discarded.
	e := &Engine{AI: &fakeAI{response: "I found a print statement on line 2."}}
	res := e.Analyze(context.Background(), prWithPatch("main.py", "@@\n+print(1)"))

	assert.Equal(t, review.ModeRules, res.Mode)
	require.Len(t, res.Issues, 1)
}

func TestAnalyzeNoPartialMerge(t *testing.T) {
	// One invalid element poisons an otherwise valid AI response; the rule
	// result must not contain any AI issue.
	ai := &fakeAI{response: `[
		{"file": "main.py", "line": 2, "category": "bug", "severity": "warning", "message": "From the model"},
		{"file": "main.py", "line": 3, "category": "nonsense", "severity": "warning", "message": "Bad category"}
	]`}
	e := &Engine{AI: ai}
	res := e.Analyze(context.Background(), prWithPatch("main.py", "@@\n+print(1)"))

	assert.Equal(t, review.ModeRules, res.Mode)
	for _, is := range res.Issues {
		assert.NotEqual(t, "From the model", is.Message)
	}
}

func TestAnalyzeWithoutAIClient(t *testing.T) {
	e := &Engine{}
	res := e.Analyze(context.Background(), prWithPatch("main.py", "@@\n+print(1)"))
	assert.Equal(t, review.ModeRules, res.Mode)
}

func TestAnalyzeAITimeout(t *testing.T) {
	slow := &slowAI{delay: 50 * time.Millisecond}
	e := &Engine{AI: slow, AITimeout: time.Millisecond}

	res := e.Analyze(context.Background(), prWithPatch("main.py", "@@\n+print(1)"))
	assert.Equal(t, review.ModeRules, res.Mode)
}

type slowAI struct {
	delay time.Duration
}

func (s *slowAI) Complete(ctx context.Context, system, user string) (string, error) {
	select {
	case <-time.After(s.delay):
		return "[]", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
