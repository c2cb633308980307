package analysis

import (
	"context"
	"log"
	"time"

	"github.com/reviewhub/code-review-agent/internal/domain/ai"
	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
	"github.com/reviewhub/code-review-agent/internal/domain/review"
)

const defaultAITimeout = 60 * time.Second

// Engine produces a validated AnalysisResult for a pull request. The AI
// path runs first when a client is configured; any failure on that path
// degrades to the rule-based analyzer instead of propagating.
type Engine struct {
	AI        ai.Client // nil disables the AI path
	AITimeout time.Duration
}

// Analyze never returns an error past the fallback boundary: the worst
// case is a rule-based result.
func (e *Engine) Analyze(ctx context.Context, pr *gitrepo.PullRequest) *review.AnalysisResult {
	if countSourceFiles(pr) == 0 {
		// Empty diff is a successful zero-issue result, not an error.
		return review.NewResult(nil, 0, review.ModeRules)
	}

	if e.AI != nil {
		if res, err := e.analyzeWithAI(ctx, pr); err == nil {
			return res
		} else {
			log.Printf("analysis: ai path failed, falling back to rules: pr=%d err=%v", pr.Number, err)
		}
	}
	return analyzeRuleBased(pr)
}

// analyzeWithAI invokes the language-model provider with a bounded timeout
// and validates the response strictly. Parse failures, timeouts, auth and
// quota errors all reject the whole response; no partial AI result is ever
// merged with fallback output.
func (e *Engine) analyzeWithAI(ctx context.Context, pr *gitrepo.PullRequest) (*review.AnalysisResult, error) {
	timeout := e.AITimeout
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := e.AI.Complete(ctx, systemPrompt(), userPrompt(pr))
	if err != nil {
		return nil, err
	}
	issues, err := ParseIssues(content)
	if err != nil {
		return nil, err
	}
	return review.NewResult(issues, countSourceFiles(pr), review.ModeAI), nil
}

func countSourceFiles(pr *gitrepo.PullRequest) int {
	n := 0
	for _, f := range pr.Files {
		if isSourceFile(f.Path) && f.Patch != "" {
			n++
		}
	}
	return n
}
