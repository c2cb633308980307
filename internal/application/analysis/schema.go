package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reviewhub/code-review-agent/internal/domain/review"
)

// SchemaError is a structural validation failure of an AI response. It is
// always recovered locally by falling back to the rule-based analyzer and
// never surfaces to the caller on its own.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "ai response schema: " + e.Reason }

// rawIssue mirrors the schema the prompt demands. Pointers distinguish
// absent fields from zero values so required-field checks are strict.
type rawIssue struct {
	File       *string  `json:"file"`
	Line       *float64 `json:"line"`
	Category   *string  `json:"category"`
	Severity   *string  `json:"severity"`
	Message    *string  `json:"message"`
	Suggestion string   `json:"suggestion"`
}

// ParseIssues validates an AI response against the expected schema and
// returns the issue sequence, or a SchemaError. There is no best-effort
// partial result: one bad element rejects the whole response.
func ParseIssues(content string) ([]review.Issue, error) {
	content = stripFences(content)
	if strings.TrimSpace(content) == "" {
		return nil, &SchemaError{Reason: "empty response"}
	}

	var raw []rawIssue
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("not a JSON array of objects: %v", err)}
	}

	issues := make([]review.Issue, 0, len(raw))
	for i, r := range raw {
		if r.File == nil || r.Line == nil || r.Category == nil || r.Severity == nil || r.Message == nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("issue %d is missing a required field", i)}
		}
		if *r.Line != float64(int(*r.Line)) || *r.Line < 0 {
			return nil, &SchemaError{Reason: fmt.Sprintf("issue %d has a non-integer line", i)}
		}
		cat := review.Category(*r.Category)
		if !review.ValidCategory(cat) {
			return nil, &SchemaError{Reason: fmt.Sprintf("issue %d has unknown category %q", i, *r.Category)}
		}
		sev := review.Severity(*r.Severity)
		if !review.ValidSeverity(sev) {
			return nil, &SchemaError{Reason: fmt.Sprintf("issue %d has unknown severity %q", i, *r.Severity)}
		}
		issues = append(issues, review.Issue{
			File:       *r.File,
			Line:       int(*r.Line),
			Category:   cat,
			Severity:   sev,
			Message:    *r.Message,
			Suggestion: r.Suggestion,
		})
	}
	return issues, nil
}

// stripFences removes a surrounding markdown code block if the model added
// one despite the instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
