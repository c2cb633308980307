package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/code-review-agent/internal/domain/review"
)

func TestParseIssuesValid(t *testing.T) {
	content := `[
		{"file": "main.py", "line": 10, "category": "bug", "severity": "critical", "message": "Bare except", "suggestion": "Catch ValueError"},
		{"file": "main.py", "line": 0, "category": "style", "severity": "info", "message": "File-level nit"}
	]`
	issues, err := ParseIssues(content)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, review.Issue{
		File:       "main.py",
		Line:       10,
		Category:   review.CategoryBug,
		Severity:   review.SeverityCritical,
		Message:    "Bare except",
		Suggestion: "Catch ValueError",
	}, issues[0])
	assert.Equal(t, 0, issues[1].Line)
}

func TestParseIssuesStripsFences(t *testing.T) {
	content := "```json\n[{\"file\": \"a.go\", \"line\": 1, \"category\": \"style\", \"severity\": \"info\", \"message\": \"m\"}]\n```"
	issues, err := ParseIssues(content)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "a.go", issues[0].File)
}

func TestParseIssuesEmptyArray(t *testing.T) {
	issues, err := ParseIssues("[]")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestParseIssuesSchemaViolations(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty response", ""},
		{"not json", "here are the issues I found:"},
		{"object not array", `{"file": "a.go"}`},
		{"missing severity", `[{"file": "a.go", "line": 1, "category": "style", "message": "m"}]`},
		{"missing file", `[{"line": 1, "category": "style", "severity": "info", "message": "m"}]`},
		{"unknown category", `[{"file": "a.go", "line": 1, "category": "security", "severity": "info", "message": "m"}]`},
		{"unknown severity", `[{"file": "a.go", "line": 1, "category": "style", "severity": "blocker", "message": "m"}]`},
		{"fractional line", `[{"file": "a.go", "line": 1.5, "category": "style", "severity": "info", "message": "m"}]`},
		{"negative line", `[{"file": "a.go", "line": -1, "category": "style", "severity": "info", "message": "m"}]`},
		{"one bad element rejects all", `[
			{"file": "a.go", "line": 1, "category": "style", "severity": "info", "message": "ok"},
			{"file": "b.go", "line": 2, "category": "style", "severity": "info"}
		]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issues, err := ParseIssues(tc.content)
			require.Error(t, err)
			assert.Nil(t, issues)
			var schemaErr *SchemaError
			assert.ErrorAs(t, err, &schemaErr)
		})
	}
}
