package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
	"github.com/reviewhub/code-review-agent/internal/domain/review"
)

// maxLineLength is the style threshold for the long-line rule.
const maxLineLength = 100

// rule is one deterministic pattern check. Category and severity are fixed
// per rule; langs restricts the rule to file extensions (empty = any file).
type rule struct {
	name     string
	langs    []string
	match    func(line string) bool
	category review.Category
	severity review.Severity
	message  func(line string) string
	suggest  string
}

var (
	rangeLenRe   = regexp.MustCompile(`for\s+\w+\s+in\s+range\(len\(`)
	bareExceptRe = regexp.MustCompile(`^\s*except\s*:`)
	todoRe       = regexp.MustCompile(`(?i)\b(TODO|FIXME)\b`)
)

// ruleCatalog is the fixed fallback catalog. Rules run independently per
// added line of each changed source file.
var ruleCatalog = []rule{
	{
		name:     "long-line",
		match:    func(line string) bool { return len(line) > maxLineLength },
		category: review.CategoryStyle,
		severity: review.SeverityInfo,
		message: func(line string) string {
			return fmt.Sprintf("Line too long (%d characters)", len(line))
		},
		suggest: "Break the line up or shorten names",
	},
	{
		name:     "trailing-whitespace",
		match:    func(line string) bool { return line != strings.TrimRight(line, " \t") && strings.TrimSpace(line) != "" },
		category: review.CategoryStyle,
		severity: review.SeverityInfo,
		message:  func(string) string { return "Trailing whitespace" },
		suggest:  "Remove trailing whitespace",
	},
	{
		name:     "print-statement",
		langs:    []string{".py"},
		match:    func(line string) bool { return strings.Contains(line, "print(") },
		category: review.CategoryBug,
		severity: review.SeverityWarning,
		message:  func(string) string { return "Print statement found" },
		suggest:  "Use the logging module instead of print",
	},
	{
		name:     "console-log",
		langs:    []string{".js", ".jsx", ".ts", ".tsx"},
		match:    func(line string) bool { return strings.Contains(strings.ToLower(line), "console.log(") },
		category: review.CategoryBug,
		severity: review.SeverityWarning,
		message:  func(string) string { return "console.log statement found" },
		suggest:  "Use a proper logger instead of console.log",
	},
	{
		name:     "range-len-loop",
		langs:    []string{".py"},
		match:    func(line string) bool { return rangeLenRe.MatchString(line) },
		category: review.CategoryPerformance,
		severity: review.SeverityWarning,
		message:  func(string) string { return "Inefficient range(len(...)) loop" },
		suggest:  "Use enumerate() instead of range(len())",
	},
	{
		name:     "bare-except",
		langs:    []string{".py"},
		match:    func(line string) bool { return bareExceptRe.MatchString(line) },
		category: review.CategoryBug,
		severity: review.SeverityCritical,
		message:  func(string) string { return "Bare except swallows all errors" },
		suggest:  "Catch the specific exception types you expect",
	},
	{
		name:     "todo-comment",
		match:    func(line string) bool { return todoRe.MatchString(line) },
		category: review.CategoryBestPractice,
		severity: review.SeverityInfo,
		message:  func(string) string { return "TODO/FIXME comment found" },
		suggest:  "Track the follow-up in an issue instead of a comment",
	},
}

func (r rule) appliesTo(path string) bool {
	if len(r.langs) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range r.langs {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// analyzeRuleBased runs the catalog over the added lines of every changed
// source file. Line numbers are positions within the patch, matching what
// a reviewer sees in the hunk view.
func analyzeRuleBased(pr *gitrepo.PullRequest) *review.AnalysisResult {
	issues := []review.Issue{}
	analyzed := 0

	for _, f := range pr.Files {
		if !isSourceFile(f.Path) || f.Patch == "" {
			continue
		}
		analyzed++
		for lineNum, raw := range strings.Split(f.Patch, "\n") {
			if !strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "+++") {
				continue
			}
			code := raw[1:]
			for _, r := range ruleCatalog {
				if !r.appliesTo(f.Path) || !r.match(code) {
					continue
				}
				issues = append(issues, review.Issue{
					File:       f.Path,
					Line:       lineNum + 1,
					Category:   r.category,
					Severity:   r.severity,
					Message:    r.message(code),
					Suggestion: r.suggest,
				})
			}
		}
	}
	return review.NewResult(issues, analyzed, review.ModeRules)
}

// nonSourceExts are files both modes skip: pure data, binaries, generated
// or vendored artifacts that pattern rules and prompts would only pollute.
var nonSourceExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".pdf": true, ".bin": true, ".exe": true, ".zip": true,
	".tar": true, ".gz": true, ".woff": true, ".woff2": true, ".lock": true,
}

func isSourceFile(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".min.js") || strings.HasSuffix(lower, ".min.css") {
		return false
	}
	if i := strings.LastIndex(lower, "."); i >= 0 {
		if nonSourceExts[lower[i:]] {
			return false
		}
	}
	return true
}
