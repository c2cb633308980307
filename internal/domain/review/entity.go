package review

import "sort"

// Category enum
type Category string

const (
	CategoryStyle        Category = "style"
	CategoryBug          Category = "bug"
	CategoryPerformance  Category = "performance"
	CategoryBestPractice Category = "best_practice"
)

// ValidCategory reports whether c is a member of the category enum.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryStyle, CategoryBug, CategoryPerformance, CategoryBestPractice:
		return true
	}
	return false
}

// Severity enum
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ValidSeverity reports whether s is a member of the severity enum.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Mode tells which analyzer produced a result.
type Mode string

const (
	ModeAI    Mode = "ai"
	ModeRules Mode = "rules"
)

// Issue is one finding inside a result. Line 0 means a file-level issue.
// Issues have no identity beyond their position in the owning result.
type Issue struct {
	File       string   `json:"file"`
	Line       int      `json:"line,omitempty"`
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Summary value object
type Summary struct {
	FilesAnalyzed  int `json:"total_files"`
	TotalIssues    int `json:"total_issues"`
	CriticalIssues int `json:"critical_issues"`
}

// AnalysisResult is immutable once attached to a task.
type AnalysisResult struct {
	Issues  []Issue `json:"issues"`
	Summary Summary `json:"summary"`
	Mode    Mode    `json:"mode"`
}

// SortIssues orders issues by file path, then line number. The sort is
// stable so equal positions keep their insertion order.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}
		return issues[i].Line < issues[j].Line
	})
}

// ComputeSummary derives summary counts from the final issue sequence.
func ComputeSummary(issues []Issue, filesAnalyzed int) Summary {
	s := Summary{FilesAnalyzed: filesAnalyzed, TotalIssues: len(issues)}
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			s.CriticalIssues++
		}
	}
	return s
}

// NewResult sorts the issues, tags the mode and fills in the summary.
func NewResult(issues []Issue, filesAnalyzed int, mode Mode) *AnalysisResult {
	if issues == nil {
		issues = []Issue{}
	}
	SortIssues(issues)
	return &AnalysisResult{
		Issues:  issues,
		Summary: ComputeSummary(issues, filesAnalyzed),
		Mode:    mode,
	}
}
