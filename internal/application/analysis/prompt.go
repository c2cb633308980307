package analysis

import (
	"fmt"
	"strings"

	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
)

const (
	// maxPromptFiles bounds how many changed files go into one prompt.
	maxPromptFiles = 5
	// maxPatchChars truncates oversized per-file patches.
	maxPatchChars = 2000
)

// systemPrompt provides strict directions and the schema for JSON output.
func systemPrompt() string {
	return `You are an expert code reviewer. Analyze the provided pull request changes and identify issues related to style, bugs, performance and best practices. You must respond with one valid JSON array only (no markdown, no commentary).

Requirements:
- Output must be a single JSON array of issue objects.
- Every object must contain all of: "file" (string), "line" (integer, 0 for file-level issues), "category", "severity", "message" (string). "suggestion" (string) is optional.
- category must be one of: style, bug, performance, best_practice.
- severity must be one of: info, warning, critical.
- Report an empty array [] when the changes look clean.

Schema (example):
[
  {
    "file": "src/main.py",
    "line": 15,
    "category": "style",
    "severity": "info",
    "message": "Line too long (120 characters)",
    "suggestion": "Break the line into multiple lines"
  }
]`
}

// userPrompt builds the structured analysis prompt from the PR context.
// Only source files with patches are included, capped to keep the request
// inside token limits.
func userPrompt(pr *gitrepo.PullRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this pull request:\n")
	fmt.Fprintf(&b, "Title: %s\n", pr.Title)
	desc := pr.Description
	if desc == "" {
		desc = "No description"
	}
	fmt.Fprintf(&b, "Description: %s\n\n", desc)

	included := 0
	total := 0
	for _, f := range pr.Files {
		if isSourceFile(f.Path) && f.Patch != "" {
			total++
		}
	}
	fmt.Fprintf(&b, "Files changed (%d of %d shown):\n\n", min(total, maxPromptFiles), total)

	for _, f := range pr.Files {
		if !isSourceFile(f.Path) || f.Patch == "" {
			continue
		}
		if included >= maxPromptFiles {
			break
		}
		included++
		patch := f.Patch
		if len(patch) > maxPatchChars {
			patch = patch[:maxPatchChars]
		}
		fmt.Fprintf(&b, "File: %s\n", f.Path)
		fmt.Fprintf(&b, "Status: %s\n", f.Status)
		fmt.Fprintf(&b, "Changes: +%d -%d\n", f.Additions, f.Deletions)
		fmt.Fprintf(&b, "Patch:\n```diff\n%s\n```\n\n", patch)
	}

	b.WriteString("Respond with the JSON array per the schema.")
	return b.String()
}
