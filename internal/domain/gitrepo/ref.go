package gitrepo

import (
	"fmt"
	"regexp"
	"strings"
)

// Ref identifies a hosted repository.
type Ref struct {
	Host  string `json:"host"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (r Ref) String() string {
	return r.Host + "/" + r.Owner + "/" + r.Name
}

// ValidationError rejects a malformed repository reference before any
// task is created. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// The three accepted reference grammars. Trailing ".git" and "/" are
// tolerated on all of them.
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://([^/]+)/([^/]+)/([^/]+)$`),
	regexp.MustCompile(`^ssh://git@([^/]+)/([^/]+)/([^/]+)$`),
	regexp.MustCompile(`^([^/]+\.[^/]+)/([^/]+)/([^/]+)$`),
}

// ParseRef parses a repository reference in one of the accepted forms:
//
//	https://host/owner/repo
//	ssh://git@host/owner/repo.git
//	host/owner/repo
func ParseRef(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, &ValidationError{Field: "repo_url", Message: "empty reference"}
	}
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	for _, re := range refPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		ref := Ref{Host: m[1], Owner: m[2], Name: m[3]}
		if ref.Owner == "" || ref.Name == "" {
			break
		}
		return ref, nil
	}
	return Ref{}, &ValidationError{Field: "repo_url", Message: fmt.Sprintf("unrecognized reference %q", raw)}
}
