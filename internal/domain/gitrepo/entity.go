package gitrepo

// ChangedFile is one file touched by a pull request. Patch holds the
// unified diff hunk text for the file and may be empty for binary files.
type ChangedFile struct {
	Path      string `json:"path"`
	Status    string `json:"status"` // added | modified | removed
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// PullRequest is the context handed to the analysis engine.
type PullRequest struct {
	Number      int           `json:"number"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Author      string        `json:"author,omitempty"`
	BaseBranch  string        `json:"base_branch,omitempty"`
	HeadBranch  string        `json:"head_branch,omitempty"`
	Files       []ChangedFile `json:"files"`
}
