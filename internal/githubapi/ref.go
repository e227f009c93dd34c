package githubapi

import (
	"fmt"
	"strings"
)

// RepoRef identifies a public GitHub repository.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoRef accepts a full github.com URL (https, ssh, with or without
// .git or a trailing path) or a bare "owner/repo" and returns the repo
// reference.
func ParseRepoRef(raw string) (RepoRef, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return RepoRef{}, fmt.Errorf("empty repository reference")
	}

	if i := strings.Index(s, "github.com"); i >= 0 {
		s = s[i+len("github.com"):]
		s = strings.TrimLeft(s, ":/")
	}
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid repository reference: %q", raw)
	}

	name := strings.TrimSuffix(parts[1], ".git")
	if name == "" {
		return RepoRef{}, fmt.Errorf("invalid repository reference: %q", raw)
	}
	return RepoRef{Owner: parts[0], Name: name}, nil
}
