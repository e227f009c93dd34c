package githubapi

import (
	"path"
	"strings"
)

// reviewableExtensions is the allowlist of text file types worth sending to
// the model. Pattern matching beyond extensions is out of scope here.
var reviewableExtensions = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".rb": true, ".rs": true, ".java": true, ".kt": true,
	".scala": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true,
	".cc": true, ".cs": true, ".php": true, ".swift": true, ".m": true,
	".sh": true, ".bash": true, ".sql": true, ".proto": true,
	".html": true, ".css": true, ".scss": true, ".vue": true, ".svelte": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".md": true, ".txt": true,
}

// reviewableFilenames covers extensionless files that still matter.
var reviewableFilenames = map[string]bool{
	"Dockerfile": true, "Makefile": true, "go.mod": true, "go.sum": false,
	"Gemfile": true, "Rakefile": true,
}

// skippedDirs are vendored or generated trees that waste model context.
var skippedDirs = []string{
	"node_modules/", "vendor/", "dist/", "build/", ".git/",
	"third_party/", "__pycache__/",
}

func isReviewablePath(p string) bool {
	if p == "" {
		return false
	}
	for _, dir := range skippedDirs {
		if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
			return false
		}
	}
	base := path.Base(p)
	if v, ok := reviewableFilenames[base]; ok {
		return v
	}
	return reviewableExtensions[strings.ToLower(path.Ext(base))]
}
