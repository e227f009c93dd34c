package analysis

import (
	"fmt"
	"strings"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/types"
)

// AssembleContent concatenates file contents with a per-file path header and
// a fixed separator. Individual files are cut at maxFileChars with a visible
// truncation marker; files with whitespace-only content are dropped so an
// empty result means there is nothing to analyze.
func AssembleContent(files []types.SourceFile, maxFileChars int) string {
	var sb strings.Builder
	for _, f := range files {
		content := f.Content
		if strings.TrimSpace(content) == "" {
			continue
		}
		if maxFileChars > 0 && len(content) > maxFileChars {
			content = content[:maxFileChars] + config.MarkerFileTruncated
		}
		sb.WriteString(fmt.Sprintf(config.FileHeaderFormat, f.Path))
		sb.WriteString(content)
		sb.WriteString(config.FileSeparator)
	}
	return sb.String()
}
