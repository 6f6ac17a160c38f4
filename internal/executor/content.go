package executor

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// FillerContent builds the file body written when a job carries no content. The
// update note is appended to whatever the file already holds.
func FillerContent(filePath, existing string, at time.Time) string {
	stamp := at.UTC().Format(time.RFC3339)

	var note string
	switch strings.ToLower(path.Ext(filePath)) {
	case ".md", ".markdown":
		note = fmt.Sprintf("## Update %s\n\n- Notes refreshed on %s.\n", at.UTC().Format("2006-01-02"), stamp)
	case ".txt":
		note = fmt.Sprintf("Updated: %s\n", stamp)
	case ".html", ".htm":
		note = fmt.Sprintf("<!-- Updated: %s -->\n", stamp)
	case ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs":
		note = fmt.Sprintf("// Updated: %s\n", stamp)
	default:
		note = fmt.Sprintf("# Updated: %s\n", stamp)
	}

	if existing == "" {
		return note
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + note
}
