package executor

import (
	"os"
	"path"
	"strings"
	"time"

	"streakd/internal/domain"
	"streakd/internal/github"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// cleanRelPath validates a repository-relative slash path.
func cleanRelPath(p string) (string, error) {
	p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./")
	clean := path.Clean(p)
	if p == "" || clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || clean == ".git" || strings.HasPrefix(clean, ".git/") {
		return "", domain.Validationf("file path %q must stay inside the repository", p)
	}
	return clean, nil
}

// writeTarget creates parent directories and writes the job's content, or filler
// appended to the current file when content is empty.
func writeTarget(wt *git.Worktree, relPath, content string, at time.Time) error {
	fs := wt.Filesystem
	if dir := path.Dir(relPath); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return domain.WrapLocalIO(err, "create parent directories")
		}
	}

	if content == "" {
		existing, err := util.ReadFile(fs, relPath)
		if err != nil && !os.IsNotExist(err) {
			return domain.WrapLocalIO(err, "read existing file")
		}
		content = FillerContent(relPath, string(existing), at)
	}

	if err := util.WriteFile(fs, relPath, []byte(content), 0o644); err != nil {
		return domain.WrapLocalIO(err, "write file")
	}
	return nil
}

// isIgnored reports whether the repository's ignore rules exclude relPath.
func isIgnored(wt *git.Worktree, relPath string) (bool, error) {
	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return false, domain.WrapLocalIO(err, "read ignore rules")
	}
	patterns = append(patterns, wt.Excludes...)
	if len(patterns) == 0 {
		return false, nil
	}
	return gitignore.NewMatcher(patterns).Match(strings.Split(relPath, "/"), false), nil
}

// stage adds relPath to the index. Ignored paths are force-added; forced reports it.
func stage(wt *git.Worktree, relPath string) (forced bool, err error) {
	ignored, err := isIgnored(wt, relPath)
	if err != nil {
		return false, err
	}
	if ignored {
		if err := wt.AddWithOptions(&git.AddOptions{Path: relPath}); err != nil {
			return true, domain.WrapLocalIO(err, "force-add ignored path")
		}
		return true, nil
	}
	if _, err := wt.Add(relPath); err != nil {
		return false, domain.WrapLocalIO(err, "stage file")
	}
	return false, nil
}

// commitAt records a commit whose author and committer times are both at.
func commitAt(wt *git.Worktree, message string, who github.Identity, at time.Time) (plumbing.Hash, error) {
	sig := &object.Signature{Name: who.Name, Email: who.Email, When: at}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, domain.WrapLocalIO(err, "commit")
	}
	return hash, nil
}
