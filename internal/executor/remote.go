package executor

import (
	"net/url"
	"path/filepath"
	"strings"

	"streakd/internal/domain"
)

const (
	defaultHost   = "github.com"
	tokenUsername = "x-access-token"
)

// AuthenticatedURL returns a clone URL carrying token. An owner/repo shorthand is
// expanded to an https remote on the default host. URLs that already carry credentials,
// non-http schemes and local paths are returned unchanged.
func AuthenticatedURL(remote, token string) (string, error) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return "", domain.Validationf("repository url is required")
	}
	if isLocalRemote(remote) {
		return remote, nil
	}
	if isShorthand(remote) {
		remote = "https://" + defaultHost + "/" + strings.TrimSuffix(remote, ".git") + ".git"
	}

	u, err := url.Parse(remote)
	if err != nil {
		return "", domain.Validationf("invalid repository url %q: %v", remote, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return remote, nil
	}
	if u.Host == "" {
		return "", domain.Validationf("invalid repository url %q: missing host", remote)
	}
	if u.User != nil || token == "" {
		return u.String(), nil
	}
	u.User = url.UserPassword(tokenUsername, token)
	return u.String(), nil
}

// RepoFullName extracts owner/name from a remote or shorthand. ok is false for remotes
// that do not name a repository on a hosting provider.
func RepoFullName(remote string) (string, bool) {
	remote = strings.TrimSpace(remote)
	if isLocalRemote(remote) {
		return "", false
	}
	if isShorthand(remote) {
		return strings.TrimSuffix(remote, ".git"), true
	}
	u, err := url.Parse(remote)
	if err != nil || u.Host == "" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), true
}

func isLocalRemote(remote string) bool {
	return strings.HasPrefix(remote, "file://") || filepath.IsAbs(remote)
}

func isShorthand(remote string) bool {
	if strings.Contains(remote, "://") || strings.HasPrefix(remote, "git@") {
		return false
	}
	owner, repo, ok := strings.Cut(remote, "/")
	return ok && owner != "" && repo != "" && !strings.Contains(repo, "/")
}
