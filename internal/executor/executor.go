// Package executor performs one backdated commit against a remote repository. It knows
// nothing about job records; callers persist outcomes.
package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"streakd/internal/domain"
	"streakd/internal/github"
	"streakd/internal/logger"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

const (
	remoteName        = "origin"
	emptyRepoBranch   = "main"
	verifyCommitLimit = 10
)

type Request struct {
	RepoURL     string
	FilePath    string
	Message     string
	Timestamp   time.Time
	Content     string
	AccessToken string
}

type Result struct {
	CommitHash string
	Branch     string
	Author     github.Identity
	ForcedAdd  bool
	Verified   bool
}

// CommitExecutor is what the scheduler drives.
type CommitExecutor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Provider is the slice of the hosting API the executor needs.
type Provider interface {
	ResolveIdentity(ctx context.Context, token string) (github.Identity, error)
	RecentCommits(ctx context.Context, token, fullName string, limit int) ([]github.RemoteCommit, error)
}

type GitExecutor struct {
	workdir  string
	provider Provider
	logger   logger.Logger
}

// NewGitExecutor creates workspaces under workdir, or the OS temp dir when empty.
func NewGitExecutor(workdir string, provider Provider, log logger.Logger) *GitExecutor {
	return &GitExecutor{
		workdir:  workdir,
		provider: provider,
		logger:   log.With(logger.String("component", "commit_executor")),
	}
}

func (e *GitExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	relPath, err := cleanRelPath(req.FilePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.Validationf("commit message is required")
	}
	if req.Timestamp.IsZero() {
		return nil, domain.Validationf("commit timestamp is required")
	}
	cloneURL, err := AuthenticatedURL(req.RepoURL, req.AccessToken)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithContext(ctx).With(
		logger.String("file_path", relPath),
		logger.Time("target_time", req.Timestamp))

	if e.workdir != "" {
		if err := os.MkdirAll(e.workdir, 0o755); err != nil {
			return nil, domain.WrapLocalIO(err, "create executor workdir")
		}
	}
	workspace, err := os.MkdirTemp(e.workdir, "commit-*")
	if err != nil {
		return nil, domain.WrapLocalIO(err, "create workspace")
	}
	defer e.cleanup(workspace, log)

	repo, branch, err := e.open(ctx, filepath.Join(workspace, "repo"), cloneURL, log)
	if err != nil {
		return nil, err
	}

	identity, err := e.provider.ResolveIdentity(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, domain.WrapLocalIO(err, "open worktree")
	}
	if err := writeTarget(wt, relPath, req.Content, req.Timestamp); err != nil {
		return nil, err
	}
	forced, err := stage(wt, relPath)
	if err != nil {
		return nil, err
	}
	if forced {
		log.Info("path is ignored by repository rules, force-added")
	}

	hash, err := commitAt(wt, req.Message, identity, req.Timestamp)
	if err != nil {
		return nil, err
	}

	if err := push(ctx, repo, branch); err != nil {
		return nil, err
	}

	result := &Result{
		CommitHash: hash.String(),
		Branch:     branch.Short(),
		Author:     identity,
		ForcedAdd:  forced,
	}
	result.Verified = e.verify(ctx, req, identity, log)

	log.Info("backdated commit pushed",
		logger.String("commit", result.CommitHash),
		logger.String("branch", result.Branch),
		logger.Bool("verified", result.Verified))
	return result, nil
}

// open clones url into dir. An empty remote gets a fresh repository on branch main.
func (e *GitExecutor) open(ctx context.Context, dir, url string, log logger.Logger) (*git.Repository, plumbing.ReferenceName, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:        url,
		RemoteName: remoteName,
	})
	if err == nil {
		head, err := repo.Head()
		if err != nil {
			return nil, "", domain.WrapLocalIO(err, "resolve cloned HEAD")
		}
		return repo, head.Name(), nil
	}
	if !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return nil, "", classifyTransportError(err, "clone repository")
	}

	log.Info("remote repository is empty, initializing", logger.String("branch", emptyRepoBranch))
	branch := plumbing.NewBranchReferenceName(emptyRepoBranch)
	if err := os.RemoveAll(dir); err != nil {
		return nil, "", domain.WrapLocalIO(err, "reset clone directory")
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, "", domain.WrapLocalIO(err, "init repository")
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch)); err != nil {
		return nil, "", domain.WrapLocalIO(err, "set initial branch")
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: remoteName, URLs: []string{url}}); err != nil {
		return nil, "", domain.WrapLocalIO(err, "add remote")
	}
	return repo, branch, nil
}

func push(ctx context.Context, repo *git.Repository, branch plumbing.ReferenceName) error {
	spec := config.RefSpec(branch.String() + ":" + branch.String())
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{spec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return classifyTransportError(err, "push to "+branch.Short())
	}
	return nil
}

func classifyTransportError(err error, op string) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrInvalidAuthMethod):
		return domain.WrapAuth(err, op)
	default:
		return domain.WrapUpstream(err, op)
	}
}

// verify looks for the pushed commit through the provider API. A miss is normal right
// after a push and is only logged.
func (e *GitExecutor) verify(ctx context.Context, req Request, who github.Identity, log logger.Logger) bool {
	fullName, ok := RepoFullName(req.RepoURL)
	if !ok {
		return false
	}
	commits, err := e.provider.RecentCommits(ctx, req.AccessToken, fullName, verifyCommitLimit)
	if err != nil {
		log.Warn("commit verification skipped", logger.Error(err))
		return false
	}
	want := strings.TrimSpace(req.Message)
	for _, c := range commits {
		if strings.TrimSpace(c.Message) == want && strings.EqualFold(c.AuthorEmail, who.Email) {
			return true
		}
	}
	log.Warn("pushed commit not visible on provider yet",
		logger.String("repository", fullName))
	return false
}

func (e *GitExecutor) cleanup(workspace string, log logger.Logger) {
	if err := os.RemoveAll(workspace); err != nil {
		log.Error("failed to remove workspace",
			logger.String("path", workspace),
			logger.Error(err))
	}
}
