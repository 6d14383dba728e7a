// Package publish commits a directory to a branch of a git remote, the
// way GitHub Pages sites are deployed.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/yaklabco/stipple/internal/dryrun"
	"github.com/yaklabco/stipple/internal/fsops"
	"github.com/yaklabco/stipple/internal/logging"
)

// ErrNoRemote means the deploy remote could not be resolved to a URL.
var ErrNoRemote = errors.New("no deploy remote")

const originName = "origin"

// Defaults.
const (
	DefaultRemote  = "origin"
	DefaultBranch  = "gh-pages"
	DefaultMessage = "Update site"
)

// Options describes one deploy.
type Options struct {
	// ProjectDir is the repository whose remotes name-style Remote values
	// are resolved against.
	ProjectDir string
	// Dir is the directory whose contents become the branch tree.
	Dir string
	// Remote is a remote name in ProjectDir or a URL or path.
	Remote string
	Branch string
	// Message is the commit message.
	Message string
	// CacheDir holds the working clone between deploys.
	CacheDir string
	// Token authenticates pushes to http(s) remotes.
	Token string
	// Push sends the branch to the remote after committing.
	Push   bool
	Logger *slog.Logger

	now func() time.Time
}

// Result reports what a deploy did.
type Result struct {
	Commit    plumbing.Hash
	Committed bool
	Pushed    bool
}

// Publish makes Branch at Remote contain exactly the files under Dir.
func Publish(ctx context.Context, opts Options) (Result, error) {
	var res Result

	opts = withDefaults(opts)
	logger := opts.Logger.With(logging.Remote, opts.Remote, logging.Branch, opts.Branch)

	url, err := resolveRemote(opts.ProjectDir, opts.Remote)
	if err != nil {
		return res, err
	}

	if dryrun.IsDryRun() {
		logger.Info("DRYRUN: publish", logging.Dir, opts.Dir, logging.URL, url)
		return res, nil
	}

	if info, err := os.Stat(opts.Dir); err != nil {
		return res, fmt.Errorf("publish %s: %w", opts.Dir, err)
	} else if !info.IsDir() {
		return res, fmt.Errorf("publish %s: not a directory", opts.Dir)
	}

	repo, err := openCache(opts.CacheDir, url)
	if err != nil {
		return res, err
	}

	auth := authFor(url, opts.Token)
	remoteRef := plumbing.NewRemoteReferenceName(originName, opts.Branch)
	localRef := plumbing.NewBranchReferenceName(opts.Branch)

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: originName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec("+" + localRef + ":" + remoteRef)},
		Auth:       auth,
		Tags:       git.NoTags,
		Force:      true,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
	case errors.Is(err, git.NoMatchingRefSpecError{}), errors.Is(err, transport.ErrEmptyRemoteRepository):
		logger.Debug("remote branch does not exist yet")
	default:
		return res, fmt.Errorf("fetch %s: %w", url, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return res, fmt.Errorf("worktree: %w", err)
	}
	if err := checkoutBranch(repo, wt, localRef, remoteRef); err != nil {
		return res, err
	}

	if err := replaceTree(opts.CacheDir, opts.Dir); err != nil {
		return res, err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return res, fmt.Errorf("stage: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return res, fmt.Errorf("status: %w", err)
	}

	if status.IsClean() {
		logger.Info("nothing to publish")
	} else {
		hash, err := wt.Commit(opts.Message, &git.CommitOptions{
			Author: signature(opts.now()),
		})
		if err != nil {
			return res, fmt.Errorf("commit: %w", err)
		}
		res.Commit = hash
		res.Committed = true
		logger.Info("committed", "commit", hash.String()[:8])
	}

	if !opts.Push {
		return res, nil
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: originName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(localRef + ":" + localRef)},
		Auth:       auth,
	})
	switch {
	case err == nil:
		res.Pushed = true
		logger.Info("pushed", logging.URL, redact(url))
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		logger.Info("remote already up to date")
	default:
		return res, fmt.Errorf("push %s: %w", redact(url), err)
	}

	return res, nil
}

func withDefaults(opts Options) Options {
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}
	if opts.Message == "" {
		opts.Message = DefaultMessage
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(opts.ProjectDir, ".publish")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return opts
}

// resolveRemote turns a remote name into the URL configured for it in the
// project repository. URLs and existing paths are returned unchanged.
func resolveRemote(projectDir, remote string) (string, error) {
	if strings.Contains(remote, "://") || strings.HasPrefix(remote, "git@") {
		return remote, nil
	}
	if info, err := os.Stat(remote); err == nil && info.IsDir() {
		return filepath.Abs(remote)
	}

	repo, err := git.PlainOpenWithOptions(projectDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a git repository: %w", ErrNoRemote, projectDir, err)
	}
	r, err := repo.Remote(remote)
	if err != nil {
		return "", fmt.Errorf("%w: remote %q: %w", ErrNoRemote, remote, err)
	}
	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: remote %q has no URL", ErrNoRemote, remote)
	}
	return urls[0], nil
}

// openCache opens or creates the working clone and points its origin at url.
func openCache(dir, url string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open publish cache %s: %w", dir, err)
	}

	if r, err := repo.Remote(originName); err == nil {
		urls := r.Config().URLs
		if len(urls) == 1 && urls[0] == url {
			return repo, nil
		}
		if err := repo.DeleteRemote(originName); err != nil {
			return nil, fmt.Errorf("reset origin: %w", err)
		}
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: originName, URLs: []string{url}}); err != nil {
		return nil, fmt.Errorf("create origin: %w", err)
	}
	return repo, nil
}

// checkoutBranch points HEAD at the branch and resets the worktree to the
// fetched remote tip. Without a remote tip a local branch is kept, and
// otherwise HEAD is left on an unborn branch.
func checkoutBranch(repo *git.Repository, wt *git.Worktree, local, remote plumbing.ReferenceName) error {
	var tip plumbing.Hash
	if ref, err := repo.Reference(remote, true); err == nil {
		tip = ref.Hash()
		if err := repo.Storer.SetReference(plumbing.NewHashReference(local, tip)); err != nil {
			return fmt.Errorf("update %s: %w", local.Short(), err)
		}
	} else if ref, err := repo.Reference(local, true); err == nil {
		tip = ref.Hash()
	}

	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, local)); err != nil {
		return fmt.Errorf("switch to %s: %w", local.Short(), err)
	}
	if tip.IsZero() {
		return nil
	}
	if err := wt.Reset(&git.ResetOptions{Commit: tip, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", tip, err)
	}
	return nil
}

// replaceTree empties dst, except for .git, and copies src into it.
func replaceTree(dst, src string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		return fmt.Errorf("read %s: %w", dst, err)
	}
	for _, e := range entries {
		if e.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dst, e.Name())); err != nil {
			return fmt.Errorf("clear %s: %w", dst, err)
		}
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if _, err := fsops.CopyFile(filepath.Join(dst, rel), path); err != nil {
			return err
		}
		return nil
	})
}

// signature uses the global git identity when there is one.
func signature(when time.Time) *object.Signature {
	sig := &object.Signature{Name: "stipple", Email: "stipple@localhost", When: when}
	if cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope); err == nil {
		if cfg.User.Name != "" {
			sig.Name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
	}
	return sig
}

func authFor(url, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil
	}
	return &githttp.BasicAuth{Username: "token", Password: token}
}

// redact hides credentials embedded in a URL.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return url
}
