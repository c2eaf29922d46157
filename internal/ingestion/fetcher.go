package ingestion

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const workspacePrefix = "aerae_git_"

// Workspace is a cloned repository on local disk. Close removes it.
type Workspace struct {
	Dir string

	once sync.Once
	err  error
}

func (w *Workspace) Close() error {
	w.once.Do(func() {
		if _, err := os.Stat(w.Dir); os.IsNotExist(err) {
			zap.S().Named("ingestion").Debugf("workspace already removed: %s", w.Dir)
			return
		}
		if err := os.RemoveAll(w.Dir); err != nil {
			zap.S().Named("ingestion").Errorf("failed to clean up %s: %v", w.Dir, err)
			w.err = err
			return
		}
		zap.S().Named("ingestion").Debugf("cleaned up workspace %s", w.Dir)
	})
	return w.err
}

type Fetcher struct {
	gitPath string
}

func NewFetcher(gitPath string) *Fetcher {
	if gitPath == "" {
		gitPath = "git"
	}
	return &Fetcher{gitPath: gitPath}
}

// Clone makes a shallow single branch clone of repoURL into a fresh temporary directory.
// The caller owns the returned workspace and must Close it.
func (f *Fetcher) Clone(ctx context.Context, repoURL string) (*Workspace, error) {
	if err := ValidateURL(repoURL); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", workspacePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create workspace")
	}
	ws := &Workspace{Dir: dir}

	zap.S().Named("ingestion").Infof("cloning %s into %s", repoURL, dir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.gitPath, "clone", "--depth", "1", "--single-branch", repoURL, dir)
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := cmd.Run(); err != nil {
		_ = ws.Close()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.Wrap(err, msg)
		}
		return nil, NewErrCloneFailed(repoURL, err)
	}

	return ws, nil
}

// WithWorkspace clones repoURL, runs fn on the workspace and removes it on every exit path.
func (f *Fetcher) WithWorkspace(ctx context.Context, repoURL string, fn func(ws *Workspace) error) error {
	ws, err := f.Clone(ctx, repoURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = ws.Close()
	}()

	return fn(ws)
}
