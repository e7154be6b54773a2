// Package githook polls a git repository for moved branch and tag heads
// and runs the repository's parci taskfile for each changed ref. Seen
// heads are persisted in a key/value table named after the repository, so
// a restart does not replay old builds.
package githook

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/jeramey/parci/internal/logging"
	"github.com/jeramey/parci/internal/storage"
)

// TaskfileName is the file fetched from each changed ref.
const TaskfileName = "parci.taskfile"

// StateTable is the slice of the key/value collaborator the hook needs:
// ref name → last seen commit hash.
type StateTable interface {
	Items(ctx context.Context) ([]storage.Item, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// RunFunc executes the extracted taskfile. dir is a fresh working
// directory containing TaskfileName; env holds GIT_URL plus BRANCH_NAME
// or TAG_NAME.
type RunFunc func(ctx context.Context, dir string, env map[string]string) error

// Hook polls one repository.
type Hook struct {
	Repo   string
	State  StateTable
	Run    RunFunc
	Logger *slog.Logger
}

// defaultRun re-invokes the parci binary against the extracted taskfile.
func defaultRun(ctx context.Context, dir string, env map[string]string) error {
	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "parci", "run", filepath.Join("..", TaskfileName))
	cmd.Dir = work
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Poll fetches the remote's current heads, updates the state table, and
// runs the taskfile for every ref whose head moved. A failed build logs
// and moves on; the head is still recorded so it is not retried forever.
func (h *Hook) Poll(ctx context.Context) error {
	if h.Repo == "" {
		return fmt.Errorf("githook: repository is required")
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	run := h.Run
	if run == nil {
		run = defaultRun
	}
	ctx = logging.WithRepo(ctx, h.Repo)

	out, err := exec.CommandContext(ctx, "git", "ls-remote", h.Repo).Output()
	if err != nil {
		return fmt.Errorf("git ls-remote %s: %w", h.Repo, err)
	}
	heads := ParseRefs(string(out))

	prevItems, err := h.State.Items(ctx)
	if err != nil {
		return fmt.Errorf("read hook state: %w", err)
	}
	prev := make(map[string]string, len(prevItems))
	for _, it := range prevItems {
		prev[it.Key] = it.Value
	}

	changed, removed := diffHeads(prev, heads)
	for _, name := range removed {
		if err := h.State.Delete(ctx, name); err != nil {
			return fmt.Errorf("update hook state: %w", err)
		}
	}
	for name, hash := range heads {
		if err := h.State.Set(ctx, name, hash); err != nil {
			return fmt.Errorf("update hook state: %w", err)
		}
	}

	for _, ref := range changed {
		refCtx := logging.WithRef(ctx, ref)
		if err := h.buildRef(refCtx, ref, run); err != nil {
			logger.ErrorContext(refCtx, "build failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// diffHeads compares the previously seen heads against the remote's
// current ones. changed holds new or moved refs in sorted order; removed
// holds refs that vanished from the remote.
func diffHeads(prev, heads map[string]string) (changed, removed []string) {
	for name := range prev {
		if _, ok := heads[name]; !ok {
			removed = append(removed, name)
		}
	}
	for name, hash := range heads {
		if prev[name] != hash {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}

func (h *Hook) buildRef(ctx context.Context, ref string, run RunFunc) error {
	taskfile, err := fetchTaskfile(ctx, h.Repo, ref)
	if err != nil {
		logger := h.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.InfoContext(ctx, "skipping ref: no taskfile")
		return nil
	}

	dir, err := os.MkdirTemp("", "parci-"+strings.ReplaceAll(ref, "/", "_")+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, TaskfileName), taskfile, 0o644); err != nil {
		return err
	}

	return run(ctx, dir, refEnv(h.Repo, ref))
}

// refEnv builds the build environment for a ref: GIT_URL always, plus
// BRANCH_NAME or TAG_NAME when the ref is a branch or tag.
func refEnv(repo, ref string) map[string]string {
	env := map[string]string{"GIT_URL": repo}
	if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		env["BRANCH_NAME"] = name
	} else if name, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
		env["TAG_NAME"] = name
	}
	return env
}

// fetchTaskfile pulls just the taskfile from a remote ref via
// `git archive --format=zip`.
func fetchTaskfile(ctx context.Context, repo, ref string) ([]byte, error) {
	out, err := exec.CommandContext(ctx,
		"git", "archive", "--format=zip", "--remote", repo, ref, TaskfileName,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("git archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != TaskfileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("archive has no %s", TaskfileName)
}

// ParseRefs parses `git ls-remote` output into ref name → hash, skipping
// the symbolic HEAD entry.
func ParseRefs(out string) map[string]string {
	heads := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] == "HEAD" {
			continue
		}
		heads[fields[1]] = fields[0]
	}
	return heads
}

// Watch polls on a cron schedule until ctx is canceled. An empty spec
// polls once a minute.
func (h *Hook) Watch(ctx context.Context, spec string) error {
	if spec == "" {
		spec = "* * * * *"
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := h.Poll(ctx); err != nil {
			logger.ErrorContext(ctx, "poll failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("cron schedule %q: %w", spec, err)
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}
