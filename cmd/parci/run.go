package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// cmdRun executes a taskfile: a Go main package (file or directory) that
// builds a task graph with pkg/task and runs it. Single files (the
// conventional parci.taskfile name) are staged into a throwaway module so
// the go tool can resolve their imports; the binary is then run from the
// invoking directory so relative paths and docker mounts behave.
func cmdRun(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("run: exactly one taskfile required")
	}
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	dir := path
	if !info.IsDir() {
		staged, cleanup, err := stageTaskfile(path)
		if err != nil {
			return err
		}
		defer cleanup()
		// Record the taskfile's dependencies in the staged module.
		if err := goTool(staged, "mod", "tidy"); err != nil {
			return err
		}
		dir = staged
	}

	binDir, err := os.MkdirTemp("", "parci-run-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(binDir)
	bin := filepath.Join(binDir, "taskfile")
	if err := goTool(dir, "build", "-o", bin, "."); err != nil {
		return err
	}

	cmd := exec.Command(bin)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Env = os.Environ()
	return cmd.Run()
}

// stageTaskfile copies a standalone taskfile into a temporary module.
// Taskfiles arrive as single files (often straight out of a git ref), so
// they have no enclosing go.mod; the go tool resolves imports from the
// enclosing module of its working directory, not from the file's path.
func stageTaskfile(path string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "parci-taskfile-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	data, err := os.ReadFile(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "taskfile.go"), data, 0o644); err != nil {
		cleanup()
		return "", nil, err
	}
	gomod := "module taskfile\n\ngo 1.25\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644); err != nil {
		cleanup()
		return "", nil, err
	}
	return dir, cleanup, nil
}

func goTool(dir string, args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}
