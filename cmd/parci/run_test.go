package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTaskfile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "parci.taskfile")
	body := "package main\n\n" +
		"import \"github.com/jeramey/parci/pkg/task\"\n\n" +
		"func main() {\n" +
		"\t_ = task.NewGraph()\n" +
		"}\n"
	require.NoError(t, os.WriteFile(src, []byte(body), 0o644))

	dir, cleanup, err := stageTaskfile(src)
	require.NoError(t, err)
	defer cleanup()

	staged, err := os.ReadFile(filepath.Join(dir, "taskfile.go"))
	require.NoError(t, err)
	assert.Equal(t, body, string(staged))

	// The staged go.mod gives the go tool a module root; without it, any
	// taskfile with a non-stdlib import fails to resolve.
	gomod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	require.NoError(t, err)
	assert.Contains(t, string(gomod), "module taskfile")
}

func TestStageTaskfileCleanup(t *testing.T) {
	src := filepath.Join(t.TempDir(), "parci.taskfile")
	require.NoError(t, os.WriteFile(src, []byte("package main\n\nfunc main() {}\n"), 0o644))

	dir, cleanup, err := stageTaskfile(src)
	require.NoError(t, err)
	cleanup()

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestStageTaskfileMissing(t *testing.T) {
	_, _, err := stageTaskfile(filepath.Join(t.TempDir(), "nope.taskfile"))
	assert.Error(t, err)
}
