package docker

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParciIDUnique(t *testing.T) {
	a := parciID("parci-net")
	b := parciID("parci-net")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "parci-net-"))
}

func TestParciIDDockerSafe(t *testing.T) {
	// Docker object names only allow [a-zA-Z0-9][a-zA-Z0-9_.-]*; base32
	// without padding stays inside that.
	id := parciID("parci-vol")
	assert.NotContains(t, id, "=")
	assert.NotContains(t, id, "/")
	assert.NotContains(t, id, "+")
}

func TestWriteEnvFile(t *testing.T) {
	path, cleanup, err := writeEnvFile(map[string]string{
		"GIT_URL":     "https://example.com/repo.git",
		"BRANCH_NAME": "main",
	})
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BRANCH_NAME=main\nGIT_URL=https://example.com/repo.git\n", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup must remove the env file")
}

func TestWriteEnvFileEmpty(t *testing.T) {
	path, cleanup, err := writeEnvFile(nil)
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]string{"c": "", "a": "", "b": ""})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Empty(t, sortedKeys(nil))
}
