package githook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeramey/parci/internal/storage"
)

func TestParseRefs(t *testing.T) {
	out := "deadbeef00000000000000000000000000000000\tHEAD\n" +
		"1111111111111111111111111111111111111111\trefs/heads/main\n" +
		"2222222222222222222222222222222222222222\trefs/heads/feature/login\n" +
		"3333333333333333333333333333333333333333\trefs/tags/v1.0.0\n" +
		"\n"

	heads := ParseRefs(out)
	assert.Equal(t, map[string]string{
		"refs/heads/main":          "1111111111111111111111111111111111111111",
		"refs/heads/feature/login": "2222222222222222222222222222222222222222",
		"refs/tags/v1.0.0":         "3333333333333333333333333333333333333333",
	}, heads)
}

func TestParseRefsEmpty(t *testing.T) {
	assert.Empty(t, ParseRefs(""))
	assert.Empty(t, ParseRefs("\n\n"))
	assert.Empty(t, ParseRefs("garbage line without a tab or hash"))
}

// memState is an in-memory StateTable.
type memState struct {
	data map[string]string
}

func newMemState() *memState {
	return &memState{data: make(map[string]string)}
}

func (m *memState) Items(_ context.Context) ([]storage.Item, error) {
	items := make([]storage.Item, 0, len(m.data))
	for k, v := range m.data {
		items = append(items, storage.Item{Key: k, Value: v})
	}
	return items, nil
}

func (m *memState) Set(_ context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memState) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestDiffHeads(t *testing.T) {
	prev := map[string]string{
		"refs/heads/main":  "aaaa",
		"refs/heads/stale": "bbbb",
		"refs/tags/v1":     "eeee",
	}
	heads := map[string]string{
		"refs/heads/main": "cccc", // moved
		"refs/tags/v2":    "dddd", // new
		"refs/tags/v1":    "eeee", // unchanged
	}

	changed, removed := diffHeads(prev, heads)
	assert.Equal(t, []string{"refs/heads/main", "refs/tags/v2"}, changed)
	assert.Equal(t, []string{"refs/heads/stale"}, removed)
}

func TestDiffHeadsFirstPoll(t *testing.T) {
	heads := map[string]string{
		"refs/heads/main": "aaaa",
		"refs/tags/v1":    "bbbb",
	}

	// Nothing seen yet: every ref is changed, nothing is removed.
	changed, removed := diffHeads(nil, heads)
	assert.Equal(t, []string{"refs/heads/main", "refs/tags/v1"}, changed)
	assert.Empty(t, removed)
}

func TestBuildRefEnv(t *testing.T) {
	cases := []struct {
		ref  string
		want map[string]string
	}{
		{"refs/heads/main", map[string]string{"BRANCH_NAME": "main"}},
		{"refs/heads/feature/login", map[string]string{"BRANCH_NAME": "feature/login"}},
		{"refs/tags/v1.0.0", map[string]string{"TAG_NAME": "v1.0.0"}},
		{"refs/pull/7/head", map[string]string{}},
	}
	for _, tc := range cases {
		env := refEnv("https://example.com/repo.git", tc.ref)
		want := map[string]string{"GIT_URL": "https://example.com/repo.git"}
		for k, v := range tc.want {
			want[k] = v
		}
		assert.Equal(t, want, env, "ref %s", tc.ref)
	}
}

func TestPollRequiresRepo(t *testing.T) {
	h := &Hook{State: newMemState()}
	assert.Error(t, h.Poll(context.Background()))
}
