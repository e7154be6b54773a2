package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestGraphAdd(t *testing.T) {
	g := NewGraph()

	a, err := g.Add("build", noop)
	require.NoError(t, err)
	assert.Equal(t, "build", a.Name)
	assert.Same(t, a, g.Lookup("build"))
	assert.Nil(t, g.Lookup("missing"))
}

func TestGraphAddDuplicate(t *testing.T) {
	g := NewGraph()
	_, err := g.Add("build", noop)
	require.NoError(t, err)

	_, err = g.Add("build", noop)
	assert.ErrorContains(t, err, "duplicate task")

	_, err = g.Add("", noop)
	assert.Error(t, err)
}

func TestMustAddPanics(t *testing.T) {
	g := NewGraph()
	g.MustAdd("build", noop)
	assert.Panics(t, func() { g.MustAdd("build", noop) })
}

func TestThenAfterWiring(t *testing.T) {
	g := NewGraph()
	build := g.MustAdd("build", noop)
	test := g.MustAdd("test", noop)
	deploy := g.MustAdd("deploy", noop)

	build.Then(test)
	deploy.After(test)

	assert.ElementsMatch(t, []*Task{test}, build.Children())
	assert.ElementsMatch(t, []*Task{build}, test.Parents())
	assert.ElementsMatch(t, []*Task{deploy}, test.Children())
	assert.ElementsMatch(t, []*Task{test}, deploy.Parents())
}

func TestCollectReachesWholeGraph(t *testing.T) {
	g := NewGraph()
	build := g.MustAdd("build", noop)
	test := g.MustAdd("test", noop)
	deploy := g.MustAdd("deploy", noop)
	lint := g.MustAdd("lint", noop)
	build.Then(test, lint)
	test.Then(deploy)

	// Starting anywhere finds everything: edges are walked both ways.
	assert.ElementsMatch(t, []*Task{build, test, deploy, lint}, Collect(deploy))
	assert.ElementsMatch(t, []*Task{build, test, deploy, lint}, Collect(build))
	assert.ElementsMatch(t, []*Task{build, test, deploy, lint}, Collect(lint, deploy))
}

func TestCollectCycleSafe(t *testing.T) {
	g := NewGraph()
	a := g.MustAdd("a", noop)
	b := g.MustAdd("b", noop)
	a.Then(b)
	b.Then(a)

	assert.ElementsMatch(t, []*Task{a, b}, Collect(a))
}

func TestReady(t *testing.T) {
	ctx := context.Background()
	g := NewGraph()
	build := g.MustAdd("build", noop)
	test := g.MustAdd("test", noop)
	build.Then(test)
	all := Collect(build)

	assert.ElementsMatch(t, []*Task{build}, Ready(all))

	require.NoError(t, build.run(ctx))
	assert.ElementsMatch(t, []*Task{test}, Ready(all))

	require.NoError(t, test.run(ctx))
	assert.Empty(t, Ready(all))
}

func TestReadyBlockedByFailure(t *testing.T) {
	ctx := context.Background()
	g := NewGraph()
	build := g.MustAdd("build", func(context.Context) error {
		return context.DeadlineExceeded
	})
	test := g.MustAdd("test", noop)
	build.Then(test)
	all := Collect(build)

	require.Error(t, build.run(ctx))
	assert.True(t, build.HasRun())
	assert.False(t, build.Succeeded())
	assert.Empty(t, Ready(all), "children of a failed task never become ready")
}
