package level

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tandemgrid/internal/task"
)

func ids(lvl []task.Task) []string {
	out := make([]string, 0, len(lvl))
	for _, t := range lvl {
		out = append(out, t.ID)
	}
	return out
}

func levelIDs(levels [][]task.Task) [][]string {
	out := make([][]string, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, ids(lvl))
	}
	return out
}

func TestLevel_EmptyInput(t *testing.T) {
	t.Parallel()

	levels, err := Level(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestLevel_DuplicateID(t *testing.T) {
	t.Parallel()

	_, err := Level(context.Background(), []task.Task{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate task id")
}

func TestLevel_PriorityTieBreakWithinLevel(t *testing.T) {
	t.Parallel()

	// The canonical scenario: A and C are roots, B depends on A. A sorts
	// before C at level 0 because of its lower priority value.
	tasks := []task.Task{
		{ID: "B", Priority: 1, DependsOn: []string{"A"}},
		{ID: "C", Priority: 2},
		{ID: "A", Priority: 1},
	}

	levels, err := Level(context.Background(), tasks)
	require.NoError(t, err)

	want := [][]string{{"A", "C"}, {"B"}}
	if diff := cmp.Diff(want, levelIDs(levels)); diff != "" {
		t.Errorf("unexpected levels (-want +got):\n%s", diff)
	}
}

func TestLevel_DependenciesAlwaysEarlier(t *testing.T) {
	t.Parallel()

	tasks := []task.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a", "b"}},
		{ID: "d", DependsOn: []string{"b"}},
		{ID: "e", DependsOn: []string{"c", "d"}},
		{ID: "f"},
	}

	levels, err := Level(context.Background(), tasks)
	require.NoError(t, err)

	levelOf := map[string]int{}
	for i, lvl := range levels {
		for _, tk := range lvl {
			levelOf[tk.ID] = i
		}
	}

	for _, tk := range tasks {
		for _, dep := range tk.DependsOn {
			assert.Less(t, levelOf[dep], levelOf[tk.ID],
				"dependency %s of %s must be in an earlier level", dep, tk.ID)
		}
	}
}

func TestLevel_MissingDependencyIsSatisfied(t *testing.T) {
	t.Parallel()

	tasks := []task.Task{
		{ID: "a", DependsOn: []string{"ghost"}},
		{ID: "b", DependsOn: []string{"a"}},
	}

	levels, err := Level(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, []string{"a"}, ids(levels[0]))
	assert.Equal(t, []string{"b"}, ids(levels[1]))
}

func TestLevel_Determinism(t *testing.T) {
	t.Parallel()

	tasks := []task.Task{
		{ID: "w", Priority: 3},
		{ID: "x", Priority: 1, DependsOn: []string{"w"}},
		{ID: "y", Priority: 1},
		{ID: "z", Priority: 2, DependsOn: []string{"y", "w"}},
	}

	first, err := Level(context.Background(), tasks)
	require.NoError(t, err)

	for range 10 {
		again, err := Level(context.Background(), tasks)
		require.NoError(t, err)
		if diff := cmp.Diff(levelIDs(first), levelIDs(again)); diff != "" {
			t.Fatalf("leveling is not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestLevel_CycleTerminatesAndIsComplete(t *testing.T) {
	t.Parallel()

	t.Run("two task cycle", func(t *testing.T) {
		t.Parallel()
		tasks := []task.Task{
			{ID: "A", Priority: 1, DependsOn: []string{"B"}},
			{ID: "B", Priority: 2, DependsOn: []string{"A"}},
		}

		levels, err := Level(context.Background(), tasks)
		require.NoError(t, err)

		seen := map[string]int{}
		for _, lvl := range levels {
			for _, tk := range lvl {
				seen[tk.ID]++
			}
		}
		assert.Equal(t, map[string]int{"A": 1, "B": 1}, seen)
	})

	t.Run("cycle broken by lowest priority value", func(t *testing.T) {
		t.Parallel()
		tasks := []task.Task{
			{ID: "A", Priority: 5, DependsOn: []string{"C"}},
			{ID: "B", Priority: 1, DependsOn: []string{"A"}},
			{ID: "C", Priority: 9, DependsOn: []string{"B"}},
		}

		levels, err := Level(context.Background(), tasks)
		require.NoError(t, err)

		// B has the lowest priority value, so it is forced first and the
		// rest of the chain unwinds behind it.
		require.NotEmpty(t, levels)
		assert.Equal(t, []string{"B"}, ids(levels[0]))

		total := 0
		for _, lvl := range levels {
			require.NotEmpty(t, lvl)
			total += len(lvl)
		}
		assert.Equal(t, len(tasks), total)
	})

	t.Run("cycle plus independent tasks", func(t *testing.T) {
		t.Parallel()
		tasks := []task.Task{
			{ID: "loop1", Priority: 1, DependsOn: []string{"loop2"}},
			{ID: "loop2", Priority: 2, DependsOn: []string{"loop1"}},
			{ID: "free", Priority: 1},
		}

		levels, err := Level(context.Background(), tasks)
		require.NoError(t, err)

		seen := map[string]int{}
		for i, lvl := range levels {
			require.NotEmpty(t, lvl, "level %d must not be empty", i)
			for _, tk := range lvl {
				seen[tk.ID]++
			}
		}
		assert.Equal(t, map[string]int{"loop1": 1, "loop2": 1, "free": 1}, seen)
	})
}
