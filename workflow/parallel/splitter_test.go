package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NumberedList(t *testing.T) {
	text := `Build the following:
1. Implement the REST handler
2. Write the database migration
3. Add integration tests
4. Document the API
`
	packages := Split("task1", text)
	require.Len(t, packages, 4)
	assert.Equal(t, "task1-wp1", packages[0].ID)
	assert.Contains(t, packages[0].Inputs, "REST handler")
}

func TestSplit_FallsBackToWholeTaskWhenNoStructure(t *testing.T) {
	packages := Split("task2", "write a single cohesive essay about gophers")
	require.Len(t, packages, 1)
	assert.Equal(t, "task2-wp1", packages[0].ID)
}

func TestSplit_SyntheticDependenciesEveryThirdGroup(t *testing.T) {
	text := "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n"
	packages := Split("task3", text)
	require.Len(t, packages, 6)
	assert.Empty(t, packages[0].Dependencies)
	assert.Empty(t, packages[2].Dependencies)
	assert.ElementsMatch(t, []string{"task3-wp1", "task3-wp2", "task3-wp3"}, packages[3].Dependencies)
}

func TestBatch_OrdersByDependencyLayer(t *testing.T) {
	packages := []WorkPackage{
		{ID: "a"},
		{ID: "b"},
		{ID: "c", Dependencies: []string{"a", "b"}},
	}
	batches, err := Batch(packages)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
	assert.Equal(t, "c", batches[1][0].ID)
}

func TestBatch_DetectsCycle(t *testing.T) {
	packages := []WorkPackage{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}
	_, err := Batch(packages)
	require.Error(t, err)
}

func TestAssign_RoundRobinWithRingBackups(t *testing.T) {
	nodes := []NodeCapabilities{
		{NodeID: "n1"}, {NodeID: "n2"}, {NodeID: "n3"},
	}
	packages := []WorkPackage{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}, {ID: "p4"}}
	out := Assign(packages, nodes, len(packages))

	assert.Equal(t, "n1", out[0].AssignedNode)
	assert.Equal(t, []string{"n2", "n3"}, out[0].BackupNodes)
	assert.Equal(t, "n2", out[1].AssignedNode)
	assert.Equal(t, "n1", out[3].AssignedNode) // wraps back around
}
