package cluster

import (
	"fmt"
	"testing"

	"discern/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeGroups builds 10 points in three well-separated regions.
func threeGroups() []Point {
	var points []Point
	anchors := [][]float32{{0, 0}, {10, 10}, {-10, 5}}
	counts := []int{4, 3, 3}
	id := 0
	for g, anchor := range anchors {
		for i := 0; i < counts[g]; i++ {
			id++
			points = append(points, Point{
				OrderID: fmt.Sprintf("%d", 1000+id),
				Comment: fmt.Sprintf("group %d comment %d", g, i),
				Vector:  []float32{anchor[0] + float32(i)*0.1, anchor[1] - float32(i)*0.1},
			})
		}
	}
	return points
}

func TestRunProducesExactlyKClusters(t *testing.T) {
	points := threeGroups()

	result, err := Run(points, 3, 42)
	require.NoError(t, err)

	assert.Equal(t, 3, result.K)
	require.Len(t, result.Assignments, 10)

	seen := make(map[int]int)
	for _, a := range result.Assignments {
		assert.GreaterOrEqual(t, a.Cluster, 0)
		assert.Less(t, a.Cluster, 3)
		seen[a.Cluster]++
	}
	assert.Len(t, seen, 3)
}

func TestRunSeparatesObviousGroups(t *testing.T) {
	points := threeGroups()

	result, err := Run(points, 3, 42)
	require.NoError(t, err)

	// All members of a geometric group land in the same cluster.
	byOrder := make(map[string]int)
	for _, a := range result.Assignments {
		byOrder[a.OrderID] = a.Cluster
	}
	assert.Equal(t, byOrder["1001"], byOrder["1004"])
	assert.Equal(t, byOrder["1005"], byOrder["1007"])
	assert.Equal(t, byOrder["1008"], byOrder["1010"])
	assert.NotEqual(t, byOrder["1001"], byOrder["1005"])
	assert.NotEqual(t, byOrder["1005"], byOrder["1008"])
}

func TestRunDegradesWhenFewerPointsThanK(t *testing.T) {
	points := []Point{
		{OrderID: "1", Comment: "a", Vector: []float32{0, 0}},
		{OrderID: "2", Comment: "b", Vector: []float32{5, 5}},
	}

	result, err := Run(points, 3, 42)
	require.NoError(t, err)

	// One cluster per record rather than a failure.
	assert.Equal(t, 2, result.K)
	assert.Len(t, result.Patterns, 2)
	assert.NotEqual(t, result.Assignments[0].Cluster, result.Assignments[1].Cluster)
}

func TestRunIsReproducibleForFixedSeed(t *testing.T) {
	points := threeGroups()

	first, err := Run(points, 3, 7)
	require.NoError(t, err)
	second, err := Run(points, 3, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Patterns, second.Patterns)
}

func TestRunExemplarIsNearestCentroidMember(t *testing.T) {
	points := []Point{
		{OrderID: "1", Comment: "edge low", Vector: []float32{0, 0}},
		{OrderID: "2", Comment: "middle", Vector: []float32{1, 0}},
		{OrderID: "3", Comment: "edge high", Vector: []float32{2, 0}},
	}

	result, err := Run(points, 1, 42)
	require.NoError(t, err)

	require.Len(t, result.Patterns, 1)
	// Centroid is (1,0); the middle point is the pattern exemplar.
	assert.Equal(t, "middle", result.Patterns[0].Exemplar)
	assert.Equal(t, "2", result.Patterns[0].ExemplarOrderID)
	assert.Equal(t, 3, result.Patterns[0].Size)
}

func TestRunIdenticalVectorsDoNotLoopForever(t *testing.T) {
	points := make([]Point, 5)
	for i := range points {
		points[i] = Point{
			OrderID: fmt.Sprintf("%d", i),
			Comment: "same text",
			Vector:  []float32{1, 1, 1},
		}
	}

	result, err := Run(points, 3, 42)
	require.NoError(t, err)
	assert.Len(t, result.Assignments, 5)
	for _, a := range result.Assignments {
		assert.Less(t, a.Cluster, 3)
	}
}

func TestRunDegenerateInput(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		k      int
	}{
		{name: "no points", points: nil, k: 3},
		{name: "zero k", points: []Point{{OrderID: "1", Vector: []float32{1}}}, k: 0},
		{
			name: "dimension mismatch",
			points: []Point{
				{OrderID: "1", Vector: []float32{1, 2}},
				{OrderID: "2", Vector: []float32{1}},
			},
			k: 2,
		},
		{name: "empty vector", points: []Point{{OrderID: "1", Vector: nil}}, k: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.points, tt.k, 42)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrClusteringFailure)
		})
	}
}
