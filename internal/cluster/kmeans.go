// Package cluster groups resolved-comment embeddings into recurring
// resolution patterns using partition-based clustering.
package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"discern/internal/common"
	"discern/internal/model"
)

const maxIterations = 100

// Point is one resolved record's embedded comment.
type Point struct {
	OrderID string
	Comment string
	Vector  []float32
}

// Result holds the outcome of one clustering pass over a complete batch.
type Result struct {
	Assignments []model.ClusterAssignment
	Patterns    []model.Pattern
	K           int
}

// Run partitions the points into at most k clusters with k-means. The seed
// fixes centroid initialization so identical input reproduces identical
// clusters across runs. Fewer points than k degrades to one cluster per
// point. Degenerate input (no points, inconsistent dimensions, non-finite
// values) fails with ErrClusteringFailure; callers degrade to no clustering.
func Run(points []Point, k int, seed int64) (*Result, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points to cluster", common.ErrClusteringFailure)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: cluster count must be positive, got %d", common.ErrClusteringFailure, k)
	}

	vectors, err := toFloat64(points)
	if err != nil {
		return nil, err
	}

	if k > len(points) {
		k = len(points)
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(vectors, k, rng)

	assignment := make([]int, len(vectors))
	for iter := 0; iter < maxIterations; iter++ {
		changed := assignPoints(vectors, centroids, assignment)
		recomputeCentroids(vectors, assignment, centroids)
		repairEmptyClusters(vectors, assignment, centroids)
		if !changed && iter > 0 {
			break
		}
	}

	return buildResult(points, vectors, centroids, assignment, k), nil
}

func toFloat64(points []Point) ([][]float64, error) {
	dim := len(points[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension vectors", common.ErrClusteringFailure)
	}

	vectors := make([][]float64, len(points))
	for i, p := range points {
		if len(p.Vector) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d",
				common.ErrClusteringFailure, i, len(p.Vector), dim)
		}
		v := make([]float64, dim)
		for j, x := range p.Vector {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: non-finite value in vector %d", common.ErrClusteringFailure, i)
			}
			v[j] = f
		}
		vectors[i] = v
	}
	return vectors, nil
}

// seedCentroids picks initial centroids k-means++ style: the first uniformly
// at random, each subsequent one weighted by squared distance to the nearest
// centroid chosen so far.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rng.Intn(len(vectors))
	centroids = append(centroids, append([]float64(nil), vectors[first]...))

	dists := make([]float64, len(vectors))
	for len(centroids) < k {
		total := 0.0
		for i, v := range vectors {
			d := math.Inf(1)
			for _, c := range centroids {
				if sq := sqDistance(v, c); sq < d {
					d = sq
				}
			}
			dists[i] = d
			total += d
		}

		var next int
		if total == 0 {
			// All remaining points coincide with a centroid; any pick works.
			next = rng.Intn(len(vectors))
		} else {
			target := rng.Float64() * total
			for i, d := range dists {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), vectors[next]...))
	}
	return centroids
}

func assignPoints(vectors, centroids [][]float64, assignment []int) bool {
	changed := false
	for i, v := range vectors {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDistance(v, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		if assignment[i] != best {
			assignment[i] = best
			changed = true
		}
	}
	return changed
}

func recomputeCentroids(vectors [][]float64, assignment []int, centroids [][]float64) {
	dim := len(vectors[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}

	for i, v := range vectors {
		c := assignment[i]
		counts[c]++
		for j, x := range v {
			sums[c][j] += x
		}
	}

	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

// repairEmptyClusters reseeds any cluster that lost all members with the
// point farthest from its current centroid, so the configured cluster count
// survives degenerate geometry.
func repairEmptyClusters(vectors [][]float64, assignment []int, centroids [][]float64) {
	counts := make([]int, len(centroids))
	for _, c := range assignment {
		counts[c]++
	}

	for c := range centroids {
		if counts[c] > 0 {
			continue
		}

		farthest, farthestDist := -1, -1.0
		for i, v := range vectors {
			// Only steal from clusters that can spare a member.
			if counts[assignment[i]] <= 1 {
				continue
			}
			if d := sqDistance(v, centroids[assignment[i]]); d > farthestDist {
				farthest, farthestDist = i, d
			}
		}
		if farthest < 0 {
			continue
		}

		counts[assignment[farthest]]--
		assignment[farthest] = c
		counts[c] = 1
		copy(centroids[c], vectors[farthest])
	}
}

func buildResult(points []Point, vectors, centroids [][]float64, assignment []int, k int) *Result {
	assignments := make([]model.ClusterAssignment, len(points))
	exemplar := make([]int, k)
	exemplarDist := make([]float64, k)
	sizes := make([]int, k)
	for c := range exemplar {
		exemplar[c] = -1
		exemplarDist[c] = math.Inf(1)
	}

	for i, p := range points {
		c := assignment[i]
		d := math.Sqrt(sqDistance(vectors[i], centroids[c]))
		assignments[i] = model.ClusterAssignment{
			OrderID:  p.OrderID,
			Cluster:  c,
			Distance: d,
		}
		sizes[c]++
		if d < exemplarDist[c] {
			exemplar[c] = i
			exemplarDist[c] = d
		}
	}

	patterns := make([]model.Pattern, 0, k)
	for c := 0; c < k; c++ {
		if exemplar[c] < 0 {
			continue
		}
		patterns = append(patterns, model.Pattern{
			Cluster:         c,
			Exemplar:        points[exemplar[c]].Comment,
			ExemplarOrderID: points[exemplar[c]].OrderID,
			Size:            sizes[c],
		})
	}

	return &Result{
		Assignments: assignments,
		Patterns:    patterns,
		K:           k,
	}
}

func sqDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
