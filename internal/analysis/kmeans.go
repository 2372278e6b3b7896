package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/willfong/card-spend/internal/utils"
)

const (
	kmeansRestarts = 10
	kmeansMaxIter  = 300
)

type kmeansResult struct {
	labels     []int
	centroids  [][]float64
	inertia    float64
	iterations int
}

// kmeans clusters points into k groups with Lloyd's algorithm from
// k-means++ seeds, keeping the restart with the lowest inertia. Each restart
// draws from its own fork of rng.
func kmeans(points [][]float64, k int, rng *utils.Random) kmeansResult {
	best := kmeansResult{inertia: math.Inf(1)}
	for _, stream := range rng.ForkN(kmeansRestarts) {
		res := lloyd(points, seedCentroids(points, k, stream))
		if res.inertia < best.inertia {
			best = res
		}
	}
	return best
}

// seedCentroids picks the first centroid uniformly and each further one with
// probability proportional to its squared distance from the nearest chosen
// centroid.
func seedCentroids(points [][]float64, k int, rng *utils.Random) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clonePoint(points[rng.IntN(len(points))]))

	weights := make([]float64, len(points))
	for len(centroids) < k {
		for i, p := range points {
			_, weights[i] = nearest(p, centroids)
		}
		centroids = append(centroids, clonePoint(points[rng.WeightedPickFloat(weights)]))
	}
	return centroids
}

func lloyd(points, centroids [][]float64) kmeansResult {
	k, dim := len(centroids), len(points[0])
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iterations < kmeansMaxIter {
		iterations++
		changed := false
		for i, p := range points {
			if c, _ := nearest(p, centroids); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		// An emptied cluster keeps its previous centroid
		for c := range centroids {
			if counts[c] > 0 {
				floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
			}
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[labels[i]])
	}
	return kmeansResult{labels: labels, centroids: centroids, inertia: inertia, iterations: iterations}
}

// nearest returns the index of the closest centroid and the squared distance
// to it. Ties go to the lower index.
func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clonePoint(p []float64) []float64 {
	return append([]float64(nil), p...)
}
