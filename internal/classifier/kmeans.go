package classifier

import (
	"math"
	"math/rand/v2"
)

// Partition is the outcome of a k-means run
type Partition struct {
	Labels    []int       // Cluster index of every point
	Centroids [][]float64 // Cluster centres
	Inertia   float64     // Sum of squared distances to the assigned centre
}

// KMeans partitions points into cfg.Clusters groups. It runs Lloyd's algorithm
// cfg.Restarts times from k-means++ seeds drawn from a generator seeded with
// cfg.Seed and keeps the run with the lowest inertia. Identical input and
// configuration always produce the identical partition.
func KMeans(points [][]float64, cfg Config) Partition {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	var best Partition
	for run := 0; run < cfg.Restarts; run++ {
		p := lloyd(points, seedCentroids(points, cfg.Clusters, rng), cfg)
		if run == 0 || p.Inertia < best.Inertia {
			best = p
		}
	}
	return best
}

// seedCentroids picks initial centres with the k-means++ scheme: the first
// uniformly, every next one with probability proportional to the squared
// distance from the nearest centre picked so far.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			dist[i] = math.Inf(1)
			for _, c := range centroids {
				dist[i] = math.Min(dist[i], sqDist(p, c))
			}
			total += dist[i]
		}

		// every point coincides with a centre
		if total == 0 {
			centroids = append(centroids, clone(points[rng.IntN(len(points))]))
			continue
		}

		target := rng.Float64() * total
		idx := len(points) - 1
		for i, d := range dist {
			target -= d
			if target < 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, clone(points[idx]))
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, cfg Config) Partition {
	k := len(centroids)
	dims := len(points[0])
	labels := make([]int, len(points))

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		assign(points, centroids, labels)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			counts[labels[i]]++
			for d, v := range p {
				sums[labels[i]][d] += v
			}
		}

		var shift float64
		for c := range centroids {
			next := sums[c]
			if counts[c] == 0 {
				// re-seed an empty cluster on the point worst served by its centre
				next = clone(points[farthest(points, centroids, labels)])
			} else {
				for d := range next {
					next[d] /= float64(counts[c])
				}
			}
			shift += sqDist(centroids[c], next)
			centroids[c] = next
		}

		if shift <= cfg.Tolerance {
			break
		}
	}

	inertia := assign(points, centroids, labels)
	return Partition{Labels: labels, Centroids: centroids, Inertia: inertia}
}

// assign labels every point with its nearest centre, ties going to the lower
// index, and returns the inertia.
func assign(points, centroids [][]float64, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		bestC, bestD := 0, math.Inf(1)
		for c, centre := range centroids {
			if d := sqDist(p, centre); d < bestD {
				bestC, bestD = c, d
			}
		}
		labels[i] = bestC
		inertia += bestD
	}
	return inertia
}

func farthest(points, centroids [][]float64, labels []int) int {
	idx, maxD := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > maxD {
			idx, maxD = i, d
		}
	}
	return idx
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
