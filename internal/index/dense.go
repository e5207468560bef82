package index

import (
	"math"
	"sort"

	"hermes/config"
)

// Hit is one retrieval result: a chunk id and its score.
type Hit struct {
	ID    int
	Score float32
}

// Dense is a vector similarity index over the chunk embedding matrix.
// Scores are inner products; on L2-normalized vectors they equal cosine
// similarity and fall in [-1, 1].
type Dense interface {
	// Search returns up to k hits in descending score, ties broken by
	// ascending chunk id. k > N returns all; an empty index returns nil.
	Search(query []float32, k int) []Hit

	NTotal() int
	Dim() int

	// WriteFile serializes the index to a single file that Load
	// reconstructs with identical search behavior.
	WriteFile(path string) error
}

// BuildDense picks the implementation for a corpus: IVF when configured
// and the corpus is large enough to train its centroids, Flat otherwise.
func BuildDense(cfg config.IndexConfig, matrix [][]float32, dim int) Dense {
	if cfg.UseIVF && len(matrix) > cfg.IVFNList*40 {
		return BuildIVF(matrix, dim, cfg.IVFNList, cfg.NProbe)
	}
	return NewFlat(matrix, dim)
}

// Flat is the exact index: inner product over every vector. Default for
// corpora under ~100k chunks.
type Flat struct {
	dim  int
	vecs []float32 // row-major (n, dim)
}

func NewFlat(matrix [][]float32, dim int) *Flat {
	f := &Flat{dim: dim, vecs: make([]float32, 0, len(matrix)*dim)}
	for _, row := range matrix {
		f.vecs = append(f.vecs, row...)
	}
	return f
}

func (f *Flat) NTotal() int { return len(f.vecs) / max(f.dim, 1) }

func (f *Flat) Dim() int { return f.dim }

func (f *Flat) Search(query []float32, k int) []Hit {
	n := f.NTotal()
	if n == 0 || k <= 0 {
		return nil
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{ID: i, Score: dot(query, f.vecs[i*f.dim:(i+1)*f.dim])}
	}
	return topK(hits, k)
}

// IVF is the approximate index: vectors are partitioned by nearest of
// nlist trained centroids, and queries probe only the nprobe closest
// partitions.
type IVF struct {
	dim       int
	nprobe    int
	centroids []float32 // (nlist, dim)
	listIDs   [][]int32
	listVecs  [][]float32 // per list, row-major
	total     int
}

// BuildIVF trains centroids on the corpus and assigns every vector to its
// nearest partition.
func BuildIVF(matrix [][]float32, dim, nlist, nprobe int) *IVF {
	if nlist > len(matrix) {
		nlist = len(matrix)
	}
	if nlist < 1 {
		nlist = 1
	}
	if nprobe < 1 {
		nprobe = 1
	}

	centroids := trainKMeans(matrix, dim, nlist)

	idx := &IVF{
		dim:       dim,
		nprobe:    nprobe,
		centroids: centroids,
		listIDs:   make([][]int32, nlist),
		listVecs:  make([][]float32, nlist),
		total:     len(matrix),
	}

	for i, row := range matrix {
		list := nearestCentroid(row, centroids, dim)
		idx.listIDs[list] = append(idx.listIDs[list], int32(i))
		idx.listVecs[list] = append(idx.listVecs[list], row...)
	}

	return idx
}

func (v *IVF) NTotal() int { return v.total }

func (v *IVF) Dim() int { return v.dim }

func (v *IVF) Search(query []float32, k int) []Hit {
	if v.total == 0 || k <= 0 {
		return nil
	}

	nlist := len(v.listIDs)
	order := make([]Hit, nlist)
	for i := 0; i < nlist; i++ {
		order[i] = Hit{ID: i, Score: dot(query, v.centroids[i*v.dim:(i+1)*v.dim])}
	}
	probed := topK(order, min(v.nprobe, nlist))

	var hits []Hit
	for _, p := range probed {
		ids := v.listIDs[p.ID]
		vecs := v.listVecs[p.ID]
		for j, id := range ids {
			hits = append(hits, Hit{ID: int(id), Score: dot(query, vecs[j*v.dim:(j+1)*v.dim])})
		}
	}
	return topK(hits, k)
}

// topK sorts hits by descending score with ascending-id tie-break and
// truncates to k.
func topK(hits []Hit, k int) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func nearestCentroid(vec, centroids []float32, dim int) int {
	best, bestScore := 0, float32(-2)
	for i := 0; i*dim < len(centroids); i++ {
		if s := dot(vec, centroids[i*dim:(i+1)*dim]); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// trainKMeans runs a few rounds of spherical k-means with deterministic
// strided seeding. Vectors are unit length, so maximizing inner product
// matches minimizing euclidean distance.
func trainKMeans(matrix [][]float32, dim, nlist int) []float32 {
	const rounds = 10

	centroids := make([]float32, nlist*dim)
	stride := len(matrix) / nlist
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < nlist; i++ {
		copy(centroids[i*dim:(i+1)*dim], matrix[(i*stride)%len(matrix)])
	}

	assign := make([]int, len(matrix))
	for r := 0; r < rounds; r++ {
		changed := false
		for i, row := range matrix {
			c := nearestCentroid(row, centroids, dim)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if r > 0 && !changed {
			break
		}

		sums := make([]float32, nlist*dim)
		counts := make([]int, nlist)
		for i, row := range matrix {
			c := assign[i]
			counts[c]++
			for d, x := range row {
				sums[c*dim+d] += x
			}
		}
		for c := 0; c < nlist; c++ {
			if counts[c] == 0 {
				continue // empty cluster keeps its old centroid
			}
			vec := sums[c*dim : (c+1)*dim]
			normalize(vec)
			copy(centroids[c*dim:(c+1)*dim], vec)
		}
	}

	return centroids
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
