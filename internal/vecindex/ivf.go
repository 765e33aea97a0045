// Package vecindex 实现一个进程内的 IVF Flat 近似最近邻索引。
// 向量在插入和查询时都做 L2 归一化，因此内积即余弦相似度。
// 粗量化用带固定种子的球面 k-means 训练，查询时只扫描 nprobe 个最近的簇。
package vecindex

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

const (
	trainSeed         = 42
	defaultIterations = 10
)

// ErrDimension 查询或插入向量的维度与索引不一致
var ErrDimension = errors.New("vecindex: 向量维度不匹配")

// Hit 一条检索命中
type Hit struct {
	ID    int
	Score float32
}

// Options 构建参数
type Options struct {
	// Clusters 目标簇数，构建时会收紧到不超过向量数（至少 1）
	Clusters int
	// Nprobe 查询时扫描的簇数，会收紧到不超过实际簇数
	Nprobe int
	// MaxIterations k-means 最大迭代轮数，<=0 取默认值
	MaxIterations int
}

type entry struct {
	id  int
	vec []float32 // 已归一化
}

type location struct {
	list int
	off  int
}

// Index 搜索就绪的 IVF 索引句柄
// 内部用读写锁保护：并发 Search 之间无锁竞争，增量 Add 持写锁。
// 全量重建不在句柄内完成，由调用方新建句柄后原子替换。
type Index struct {
	mu        sync.RWMutex
	dim       int
	nprobe    int
	centroids [][]float32 // 已归一化
	lists     [][]entry
	posToID   []int
	idToPos   map[int]int
	idToLoc   map[int]location
}

// Build 从平行的向量与 id 序列构建索引
// ids 的顺序决定内部行位置（调用方按 id 升序扫描以保证位置稳定）。
// 零条输入得到一个合法的空索引，任何查询返回空结果。
func Build(vectors [][]float32, ids []int, opts Options) (*Index, error) {
	if len(vectors) != len(ids) {
		return nil, fmt.Errorf("vecindex: 向量数 %d 与 id 数 %d 不一致", len(vectors), len(ids))
	}

	idx := &Index{
		nprobe:  opts.Nprobe,
		idToPos: make(map[int]int, len(ids)),
		idToLoc: make(map[int]location, len(ids)),
	}
	if idx.nprobe <= 0 {
		idx.nprobe = 1
	}
	if len(vectors) == 0 {
		return idx, nil
	}

	idx.dim = len(vectors[0])
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != idx.dim {
			return nil, fmt.Errorf("%w: 第 %d 行期望 %d 实际 %d", ErrDimension, i, idx.dim, len(v))
		}
		normalized[i] = Normalize(v)
	}

	// 簇数不能超过向量数，否则 k-means 必然产生空簇
	clusters := opts.Clusters
	if clusters > len(vectors) {
		clusters = len(vectors)
	}
	if clusters < 1 {
		clusters = 1
	}

	iterations := opts.MaxIterations
	if iterations <= 0 {
		iterations = defaultIterations
	}

	rng := rand.New(rand.NewSource(trainSeed))
	idx.centroids = trainKMeans(normalized, clusters, iterations, rng)

	idx.lists = make([][]entry, len(idx.centroids))
	idx.posToID = make([]int, 0, len(ids))
	for i, vec := range normalized {
		list := nearestCentroid(vec, idx.centroids)
		idx.lists[list] = append(idx.lists[list], entry{id: ids[i], vec: vec})
		idx.idToLoc[ids[i]] = location{list: list, off: len(idx.lists[list]) - 1}
		idx.idToPos[ids[i]] = len(idx.posToID)
		idx.posToID = append(idx.posToID, ids[i])
	}

	return idx, nil
}

// Len 索引中的向量条数
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.posToID)
}

// Dim 向量维度（空索引返回 0）
func (idx *Index) Dim() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Contains 判断 id 是否在索引中
func (idx *Index) Contains(id int) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.idToLoc[id]
	return ok
}

// IDs 返回索引内全部 id（按行位置顺序的副本）
func (idx *Index) IDs() []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]int, len(idx.posToID))
	copy(out, idx.posToID)
	return out
}

// Search 查询与 query 最相近的至多 k 条记录，按相似度降序
// 查询向量先做 L2 归一化；同分时按 id 升序保证结果可复现。
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.posToID) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: 期望 %d 实际 %d", ErrDimension, idx.dim, len(query))
	}

	q := Normalize(query)

	// 选出 nprobe 个最近的簇
	nprobe := idx.nprobe
	if nprobe > len(idx.centroids) {
		nprobe = len(idx.centroids)
	}
	probes := nearestCentroids(q, idx.centroids, nprobe)

	hits := make([]Hit, 0, k)
	for _, list := range probes {
		for _, e := range idx.lists[list] {
			if e.id < 0 || e.vec == nil {
				// 防御底层结构的哨兵位，绝不作为有效 id 返回
				continue
			}
			hits = append(hits, Hit{ID: e.id, Score: Dot(q, e.vec)})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Add 增量插入（或就地更新）一条向量
// 新 id 追加到最近簇的倒排表尾部并分配新行位置；已有 id 只替换向量，
// 位置保持不变（对应编辑描述后的重嵌入）。
func (idx *Index) Add(id int, vec []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dim == 0 {
		// 空索引上第一条插入：以该向量自身为唯一质心
		idx.dim = len(vec)
		v := Normalize(vec)
		idx.centroids = [][]float32{v}
		idx.lists = [][]entry{{{id: id, vec: v}}}
		idx.idToLoc = map[int]location{id: {list: 0, off: 0}}
		idx.idToPos = map[int]int{id: 0}
		idx.posToID = []int{id}
		return nil
	}

	if len(vec) != idx.dim {
		return fmt.Errorf("%w: 期望 %d 实际 %d", ErrDimension, idx.dim, len(vec))
	}

	v := Normalize(vec)
	if loc, ok := idx.idToLoc[id]; ok {
		idx.lists[loc.list][loc.off].vec = v
		return nil
	}

	list := nearestCentroid(v, idx.centroids)
	idx.lists[list] = append(idx.lists[list], entry{id: id, vec: v})
	idx.idToLoc[id] = location{list: list, off: len(idx.lists[list]) - 1}
	idx.idToPos[id] = len(idx.posToID)
	idx.posToID = append(idx.posToID, id)
	return nil
}

// trainKMeans 球面 k-means：质心在每轮结束后重新归一化
func trainKMeans(vectors [][]float32, k, iterations int, rng *rand.Rand) [][]float32 {
	dim := len(vectors[0])

	// 随机选 k 个不同的向量作为初始质心
	perm := rng.Perm(len(vectors))
	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		c := make([]float32, dim)
		copy(c, vectors[perm[i]])
		centroids[i] = c
	}

	assign := make([]int, len(vectors))
	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assign[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// 空簇：用随机向量重新播种
				copy(centroids[c], vectors[rng.Intn(len(vectors))])
				continue
			}
			mean := make([]float32, dim)
			for d := range mean {
				mean[d] = float32(sums[c][d] / float64(counts[c]))
			}
			centroids[c] = Normalize(mean)
		}
	}

	return centroids
}

// nearestCentroid 返回内积最大的质心下标
func nearestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestScore := Dot(v, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if s := Dot(v, centroids[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}

// nearestCentroids 返回内积前 n 大的质心下标
func nearestCentroids(v []float32, centroids [][]float32, n int) []int {
	type scored struct {
		idx   int
		score float32
	}
	all := make([]scored, len(centroids))
	for i, c := range centroids {
		all[i] = scored{idx: i, score: Dot(v, c)}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })

	out := make([]int, 0, n)
	for i := 0; i < n && i < len(all); i++ {
		out = append(out, all[i].idx)
	}
	return out
}
