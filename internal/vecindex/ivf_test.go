package vecindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, opts Options) *Index {
	t.Helper()
	vectors := [][]float32{
		{1, 0},
		{0, 1},
		{0.7, 0.7},
	}
	idx, err := Build(vectors, []int{1, 2, 3}, opts)
	require.NoError(t, err)
	return idx
}

func TestBuildAndSearchRanking(t *testing.T) {
	// 查询 [1,0]：movie1 完全对齐，movie3 成 45 度角，movie2 正交
	idx := buildTestIndex(t, Options{Clusters: 100, Nprobe: 8})
	require.Equal(t, 3, idx.Len())

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 1, hits[0].ID)
	assert.Equal(t, 3, hits[1].ID)
	assert.Equal(t, 2, hits[2].ID)

	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-4)
	assert.InDelta(t, 0.7071, float64(hits[1].Score), 1e-3)
	assert.InDelta(t, 0.0, float64(hits[2].Score), 1e-4)
}

func TestSearchLimitsToK(t *testing.T) {
	idx := buildTestIndex(t, Options{Clusters: 100, Nprobe: 8})

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []int{1, 3}, []int{hits[0].ID, hits[1].ID})
}

func TestSearchQueryNotNormalized(t *testing.T) {
	// 查询向量未归一化时结果分数与归一化后的一致
	idx := buildTestIndex(t, Options{Clusters: 100, Nprobe: 8})

	hits, err := idx.Search([]float32{5, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ID)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-4)
}

func TestClustersClampedToVectorCount(t *testing.T) {
	// 簇数 100 但只有 3 条向量：索引仍可正确构建和检索
	idx := buildTestIndex(t, Options{Clusters: 100, Nprobe: 8})

	hits, err := idx.Search([]float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 2, hits[0].ID)
}

func TestBuildEmpty(t *testing.T) {
	idx, err := Build(nil, nil, Options{Clusters: 100, Nprobe: 8})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())

	hits, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuildLengthMismatch(t *testing.T) {
	_, err := Build([][]float32{{1, 0}}, []int{1, 2}, Options{})
	require.Error(t, err)
}

func TestBuildDimensionMismatch(t *testing.T) {
	_, err := Build([][]float32{{1, 0}, {1, 0, 0}}, []int{1, 2}, Options{})
	require.ErrorIs(t, err, ErrDimension)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := buildTestIndex(t, Options{Clusters: 2, Nprobe: 2})
	_, err := idx.Search([]float32{1, 0, 0}, 3)
	require.ErrorIs(t, err, ErrDimension)
}

func TestSearchTieBreaksByID(t *testing.T) {
	// 两条相同向量同分，按 id 升序返回
	idx, err := Build([][]float32{{1, 0}, {1, 0}}, []int{9, 4}, Options{Clusters: 1, Nprobe: 1})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 4, hits[0].ID)
	assert.Equal(t, 9, hits[1].ID)
}

func TestAddNewVector(t *testing.T) {
	idx := buildTestIndex(t, Options{Clusters: 2, Nprobe: 2})

	require.NoError(t, idx.Add(4, []float32{0.9, 0.1}))
	assert.Equal(t, 4, idx.Len())
	assert.True(t, idx.Contains(4))

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].ID)
	assert.Equal(t, 4, hits[1].ID)
}

func TestAddReplacesExisting(t *testing.T) {
	// 重复 id 只替换向量，条数不变
	idx := buildTestIndex(t, Options{Clusters: 2, Nprobe: 2})

	require.NoError(t, idx.Add(2, []float32{1, 0}))
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].ID)
	assert.Equal(t, 2, hits[1].ID)
	assert.InDelta(t, 1.0, float64(hits[1].Score), 1e-4)
}

func TestAddIntoEmptyIndex(t *testing.T) {
	idx, err := Build(nil, nil, Options{Clusters: 100, Nprobe: 8})
	require.NoError(t, err)

	require.NoError(t, idx.Add(7, []float32{0, 1}))
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 2, idx.Dim())

	hits, err := idx.Search([]float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 7, hits[0].ID)
}

func TestAddDimensionMismatch(t *testing.T) {
	idx := buildTestIndex(t, Options{Clusters: 2, Nprobe: 2})
	require.ErrorIs(t, idx.Add(5, []float32{1, 2, 3}), ErrDimension)
}

func TestIDsReturnsCopy(t *testing.T) {
	idx := buildTestIndex(t, Options{Clusters: 2, Nprobe: 2})

	ids := idx.IDs()
	assert.Equal(t, []int{1, 2, 3}, ids)
	ids[0] = 99
	assert.Equal(t, []int{1, 2, 3}, idx.IDs())
}

func TestBuildDeterministic(t *testing.T) {
	// 固定种子训练：同样输入两次构建，检索结果完全一致
	vectors := make([][]float32, 0, 50)
	ids := make([]int, 0, 50)
	for i := 0; i < 50; i++ {
		vectors = append(vectors, []float32{float32(i%7) - 3, float32(i%5) - 2, float32(i % 3)})
		ids = append(ids, i+1)
	}

	a, err := Build(vectors, ids, Options{Clusters: 5, Nprobe: 5})
	require.NoError(t, err)
	b, err := Build(vectors, ids, Options{Clusters: 5, Nprobe: 5})
	require.NoError(t, err)

	query := []float32{1, 1, 1}
	ha, err := a.Search(query, 10)
	require.NoError(t, err)
	hb, err := b.Search(query, 10)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
