package service

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/vecindex"
)

// fakeMovieStore 内存实现，按标题序返回全量列表
type fakeMovieStore struct {
	movies     []model.Movie
	candidates map[int]struct{}
}

func (f *fakeMovieStore) ListFiltered(_ *model.MovieFilter) ([]model.Movie, error) {
	out := make([]model.Movie, len(f.movies))
	copy(out, f.movies)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeMovieStore) IDSet(_ *model.MovieFilter) (map[int]struct{}, error) {
	return f.candidates, nil
}

func (f *fakeMovieStore) FindByIDs(ids []int) ([]model.Movie, error) {
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []model.Movie
	for _, m := range f.movies {
		if _, ok := want[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeFavoriteStore struct {
	byUser map[int]map[int]struct{}
}

func (f *fakeFavoriteStore) IDsByUser(userID int) (map[int]struct{}, error) {
	return f.byUser[userID], nil
}

// fakeEncoder 按文本查表返回固定向量
type fakeEncoder struct {
	dim  int
	vecs map[string][]float32
}

func (f *fakeEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEncoder) Dim() int { return f.dim }

type fakeIndexProvider struct {
	idx *vecindex.Index
	err error
}

func (f *fakeIndexProvider) Current() (*vecindex.Index, error) { return f.idx, f.err }

func testMovies() []model.Movie {
	return []model.Movie{
		{ID: 1, Title: "Alien Dawn", Description: "space horror"},
		{ID: 2, Title: "Quiet River", Description: "family drama"},
		{ID: 3, Title: "Star Drift", Description: "space adventure"},
	}
}

func testIndex(t *testing.T) *vecindex.Index {
	t.Helper()
	idx, err := vecindex.Build(
		[][]float32{{1, 0}, {0, 1}, {0.7, 0.7}},
		[]int{1, 2, 3},
		vecindex.Options{Clusters: 100, Nprobe: 8},
	)
	require.NoError(t, err)
	return idx
}

func newTestService(t *testing.T, store *fakeMovieStore, favs *fakeFavoriteStore) *RecommendService {
	t.Helper()
	if favs == nil {
		favs = &fakeFavoriteStore{}
	}
	enc := &fakeEncoder{dim: 2, vecs: map[string][]float32{
		"space": {1, 0},
		"river": {0, 1},
	}}
	return NewRecommendService(store, favs, enc, &fakeIndexProvider{idx: testIndex(t)})
}

func TestRecommendMetadataOnly(t *testing.T) {
	// 无描述文本：纯元数据列表，标题序，相似度一律 0.0
	store := &fakeMovieStore{movies: testMovies()}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Limit: 5}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 3)

	assert.Equal(t, "Alien Dawn", res.Movies[0].Title)
	assert.Equal(t, "Quiet River", res.Movies[1].Title)
	assert.Equal(t, "Star Drift", res.Movies[2].Title)
	for _, row := range res.Movies {
		assert.Equal(t, 0.0, row.Sim)
	}
	assert.False(t, res.HasMore)
	assert.Equal(t, 5, res.NextOffset)
}

func TestRecommendVectorRanking(t *testing.T) {
	// 查询 "space" 编码为 [1,0]：期望 1 > 3 > 2
	store := &fakeMovieStore{movies: testMovies()}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Description: "space", Limit: 5}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 3)

	assert.Equal(t, 1, res.Movies[0].MovieID)
	assert.Equal(t, 3, res.Movies[1].MovieID)
	assert.Equal(t, 2, res.Movies[2].MovieID)

	assert.InDelta(t, 1.0, res.Movies[0].Sim, 1e-3)
	assert.InDelta(t, 0.7071, res.Movies[1].Sim, 1e-3)
	assert.InDelta(t, 0.0, res.Movies[2].Sim, 1e-3)
	assert.False(t, res.HasMore)
}

func TestRecommendVectorHasMore(t *testing.T) {
	// has_more 由真实上游命中数决定，最后一页不得误报
	store := &fakeMovieStore{movies: testMovies()}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Description: "space", Limit: 2}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 2)
	assert.True(t, res.HasMore)
	assert.Equal(t, 2, res.NextOffset)

	res, err = svc.Recommend(context.Background(), RecommendRequest{Description: "space", Offset: 2, Limit: 2}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 1)
	assert.Equal(t, 2, res.Movies[0].MovieID)
	assert.False(t, res.HasMore)
}

func TestRecommendRankThenFilter(t *testing.T) {
	// 先全量排序再按候选集过滤，交集保持向量序
	store := &fakeMovieStore{
		movies:     testMovies(),
		candidates: map[int]struct{}{2: {}, 3: {}},
	}
	svc := newTestService(t, store, nil)

	genre := 1
	res, err := svc.Recommend(context.Background(), RecommendRequest{
		Description: "space",
		Filter:      model.MovieFilter{GenreID: &genre},
		Limit:       5,
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 2)

	// movie1 被筛掉，剩余仍按相似度降序
	assert.Equal(t, 3, res.Movies[0].MovieID)
	assert.Equal(t, 2, res.Movies[1].MovieID)
	assert.False(t, res.HasMore)
}

func TestRecommendRankThenFilterPagination(t *testing.T) {
	store := &fakeMovieStore{
		movies:     testMovies(),
		candidates: map[int]struct{}{1: {}, 2: {}, 3: {}},
	}
	svc := newTestService(t, store, nil)

	genre := 1
	res, err := svc.Recommend(context.Background(), RecommendRequest{
		Description: "space",
		Filter:      model.MovieFilter{GenreID: &genre},
		Offset:      1,
		Limit:       1,
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 1)
	assert.Equal(t, 3, res.Movies[0].MovieID)
	assert.True(t, res.HasMore)
	assert.Equal(t, 2, res.NextOffset)
}

func TestRecommendSkipsStaleIndexEntries(t *testing.T) {
	// 索引仍含已删除的 movie2：结果静默跳过，顺序不乱
	movies := []model.Movie{
		{ID: 1, Title: "Alien Dawn"},
		{ID: 3, Title: "Star Drift"},
	}
	store := &fakeMovieStore{movies: movies}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Description: "space", Limit: 5}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 2)
	assert.Equal(t, 1, res.Movies[0].MovieID)
	assert.Equal(t, 3, res.Movies[1].MovieID)
}

func TestRecommendHasMoreSurvivesStaleEntries(t *testing.T) {
	// 排名最靠前的 movie1 已删除但仍在索引里：has_more 必须按上游命中数
	// 判断，否则页面缩水会让后面的电影永远翻不到
	movies := []model.Movie{
		{ID: 2, Title: "Quiet River"},
		{ID: 3, Title: "Star Drift"},
	}
	store := &fakeMovieStore{movies: movies}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Description: "space", Limit: 1}, nil)
	require.NoError(t, err)
	require.Len(t, res.Movies, 1)
	assert.Equal(t, 3, res.Movies[0].MovieID)
	assert.True(t, res.HasMore)

	// 按 has_more 翻到底，库里两部电影都要能翻到
	seen := map[int]struct{}{res.Movies[0].MovieID: {}}
	offset := res.NextOffset
	for res.HasMore {
		res, err = svc.Recommend(context.Background(), RecommendRequest{Description: "space", Offset: offset, Limit: 1}, nil)
		require.NoError(t, err)
		for _, row := range res.Movies {
			seen[row.MovieID] = struct{}{}
		}
		offset = res.NextOffset
	}

	assert.Contains(t, seen, 2)
	assert.Contains(t, seen, 3)
}

func TestRecommendPaginationCoversAll(t *testing.T) {
	// 固定数据集按页遍历：页集合两两不交且并集覆盖全量
	var movies []model.Movie
	for i := 1; i <= 7; i++ {
		movies = append(movies, model.Movie{ID: i, Title: string(rune('A' + i))})
	}
	store := &fakeMovieStore{movies: movies}
	svc := newTestService(t, store, nil)

	seen := make(map[int]int)
	offset := 0
	for pages := 0; pages < 10; pages++ {
		res, err := svc.Recommend(context.Background(), RecommendRequest{Offset: offset, Limit: 3}, nil)
		require.NoError(t, err)
		for _, row := range res.Movies {
			seen[row.MovieID]++
		}
		if !res.HasMore {
			break
		}
		offset = res.NextOffset
	}

	require.Len(t, seen, 7)
	for id, n := range seen {
		assert.Equal(t, 1, n, "movie %d 出现了 %d 次", id, n)
	}
}

func TestRecommendOffsetBeyondEnd(t *testing.T) {
	store := &fakeMovieStore{movies: testMovies()}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Offset: 10, Limit: 5}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Movies)
	assert.False(t, res.HasMore)
}

func TestRecommendFavedFlag(t *testing.T) {
	// 收藏过的电影只打标记，不从结果中剔除
	store := &fakeMovieStore{movies: testMovies()}
	favs := &fakeFavoriteStore{byUser: map[int]map[int]struct{}{
		42: {3: {}},
	}}
	svc := newTestService(t, store, favs)

	userID := 42
	res, err := svc.Recommend(context.Background(), RecommendRequest{Description: "space", Limit: 5}, &userID)
	require.NoError(t, err)
	require.Len(t, res.Movies, 3)

	for _, row := range res.Movies {
		assert.Equal(t, row.MovieID == 3, row.Faved, "movie %d", row.MovieID)
	}
}

func TestRecommendAnonymousNeverFaved(t *testing.T) {
	store := &fakeMovieStore{movies: testMovies()}
	favs := &fakeFavoriteStore{byUser: map[int]map[int]struct{}{
		42: {1: {}, 2: {}, 3: {}},
	}}
	svc := newTestService(t, store, favs)

	res, err := svc.Recommend(context.Background(), RecommendRequest{Limit: 5}, nil)
	require.NoError(t, err)
	for _, row := range res.Movies {
		assert.False(t, row.Faved)
	}
}

func TestRecommendIndexNotBuilt(t *testing.T) {
	store := &fakeMovieStore{movies: testMovies()}
	enc := &fakeEncoder{dim: 2, vecs: map[string][]float32{"space": {1, 0}}}
	svc := NewRecommendService(store, &fakeFavoriteStore{}, enc, &fakeIndexProvider{err: ErrIndexNotBuilt})

	_, err := svc.Recommend(context.Background(), RecommendRequest{Description: "space", Limit: 5}, nil)
	require.ErrorIs(t, err, ErrIndexNotBuilt)

	// 纯元数据路径不碰索引，不受未构建影响
	res, err := svc.Recommend(context.Background(), RecommendRequest{Limit: 5}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Movies, 3)
}

func TestRecommendDefaultLimit(t *testing.T) {
	var movies []model.Movie
	for i := 1; i <= 8; i++ {
		movies = append(movies, model.Movie{ID: i, Title: string(rune('A' + i))})
	}
	store := &fakeMovieStore{movies: movies}
	svc := newTestService(t, store, nil)

	res, err := svc.Recommend(context.Background(), RecommendRequest{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Movies, 5)
	assert.True(t, res.HasMore)
	assert.Equal(t, 5, res.NextOffset)
}
