package service

import (
	"context"
	"log"

	"github.com/user/cinematch/internal/embedding"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/vecindex"
)

// MovieStore 推荐检索需要的元数据读取能力
type MovieStore interface {
	ListFiltered(f *model.MovieFilter) ([]model.Movie, error)
	IDSet(f *model.MovieFilter) (map[int]struct{}, error)
	FindByIDs(ids []int) ([]model.Movie, error)
}

// FavoriteStore 收藏标记读取能力
type FavoriteStore interface {
	IDsByUser(userID int) (map[int]struct{}, error)
}

// IndexProvider 取当前搜索就绪的索引句柄
type IndexProvider interface {
	Current() (*vecindex.Index, error)
}

// RecommendRequest 推荐请求（已由请求层完成类型解析和校验）
type RecommendRequest struct {
	Description string
	Filter      model.MovieFilter
	Offset      int
	Limit       int
}

// RecommendResult 推荐响应
type RecommendResult struct {
	Movies     []model.ResultRow `json:"movies"`
	NextOffset int               `json:"next_offset"`
	HasMore    bool              `json:"has_more"`
}

// RecommendService 混合检索规划器
// 按请求形态分三种互斥路径：纯元数据列表、纯向量排序、
// 向量排序与筛选候选集求交（先排序后过滤，保序）。
type RecommendService struct {
	movies  MovieStore
	favs    FavoriteStore
	encoder embedding.Encoder
	index   IndexProvider
}

// NewRecommendService 创建推荐服务
func NewRecommendService(movies MovieStore, favs FavoriteStore,
	encoder embedding.Encoder, index IndexProvider) *RecommendService {
	return &RecommendService{
		movies:  movies,
		favs:    favs,
		encoder: encoder,
		index:   index,
	}
}

// Recommend 执行一次推荐检索
// userID 为 nil 表示匿名请求，结果行的 faved 恒为 false。
// 收藏过的电影只打标记，不从结果中剔除（剔除会破坏分页的完整性）。
func (s *RecommendService) Recommend(ctx context.Context, req RecommendRequest, userID *int) (*RecommendResult, error) {
	if req.Limit <= 0 {
		req.Limit = 5
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	faved, err := s.favedSet(userID)
	if err != nil {
		return nil, err
	}

	// 路径一：没有描述文本，纯元数据列表（带或不带筛选）
	if req.Description == "" {
		return s.listByMetadata(req, faved)
	}

	// 描述文本编码为查询向量
	queryVec, err := s.encoder.Encode(ctx, req.Description)
	if err != nil {
		return nil, err
	}

	idx, err := s.index.Current()
	if err != nil {
		return nil, err
	}

	// 路径二：只有描述文本，纯向量排序
	if req.Filter.Empty() {
		return s.rankByVector(idx, queryVec, req, faved)
	}

	// 路径三：描述文本 + 筛选条件，先全量排序再按候选集过滤
	return s.rankThenFilter(idx, queryVec, req, faved)
}

// listByMetadata 纯元数据列表：标题序 + 分页，相似度一律 0.0
func (s *RecommendService) listByMetadata(req RecommendRequest, faved map[int]struct{}) (*RecommendResult, error) {
	movies, err := s.movies.ListFiltered(&req.Filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(movies) > req.Offset+req.Limit
	page := paginateMovies(movies, req.Offset, req.Limit)

	rows := make([]model.ResultRow, 0, len(page))
	for i := range page {
		rows = append(rows, buildResultRow(&page[i], 0.0, faved))
	}

	return &RecommendResult{
		Movies:     rows,
		NextOffset: req.Offset + req.Limit,
		HasMore:    hasMore,
	}, nil
}

// rankByVector 纯向量排序
// 多取一条判断 has_more：真实上游命中数必须参与判断，
// 不能用页内条数推断，否则最后一页会被吞掉。
func (s *RecommendService) rankByVector(idx *vecindex.Index, queryVec []float32,
	req RecommendRequest, faved map[int]struct{}) (*RecommendResult, error) {

	hits, err := idx.Search(queryVec, req.Offset+req.Limit+1)
	if err != nil {
		return nil, err
	}

	// has_more 以上游命中数为准：滞后删除的 id 在解析阶段才被跳过，
	// 页面行数会缩水，用它反推会把后续页面整个吞掉
	hasMore := len(hits) > req.Offset+req.Limit

	scored, err := s.resolveHits(hits, faved)
	if err != nil {
		return nil, err
	}

	page := paginateRows(scored, req.Offset, req.Limit)

	return &RecommendResult{
		Movies:     page,
		NextOffset: req.Offset + req.Limit,
		HasMore:    hasMore,
	}, nil
}

// rankThenFilter 向量排序与候选集求交
// 排序必须覆盖全量索引（过滤发生在排序之后），候选集只做成员判定，
// 交集保持向量排序的顺序——先过滤后排序与此不等价，顺序不可交换。
func (s *RecommendService) rankThenFilter(idx *vecindex.Index, queryVec []float32,
	req RecommendRequest, faved map[int]struct{}) (*RecommendResult, error) {

	hits, err := idx.Search(queryVec, idx.Len())
	if err != nil {
		return nil, err
	}

	candidates, err := s.movies.IDSet(&req.Filter)
	if err != nil {
		return nil, err
	}

	ranked := make([]vecindex.Hit, 0, len(candidates))
	for _, h := range hits {
		if _, ok := candidates[h.ID]; ok {
			ranked = append(ranked, h)
		}
	}

	hasMore := len(ranked) > req.Offset+req.Limit
	pageHits := ranked
	if req.Offset < len(ranked) {
		end := req.Offset + req.Limit
		if end > len(ranked) {
			end = len(ranked)
		}
		pageHits = ranked[req.Offset:end]
	} else {
		pageHits = nil
	}

	rows, err := s.resolveHits(pageHits, faved)
	if err != nil {
		return nil, err
	}

	return &RecommendResult{
		Movies:     rows,
		NextOffset: req.Offset + req.Limit,
		HasMore:    hasMore,
	}, nil
}

// resolveHits 把命中 id 解析成结果行，保持命中顺序
// 索引里有而库里没有的 id 是滞后删除造成的脏引用，跳过并打日志，
// 绝不向调用方抛错。
func (s *RecommendService) resolveHits(hits []vecindex.Hit, faved map[int]struct{}) ([]model.ResultRow, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	movies, err := s.movies.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*model.Movie, len(movies))
	for i := range movies {
		byID[movies[i].ID] = &movies[i]
	}

	rows := make([]model.ResultRow, 0, len(hits))
	for _, h := range hits {
		m, ok := byID[h.ID]
		if !ok {
			log.Printf("[RecommendService] 索引返回的电影 %d 已不在库中，跳过", h.ID)
			continue
		}
		rows = append(rows, buildResultRow(m, float64(h.Score), faved))
	}
	return rows, nil
}

// favedSet 拉取用户的收藏 id 集合，匿名请求返回空集
func (s *RecommendService) favedSet(userID *int) (map[int]struct{}, error) {
	if userID == nil {
		return nil, nil
	}
	return s.favs.IDsByUser(*userID)
}

// buildResultRow 把电影及其关联组装成显式 DTO（导演可为空）
func buildResultRow(m *model.Movie, sim float64, faved map[int]struct{}) model.ResultRow {
	row := model.ResultRow{
		Sim:         sim,
		MovieID:     m.ID,
		Title:       m.Title,
		PosterURL:   m.PosterURL,
		Description: m.Description,
		Genres:      make([]string, 0, len(m.Genres)),
		Studios:     make([]string, 0, len(m.Studios)),
		Producers:   make([]string, 0, len(m.Producers)),
		Cast:        make([]string, 0, len(m.CastMembers)),
		Duration:    m.Duration,
		PageURL:     m.PageURL,
		AvgRating:   m.AvgRating,
	}

	if m.Year != nil {
		y := m.Year.Value
		row.Year = &y
	}
	if m.Director != nil {
		name := m.Director.Name
		row.Director = &name
	}
	for _, g := range m.Genres {
		row.Genres = append(row.Genres, g.Name)
	}
	for _, st := range m.Studios {
		row.Studios = append(row.Studios, st.Name)
	}
	for _, p := range m.Producers {
		row.Producers = append(row.Producers, p.Name)
	}
	for _, c := range m.CastMembers {
		row.Cast = append(row.Cast, c.Name)
	}
	if faved != nil {
		_, row.Faved = faved[m.ID]
	}

	return row
}

// paginateMovies 切出 [offset, offset+limit) 区间
func paginateMovies(movies []model.Movie, offset, limit int) []model.Movie {
	if offset >= len(movies) {
		return nil
	}
	end := offset + limit
	if end > len(movies) {
		end = len(movies)
	}
	return movies[offset:end]
}

// paginateRows 切出 [offset, offset+limit) 区间
func paginateRows(rows []model.ResultRow, offset, limit int) []model.ResultRow {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
