package repository

import (
	"errors"

	"github.com/lib/pq"
	"github.com/user/cinematch/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// preload 挂上结果行需要的全部关联
func (r *MovieRepository) preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Year").Preload("Director").
		Preload("Genres").Preload("Studios").
		Preload("Producers").Preload("CastMembers")
}

// applyFilter 把结构化筛选条件翻译成显式 join
func (r *MovieRepository) applyFilter(q *gorm.DB, f *model.MovieFilter) *gorm.DB {
	if f == nil {
		return q
	}
	if f.GenreID != nil {
		q = q.Joins("JOIN movie_genres mg ON mg.movie_id = movies.movie_id").
			Where("mg.genre_id = ?", *f.GenreID)
	}
	if f.StudioID != nil {
		q = q.Joins("JOIN movie_studios ms ON ms.movie_id = movies.movie_id").
			Where("ms.studio_id = ?", *f.StudioID)
	}
	if f.DirectorID != nil {
		q = q.Where("movies.director_id = ?", *f.DirectorID)
	}
	if f.ProducerID != nil {
		q = q.Joins("JOIN movie_producers mp ON mp.movie_id = movies.movie_id").
			Where("mp.producer_id = ?", *f.ProducerID)
	}
	if f.CastID != nil {
		q = q.Joins("JOIN movie_cast mc ON mc.movie_id = movies.movie_id").
			Where("mc.cast_id = ?", *f.CastID)
	}
	if f.YearFrom != nil || f.YearTo != nil {
		q = q.Joins("JOIN years y ON y.year_id = movies.year_id")
		if f.YearFrom != nil {
			q = q.Where("y.year_value >= ?", *f.YearFrom)
		}
		if f.YearTo != nil {
			q = q.Where("y.year_value <= ?", *f.YearTo)
		}
	}
	if f.RatingFrom != nil {
		q = q.Where("movies.avg_rating >= ?", *f.RatingFrom)
	}
	if f.RatingTo != nil {
		q = q.Where("movies.avg_rating <= ?", *f.RatingTo)
	}
	return q
}

// ListFiltered 按筛选条件列出电影，按标题排序（同名时按 id，保证分页稳定）
func (r *MovieRepository) ListFiltered(f *model.MovieFilter) ([]model.Movie, error) {
	var movies []model.Movie
	q := r.applyFilter(r.db.Model(&model.Movie{}), f)
	err := r.preload(q).
		Order("movies.title ASC").
		Order("movies.movie_id ASC").
		Find(&movies).Error
	return movies, err
}

// IDSet 返回满足筛选条件的电影 id 集合（每次查询临时物化，用完即弃）
func (r *MovieRepository) IDSet(f *model.MovieFilter) (map[int]struct{}, error) {
	var ids []int
	q := r.applyFilter(r.db.Model(&model.Movie{}), f)
	if err := q.Distinct().Pluck("movies.movie_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// FindByID 根据 id 查找电影（带关联），不存在返回 nil
func (r *MovieRepository) FindByID(id int) (*model.Movie, error) {
	var movie model.Movie
	err := r.preload(r.db).First(&movie, "movies.movie_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByIDs 批量查找电影（带关联），返回顺序不保证
// id 列表可能是索引返回的一整页，用数组参数避免拼出超长 IN 占位符
func (r *MovieRepository) FindByIDs(ids []int) ([]model.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var movies []model.Movie
	err := r.preload(r.db).Where("movies.movie_id = ANY(?)", pq.Array(ids)).Find(&movies).Error
	return movies, err
}

// VectorRow 向量扫描行
type VectorRow struct {
	MovieID    int
	Embeddings string
}

// AllVectors 按 id 升序扫出全部存量向量文本（行位置分配必须稳定）
func (r *MovieRepository) AllVectors() ([]VectorRow, error) {
	var rows []VectorRow
	err := r.db.Model(&model.Movie{}).
		Select("movies.movie_id AS movie_id, movies.embeddings AS embeddings").
		Where("movies.embeddings IS NOT NULL AND movies.embeddings <> ''").
		Order("movies.movie_id ASC").
		Scan(&rows).Error
	return rows, err
}

// FindSimilar 用 pgvector 在库内找与指定电影最相近的电影
// 这是 SQL 侧的相似检索，与进程内索引互为补充（详情页“相似电影”用它）。
func (r *MovieRepository) FindSimilar(movieID, limit int) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.preload(r.db).
		Where("movies.movie_id <> ? AND movies.embedding IS NOT NULL", movieID).
		Order(gorm.Expr("movies.embedding <=> (SELECT embedding FROM movies WHERE movie_id = ?)", movieID)).
		Limit(limit).
		Find(&movies).Error
	return movies, err
}

// Save 在给定事务内保存电影主记录
// 关联另行用 ReplaceAssociations 整体替换，这里跳过级联写入，
// 避免 gorm 顺手更新维表。
func (r *MovieRepository) Save(tx *gorm.DB, movie *model.Movie) error {
	return tx.Omit("Genres", "Studios", "Producers", "CastMembers", "Year", "Director").
		Save(movie).Error
}

// ReplaceAssociations 在给定事务内整体替换多对多关联
func (r *MovieRepository) ReplaceAssociations(tx *gorm.DB, movie *model.Movie,
	genres []model.Genre, studios []model.Studio,
	producers []model.Producer, cast []model.CastMember) error {
	if err := tx.Model(movie).Association("Genres").Replace(genres); err != nil {
		return err
	}
	if err := tx.Model(movie).Association("Studios").Replace(studios); err != nil {
		return err
	}
	if err := tx.Model(movie).Association("Producers").Replace(producers); err != nil {
		return err
	}
	return tx.Model(movie).Association("CastMembers").Replace(cast)
}

// Delete 删除电影及其关联
func (r *MovieRepository) Delete(id int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM movie_genres WHERE movie_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM movie_studios WHERE movie_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM movie_producers WHERE movie_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM movie_cast WHERE movie_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("movie_id = ?", id).Delete(&model.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("movie_id = ?", id).Delete(&model.Rating{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Movie{}, "movie_id = ?", id).Error
	})
}

// Count 电影总数
func (r *MovieRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Movie{}).Count(&count).Error
	return count, err
}

// Bounds 首页滑块用的年份/评分上下界
type Bounds struct {
	MinYear   int
	MaxYear   int
	MinRating float64
	MaxRating float64
}

// FilterBounds 查询年份和评分的最小/最大值（空库给默认区间）
func (r *MovieRepository) FilterBounds() (*Bounds, error) {
	b := &Bounds{MinYear: 1900, MaxYear: 2025, MinRating: 0.0, MaxRating: 10.0}

	var yr struct {
		Min *int
		Max *int
	}
	if err := r.db.Model(&model.Year{}).
		Select("MIN(year_value) AS min, MAX(year_value) AS max").
		Scan(&yr).Error; err != nil {
		return nil, err
	}
	if yr.Min != nil {
		b.MinYear = *yr.Min
	}
	if yr.Max != nil {
		b.MaxYear = *yr.Max
	}

	var rt struct {
		Min *float64
		Max *float64
	}
	if err := r.db.Model(&model.Movie{}).
		Select("MIN(avg_rating) AS min, MAX(avg_rating) AS max").
		Scan(&rt).Error; err != nil {
		return nil, err
	}
	if rt.Min != nil {
		b.MinRating = *rt.Min
	}
	if rt.Max != nil {
		b.MaxRating = *rt.Max
	}

	return b, nil
}
