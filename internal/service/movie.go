package service

import (
	"context"
	"fmt"
	"log"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinematch/internal/embedding"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"gorm.io/gorm"
)

// MovieInput 电影写入参数（创建与编辑共用）
type MovieInput struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"omitempty,ascii_text"`
	AvgRating   float64  `json:"avg_rating" binding:"gte=0,lte=10"`
	Duration    int      `json:"duration" binding:"gte=0"`
	PosterURL   string   `json:"poster_url"`
	PageURL     string   `json:"page_url"`
	Year        *int     `json:"year"`
	Director    *string  `json:"director"`
	Genres      []string `json:"genres"`
	Studios     []string `json:"studios"`
	Producers   []string `json:"producers"`
	Cast        []string `json:"cast"`
}

// MovieService 电影写入路径，负责保持向量存储与索引的一致性
// 约定：向量在数据库事务提交之前同步算好并随记录一起落库，
// 事务是原子性边界——嵌入计算和提交之间崩溃不会留下残缺记录。
type MovieService struct {
	repos   *repository.Repositories
	encoder embedding.Encoder
	index   *IndexService
}

// NewMovieService 创建电影写入服务
func NewMovieService(repos *repository.Repositories, encoder embedding.Encoder, index *IndexService) *MovieService {
	return &MovieService{
		repos:   repos,
		encoder: encoder,
		index:   index,
	}
}

// Create 新建电影
func (s *MovieService) Create(ctx context.Context, input *MovieInput) (*model.Movie, error) {
	// 1. 先算向量，再开事务
	vec, err := s.encoder.Encode(ctx, input.Description)
	if err != nil {
		return nil, fmt.Errorf("计算向量失败: %w", err)
	}

	movie := &model.Movie{}
	if err := s.repos.DB.Transaction(func(tx *gorm.DB) error {
		return s.saveWithin(tx, movie, input, vec)
	}); err != nil {
		return nil, err
	}

	// 2. 提交后增量写入索引，让新片立即可检索
	if err := s.index.Add(movie.ID, vec); err != nil {
		log.Printf("[MovieService] 电影 %d 写入索引失败: %v", movie.ID, err)
	}

	return s.repos.Movie.FindByID(movie.ID)
}

// Update 编辑电影
// 描述变化时重算整条向量（向量从不部分更新），索引中就地替换。
func (s *MovieService) Update(ctx context.Context, id int, input *MovieInput) (*model.Movie, error) {
	existing, err := s.repos.Movie.FindByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	var vec []float32
	if input.Description != existing.Description {
		if vec, err = s.encoder.Encode(ctx, input.Description); err != nil {
			return nil, fmt.Errorf("计算向量失败: %w", err)
		}
	}

	movie := &model.Movie{ID: id}
	if vec == nil {
		// 描述未变，原向量两列原样带过去
		movie.Embeddings = existing.Embeddings
		movie.Embedding = existing.Embedding
	}
	if err := s.repos.DB.Transaction(func(tx *gorm.DB) error {
		return s.saveWithin(tx, movie, input, vec)
	}); err != nil {
		return nil, err
	}

	if vec != nil {
		if err := s.index.Add(id, vec); err != nil {
			log.Printf("[MovieService] 电影 %d 更新索引失败: %v", id, err)
		}
	}

	return s.repos.Movie.FindByID(id)
}

// Delete 删除电影
// 索引不支持删除，脏引用在读路径被静默跳过，由阈值/定时重建收敛。
func (s *MovieService) Delete(id int) error {
	if err := s.repos.Movie.Delete(id); err != nil {
		return err
	}
	s.index.NoteDelete()
	return nil
}

// saveWithin 在事务内落库：主记录、向量两列、全部关联
func (s *MovieService) saveWithin(tx *gorm.DB, movie *model.Movie, input *MovieInput, vec []float32) error {
	movie.Title = input.Title
	movie.Description = input.Description
	movie.AvgRating = input.AvgRating
	movie.Duration = input.Duration
	movie.PosterURL = input.PosterURL
	movie.PageURL = input.PageURL

	if input.Year != nil {
		year, err := s.repos.Year.FindOrCreate(tx, *input.Year)
		if err != nil {
			return err
		}
		movie.YearID = &year.ID
	} else {
		movie.YearID = nil
	}

	if input.Director != nil && *input.Director != "" {
		director, err := s.repos.Director.FindOrCreate(tx, *input.Director)
		if err != nil {
			return err
		}
		movie.DirectorID = &director.ID
	} else {
		movie.DirectorID = nil
	}

	if vec != nil {
		movie.Embeddings = embedding.EncodeVector(vec)
		v := pgvector.NewVector(vec)
		movie.Embedding = &v
	}

	if err := s.repos.Movie.Save(tx, movie); err != nil {
		return err
	}

	genres := make([]model.Genre, 0, len(input.Genres))
	for _, name := range input.Genres {
		g, err := s.repos.Genre.FindOrCreate(tx, name)
		if err != nil {
			return err
		}
		genres = append(genres, *g)
	}
	studios := make([]model.Studio, 0, len(input.Studios))
	for _, name := range input.Studios {
		st, err := s.repos.Studio.FindOrCreate(tx, name)
		if err != nil {
			return err
		}
		studios = append(studios, *st)
	}
	producers := make([]model.Producer, 0, len(input.Producers))
	for _, name := range input.Producers {
		p, err := s.repos.Producer.FindOrCreate(tx, name)
		if err != nil {
			return err
		}
		producers = append(producers, *p)
	}
	cast := make([]model.CastMember, 0, len(input.Cast))
	for _, name := range input.Cast {
		c, err := s.repos.Cast.FindOrCreate(tx, name)
		if err != nil {
			return err
		}
		cast = append(cast, *c)
	}

	return s.repos.Movie.ReplaceAssociations(tx, movie, genres, studios, producers, cast)
}
