package repository

import (
	"time"

	"github.com/user/cinematch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add 添加收藏
func (r *FavoriteRepository) Add(userID, movieID int) error {
	favorite := &model.Favorite{
		UserID:    userID,
		MovieID:   movieID,
		CreatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(favorite).Error
}

// Remove 取消收藏
func (r *FavoriteRepository) Remove(userID, movieID int) error {
	return r.db.Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(&model.Favorite{}).Error
}

// IsFavorited 检查是否已收藏
func (r *FavoriteRepository) IsFavorited(userID, movieID int) (bool, error) {
	var count int64
	err := r.db.Model(&model.Favorite{}).Where("user_id = ? AND movie_id = ?", userID, movieID).Count(&count).Error
	return count > 0, err
}

// IDsByUser 获取用户收藏的全部电影 id 集合（结果行打 faved 标记用）
func (r *FavoriteRepository) IDsByUser(userID int) (map[int]struct{}, error) {
	var ids []int
	err := r.db.Model(&model.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("movie_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ListMoviesByUser 获取用户收藏的电影列表
func (r *FavoriteRepository) ListMoviesByUser(userID int) ([]model.Movie, error) {
	var ids []int
	err := r.db.Model(&model.Favorite{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("movie_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return NewMovieRepository(r.db).FindByIDs(ids)
}
