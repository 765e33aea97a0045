package repository

import (
	"time"

	"github.com/user/cinematch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert 写入或更新用户对推荐模型的打分
func (r *RatingRepository) Upsert(userID, movieID, rating int) error {
	rec := &model.Rating{
		UserID:  userID,
		MovieID: movieID,
		Rating:  rating,
		RatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "rated_at"}),
	}).Create(rec).Error
}

// Average 某部电影的模型平均分（无人打分返回 0）
func (r *RatingRepository) Average(movieID int) (float64, error) {
	var avg *float64
	err := r.db.Model(&model.Rating{}).
		Where("movie_id = ?", movieID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}
