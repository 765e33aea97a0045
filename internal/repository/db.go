package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// Repositories 仓库集合
type Repositories struct {
	DB       *gorm.DB
	User     *UserRepository
	Movie    *MovieRepository
	Genre    *GenreRepository
	Studio   *StudioRepository
	Director *DirectorRepository
	Producer *ProducerRepository
	Cast     *CastRepository
	Year     *YearRepository
	Favorite *FavoriteRepository
	Rating   *RatingRepository
	Activity *ActivityLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		User:     NewUserRepository(db),
		Movie:    NewMovieRepository(db),
		Genre:    NewGenreRepository(db),
		Studio:   NewStudioRepository(db),
		Director: NewDirectorRepository(db),
		Producer: NewProducerRepository(db),
		Cast:     NewCastRepository(db),
		Year:     NewYearRepository(db),
		Favorite: NewFavoriteRepository(db),
		Rating:   NewRatingRepository(db),
		Activity: NewActivityLogRepository(db),
	}
}
