package repository

import (
	"github.com/user/cinematch/internal/model"
	"gorm.io/gorm"
)

// Option 下拉框选项
type Option struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// 每个筛选维度一个显式的类型化仓库，统一提供
// FindOrCreate / SearchByName，不做任何运行时反射。

// ==================== 类型 ====================

type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// FindOrCreate 按名称取出，不存在则在事务内创建
func (r *GenreRepository) FindOrCreate(tx *gorm.DB, name string) (*model.Genre, error) {
	var g model.Genre
	err := tx.Where(model.Genre{Name: name}).FirstOrCreate(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SearchByName 模糊搜索（下拉框联想）
func (r *GenreRepository) SearchByName(q string, limit int) ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Genre{}).
		Select("genre_id AS id, genre_name AS text").
		Where("genre_name ILIKE ?", "%"+q+"%").
		Order("genre_name ASC").
		Limit(limit).
		Scan(&opts).Error
	return opts, err
}

// ListAll 全量列表（首页下拉框）
func (r *GenreRepository) ListAll() ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Genre{}).
		Select("genre_id AS id, genre_name AS text").
		Order("genre_name ASC").
		Scan(&opts).Error
	return opts, err
}

// ==================== 制片公司 ====================

type StudioRepository struct {
	db *gorm.DB
}

func NewStudioRepository(db *gorm.DB) *StudioRepository {
	return &StudioRepository{db: db}
}

// FindOrCreate 按名称取出，不存在则在事务内创建
func (r *StudioRepository) FindOrCreate(tx *gorm.DB, name string) (*model.Studio, error) {
	var s model.Studio
	err := tx.Where(model.Studio{Name: name}).FirstOrCreate(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SearchByName 模糊搜索
func (r *StudioRepository) SearchByName(q string, limit int) ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Studio{}).
		Select("studio_id AS id, studio_name AS text").
		Where("studio_name ILIKE ?", "%"+q+"%").
		Order("studio_name ASC").
		Limit(limit).
		Scan(&opts).Error
	return opts, err
}

// ListAll 全量列表
func (r *StudioRepository) ListAll() ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Studio{}).
		Select("studio_id AS id, studio_name AS text").
		Order("studio_name ASC").
		Scan(&opts).Error
	return opts, err
}

// ==================== 导演 ====================

type DirectorRepository struct {
	db *gorm.DB
}

func NewDirectorRepository(db *gorm.DB) *DirectorRepository {
	return &DirectorRepository{db: db}
}

// FindOrCreate 按名称取出，不存在则在事务内创建
func (r *DirectorRepository) FindOrCreate(tx *gorm.DB, name string) (*model.Director, error) {
	var d model.Director
	err := tx.Where(model.Director{Name: name}).FirstOrCreate(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SearchByName 模糊搜索
func (r *DirectorRepository) SearchByName(q string, limit int) ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Director{}).
		Select("director_id AS id, director_name AS text").
		Where("director_name ILIKE ?", "%"+q+"%").
		Order("director_name ASC").
		Limit(limit).
		Scan(&opts).Error
	return opts, err
}

// ListAll 全量列表
func (r *DirectorRepository) ListAll() ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Director{}).
		Select("director_id AS id, director_name AS text").
		Order("director_name ASC").
		Scan(&opts).Error
	return opts, err
}

// ==================== 制片人 ====================

type ProducerRepository struct {
	db *gorm.DB
}

func NewProducerRepository(db *gorm.DB) *ProducerRepository {
	return &ProducerRepository{db: db}
}

// FindOrCreate 按名称取出，不存在则在事务内创建
func (r *ProducerRepository) FindOrCreate(tx *gorm.DB, name string) (*model.Producer, error) {
	var p model.Producer
	err := tx.Where(model.Producer{Name: name}).FirstOrCreate(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchByName 模糊搜索
func (r *ProducerRepository) SearchByName(q string, limit int) ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.Producer{}).
		Select("producer_id AS id, producer_name AS text").
		Where("producer_name ILIKE ?", "%"+q+"%").
		Order("producer_name ASC").
		Limit(limit).
		Scan(&opts).Error
	return opts, err
}

// ==================== 演员 ====================

type CastRepository struct {
	db *gorm.DB
}

func NewCastRepository(db *gorm.DB) *CastRepository {
	return &CastRepository{db: db}
}

// FindOrCreate 按名称取出，不存在则在事务内创建
func (r *CastRepository) FindOrCreate(tx *gorm.DB, name string) (*model.CastMember, error) {
	var c model.CastMember
	err := tx.Where(model.CastMember{Name: name}).FirstOrCreate(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SearchByName 模糊搜索
func (r *CastRepository) SearchByName(q string, limit int) ([]Option, error) {
	var opts []Option
	err := r.db.Model(&model.CastMember{}).
		Select("cast_id AS id, cast_name AS text").
		Where("cast_name ILIKE ?", "%"+q+"%").
		Order("cast_name ASC").
		Limit(limit).
		Scan(&opts).Error
	return opts, err
}

// ==================== 年份 ====================

type YearRepository struct {
	db *gorm.DB
}

func NewYearRepository(db *gorm.DB) *YearRepository {
	return &YearRepository{db: db}
}

// FindOrCreate 按年份值取出，不存在则在事务内创建
func (r *YearRepository) FindOrCreate(tx *gorm.DB, value int) (*model.Year, error) {
	var y model.Year
	err := tx.Where(model.Year{Value: value}).FirstOrCreate(&y).Error
	if err != nil {
		return nil, err
	}
	return &y, nil
}
