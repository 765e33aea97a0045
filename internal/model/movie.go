package model

import (
	"github.com/pgvector/pgvector-go"
)

// Movie 电影模型
// Embeddings 列是文本编码的向量（规范格式为 JSON 数组，兼容历史的
// "[0.1 0.2 0.3]" 空格分隔格式），Embedding 列是同一向量的 pgvector 副本，
// 两者在写入路径中同步维护。向量维度由 EMBEDDING_DIM 统一约束（编码器
// 输出和索引构建都按它校验），列本身不锁维度，建表 DDL 需与配置一致。
type Movie struct {
	ID          int     `json:"movie_id" gorm:"primaryKey;column:movie_id"`
	Title       string  `json:"title" gorm:"not null"`
	Description string  `json:"description"`
	AvgRating   float64 `json:"avg_rating" gorm:"index"`
	Duration    int     `json:"duration"`
	PosterURL   string  `json:"poster_url" gorm:"column:poster_url"`
	PageURL     string  `json:"page_url" gorm:"column:page_url"`
	YearID      *int    `json:"-" gorm:"column:year_id"`
	DirectorID  *int    `json:"-" gorm:"column:director_id"`
	Embeddings  string  `json:"-" gorm:"column:embeddings"`

	Embedding *pgvector.Vector `json:"-" gorm:"column:embedding;type:vector"`

	Year        *Year        `json:"year,omitempty" gorm:"foreignKey:YearID"`
	Director    *Director    `json:"director,omitempty" gorm:"foreignKey:DirectorID"`
	Genres      []Genre      `json:"genres,omitempty" gorm:"many2many:movie_genres"`
	Studios     []Studio     `json:"studios,omitempty" gorm:"many2many:movie_studios"`
	Producers   []Producer   `json:"producers,omitempty" gorm:"many2many:movie_producers"`
	CastMembers []CastMember `json:"cast,omitempty" gorm:"many2many:movie_cast"`
}

// TableName 指定表名
func (Movie) TableName() string { return "movies" }

// Year 年份维度
type Year struct {
	ID    int `json:"year_id" gorm:"primaryKey;column:year_id"`
	Value int `json:"year_value" gorm:"column:year_value;uniqueIndex;not null"`
}

// TableName 指定表名
func (Year) TableName() string { return "years" }

// Genre 类型维度
type Genre struct {
	ID   int    `json:"genre_id" gorm:"primaryKey;column:genre_id"`
	Name string `json:"genre_name" gorm:"column:genre_name;uniqueIndex;not null"`
}

// TableName 指定表名
func (Genre) TableName() string { return "genres" }

// Studio 制片公司维度
type Studio struct {
	ID   int    `json:"studio_id" gorm:"primaryKey;column:studio_id"`
	Name string `json:"studio_name" gorm:"column:studio_name;uniqueIndex;not null"`
}

// TableName 指定表名
func (Studio) TableName() string { return "studios" }

// Director 导演维度
type Director struct {
	ID   int    `json:"director_id" gorm:"primaryKey;column:director_id"`
	Name string `json:"director_name" gorm:"column:director_name;uniqueIndex;not null"`
}

// TableName 指定表名
func (Director) TableName() string { return "directors" }

// Producer 制片人维度
type Producer struct {
	ID   int    `json:"producer_id" gorm:"primaryKey;column:producer_id"`
	Name string `json:"producer_name" gorm:"column:producer_name;uniqueIndex;not null"`
}

// TableName 指定表名
func (Producer) TableName() string { return "producers" }

// CastMember 演员维度
type CastMember struct {
	ID   int    `json:"cast_id" gorm:"primaryKey;column:cast_id"`
	Name string `json:"cast_name" gorm:"column:cast_name;uniqueIndex;not null"`
}

// TableName 指定表名
func (CastMember) TableName() string { return "cast_members" }

// MovieFilter 结构化筛选条件，字段为 nil 表示不启用该维度
type MovieFilter struct {
	GenreID    *int
	StudioID   *int
	DirectorID *int
	ProducerID *int
	CastID     *int
	YearFrom   *int
	YearTo     *int
	RatingFrom *float64
	RatingTo   *float64
}

// Empty 判断是否没有任何筛选条件
func (f *MovieFilter) Empty() bool {
	return f.GenreID == nil && f.StudioID == nil && f.DirectorID == nil &&
		f.ProducerID == nil && f.CastID == nil &&
		f.YearFrom == nil && f.YearTo == nil &&
		f.RatingFrom == nil && f.RatingTo == nil
}

// ResultRow 推荐结果行（显式 DTO，字段可空性见各自类型）
type ResultRow struct {
	Sim         float64  `json:"sim"`
	MovieID     int      `json:"movie_id"`
	Title       string   `json:"title"`
	PosterURL   string   `json:"poster_url"`
	Description string   `json:"description"`
	Year        *int     `json:"year"`
	Genres      []string `json:"genres"`
	Studios     []string `json:"studios"`
	Director    *string  `json:"director"`
	Producers   []string `json:"producers"`
	Cast        []string `json:"cast"`
	Duration    int      `json:"duration"`
	PageURL     string   `json:"page_url"`
	Faved       bool     `json:"faved"`
	AvgRating   float64  `json:"avg_rating"`
}
