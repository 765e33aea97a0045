package model

import (
	"time"
)

// User 用户模型
type User struct {
	ID           int       `json:"id" gorm:"primaryKey;column:user_id"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID       int
	Email    string
	Username string
	Role     string
}

// Favorite 收藏（用户-电影联合主键）
type Favorite struct {
	UserID    int       `json:"user_id" gorm:"primaryKey"`
	MovieID   int       `json:"movie_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (Favorite) TableName() string { return "favorites" }

// Rating 用户对推荐模型的打分（1-10）
type Rating struct {
	UserID  int       `json:"user_id" gorm:"primaryKey"`
	MovieID int       `json:"movie_id" gorm:"primaryKey"`
	Rating  int       `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
}

// TableName 指定表名
func (Rating) TableName() string { return "ratings" }

// ActivityLog 用户行为日志
type ActivityLog struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	UserID    *int      `json:"user_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }
