package repository

import (
	"encoding/json"
	"log"
	"time"

	"github.com/user/cinematch/internal/model"
	"gorm.io/gorm"
)

type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Log 记录一条用户行为，detail 序列化为 JSON 存入 jsonb 列
// 行为日志是旁路数据，写入失败只打日志，不影响主流程。
func (r *ActivityLogRepository) Log(userID *int, action string, detail map[string]interface{}) {
	var detailJSON string
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			log.Printf("[ActivityLog] 序列化 detail 失败: %v", err)
		} else {
			detailJSON = string(data)
		}
	}

	entry := &model.ActivityLog{
		UserID:    userID,
		Action:    action,
		Detail:    detailJSON,
		CreatedAt: time.Now(),
	}
	if err := r.db.Create(entry).Error; err != nil {
		log.Printf("[ActivityLog] 写入失败: %v", err)
	}
}

// DeleteOld 清理超过指定天数的日志
func (r *ActivityLogRepository) DeleteOld(days int) (int64, error) {
	result := r.db.Exec(`
		DELETE FROM activity_logs
		WHERE created_at < NOW() - INTERVAL '1 day' * ?
	`, days)
	return result.RowsAffected, result.Error
}
