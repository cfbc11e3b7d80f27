package repository

import (
	"privacy_edu_backend/internal/model"

	"gorm.io/gorm"
)

type EventRepository struct {
	DB *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{DB: db}
}

func (r *EventRepository) Create(event *model.ProgressEvent) error {
	return r.DB.Create(event).Error
}

// List 管理端事件审计查询，userID 为 0 时返回全部用户的事件
func (r *EventRepository) List(userID uint, page, limit int) ([]model.ProgressEvent, int64, error) {
	var events []model.ProgressEvent
	var total int64

	query := r.DB.Model(&model.ProgressEvent{})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at DESC").Find(&events).Error
	return events, total, err
}
