package model

type EventType string

const (
	EventEnrolled        EventType = "enrolled"
	EventLessonCompleted EventType = "lesson_completed"
	EventModuleCompleted EventType = "module_completed"
	EventProgressUpdated EventType = "progress_updated"
)

// ProgressEvent 进度事件审计记录。事件同时会发布到 Redis 供前端层订阅，
// 此表是可查询的落库副本。
// swagger:model ProgressEvent
type ProgressEvent struct {
	UUIDBase
	UserID   uint      `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Type     EventType `gorm:"size:32;index;not null" json:"type"`
	ModuleID *int      `json:"moduleId,omitempty"`
	LessonID *int      `json:"lessonId,omitempty"`
}

func (ProgressEvent) TableName() string {
	return "progress_events"
}
