package model

import (
	"time"

	"gorm.io/gorm"
)

// StudentProgress 每个学生一条的进度台账记录。
// TotalProgress、CompletedLessons、LearningStreak 均为派生字段，
// 每次写入后由服务层整体重算，调用方不能直接设置。
// swagger:model StudentProgress
type StudentProgress struct {
	gorm.Model
	UserID           uint  `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"userId"`
	Enrolled         bool  `gorm:"default:false" json:"enrolled"`
	TotalProgress    int   `gorm:"default:0" json:"totalProgress"`    // 0-100
	CompletedLessons int   `gorm:"default:0" json:"completedLessons"` // 全部模块中已完成课时总数
	LearningStreak   int   `gorm:"default:0" json:"learningStreak"`   // 连续学习天数
	LastActiveDay    int64 `gorm:"default:0" json:"lastActiveDay"`    // 最近一次推进连续天数的天序号
}

func (StudentProgress) TableName() string {
	return "student_progress"
}

// LessonCompletion 课时完成矩阵中的一个比特位
type LessonCompletion struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_module_lesson;type:bigint unsigned;not null" json:"userId"`
	ModuleID  int       `gorm:"uniqueIndex:idx_user_module_lesson;not null" json:"moduleId"`
	LessonID  int       `gorm:"uniqueIndex:idx_user_module_lesson;not null" json:"lessonId"`
	Completed bool      `gorm:"default:false" json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}

// StudentModuleProgress 单模块进度百分比，派生自课时完成矩阵
type StudentModuleProgress struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint `gorm:"uniqueIndex:idx_user_module;type:bigint unsigned;not null" json:"userId"`
	ModuleID int  `gorm:"uniqueIndex:idx_user_module;not null" json:"moduleId"`
	Progress int  `gorm:"default:0" json:"progress"` // 0-100，始终是 100/lessonCount 的整数倍
}

func (StudentModuleProgress) TableName() string {
	return "student_module_progress"
}
