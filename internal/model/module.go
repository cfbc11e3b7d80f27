package model

import (
	"gorm.io/gorm"
)

const (
	// MaxModules 平台模块数量上限
	MaxModules = 255
	// MaxLessonsPerModule 单个模块的课时数量上限
	MaxLessonsPerModule = 255
)

// LearningModule 模块目录条目。Position 是面向调用方的模块编号：
// 从 0 开始、连续且稳定，模块只增不删。
// swagger:model LearningModule
type LearningModule struct {
	gorm.Model
	Position    int    `gorm:"uniqueIndex;not null" json:"moduleId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	LessonCount int    `gorm:"not null" json:"lessonCount"`
	Active      bool   `gorm:"default:true" json:"active"` // 仅控制能否写入，不隐藏历史数据
}

func (LearningModule) TableName() string {
	return "learning_modules"
}
