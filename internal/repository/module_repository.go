package repository

import (
	"privacy_edu_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

// ListOrdered 按 Position 升序返回全部模块（含停用模块）
func (r *ModuleRepository) ListOrdered() ([]model.LearningModule, error) {
	var modules []model.LearningModule
	err := r.DB.Order("position ASC").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) Create(module *model.LearningModule) error {
	return r.DB.Create(module).Error
}

func (r *ModuleRepository) Save(module *model.LearningModule) error {
	return r.DB.Save(module).Error
}

func (r *ModuleRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.LearningModule{}).Count(&count).Error
	return count, err
}
