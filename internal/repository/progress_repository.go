package repository

import (
	"privacy_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindRecord(userID uint) (*model.StudentProgress, error) {
	var record model.StudentProgress
	err := r.DB.Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ProgressRepository) CreateRecord(record *model.StudentProgress) error {
	return r.DB.Create(record).Error
}

// FindCompletions 返回一个学生的完整课时完成矩阵
func (r *ProgressRepository) FindCompletions(userID uint) ([]model.LessonCompletion, error) {
	var completions []model.LessonCompletion
	err := r.DB.Where("user_id = ?", userID).Find(&completions).Error
	return completions, err
}

func (r *ProgressRepository) FindCompletion(userID uint, moduleID, lessonID int) (*model.LessonCompletion, error) {
	var completion model.LessonCompletion
	err := r.DB.Where("user_id = ? AND module_id = ? AND lesson_id = ?", userID, moduleID, lessonID).
		First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

func (r *ProgressRepository) FindModuleProgress(userID uint, moduleID int) (*model.StudentModuleProgress, error) {
	var mp model.StudentModuleProgress
	err := r.DB.Where("user_id = ? AND module_id = ?", userID, moduleID).First(&mp).Error
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// ApplyCompletion 在单个事务中写入课时比特位、各模块派生进度和台账记录，
// 保证失败时不会留下部分写入
func (r *ProgressRepository) ApplyCompletion(
	record *model.StudentProgress,
	completion *model.LessonCompletion,
	moduleProgress []model.StudentModuleProgress,
) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
		}).Create(completion).Error; err != nil {
			return err
		}

		for i := range moduleProgress {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"progress"}),
			}).Create(&moduleProgress[i]).Error; err != nil {
				return err
			}
		}

		return tx.Save(record).Error
	})
}
