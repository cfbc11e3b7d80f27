package database

import (
	"fmt"
	"log"
	"privacy_edu_backend/internal/config"
	"privacy_edu_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbc := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbc.User,
		dbc.Password,
		dbc.Host,
		dbc.Port,
		dbc.DBName,
		dbc.Charset,
		dbc.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// 生产环境默认不自动迁移，通过 -migrate 显式触发
	if cfg.Server.Mode == "release" && !cfg.ForceMigrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.LearningModule{},
		&model.StudentProgress{},
		&model.LessonCompletion{},
		&model.StudentModuleProgress{},
		&model.ProgressEvent{},
	)
	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认模块目录（仅当表为空时写入一次）
	var count int64
	db.Model(&model.LearningModule{}).Count(&count)
	if count == 0 {
		defaults := cfg.Catalog.DefaultModules
		if len(defaults) == 0 {
			defaults = []config.DefaultModule{
				{Name: "Introduction to Privacy", LessonCount: 4},
				{Name: "Encrypted Data Types", LessonCount: 4},
				{Name: "Confidential Computation", LessonCount: 4},
				{Name: "Building Private dApps", LessonCount: 4},
			}
		}
		for i, m := range defaults {
			module := &model.LearningModule{
				Position:    i,
				Name:        m.Name,
				LessonCount: m.LessonCount,
				Active:      true,
			}
			db.Create(module)
		}
		log.Printf("Seeded %d default learning modules", len(defaults))
	}

	return db, nil
}
