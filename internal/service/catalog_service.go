package service

import (
	"privacy_edu_backend/internal/model"
	"privacy_edu_backend/internal/util"
	"sync"
)

// moduleStore 目录的持久化接口，由 repository.ModuleRepository 实现
type moduleStore interface {
	ListOrdered() ([]model.LearningModule, error)
	Create(module *model.LearningModule) error
	Save(module *model.LearningModule) error
}

// CatalogService 模块目录。模块编号从 0 开始连续分配，只增不删；
// 停用（Active=false）只拦截写入，历史进度照常可查。
// 目录在内存中持有快照，管理操作先落库再更新快照。
type CatalogService struct {
	store moduleStore

	mu      sync.RWMutex
	modules []model.LearningModule // 按 Position 升序，下标即模块编号
}

func NewCatalogService(store moduleStore) (*CatalogService, error) {
	modules, err := store.ListOrdered()
	if err != nil {
		return nil, err
	}
	return &CatalogService{
		store:   store,
		modules: modules,
	}, nil
}

func (s *CatalogService) ModuleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.modules)
}

func (s *CatalogService) Get(moduleID int) (model.LearningModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if moduleID < 0 || moduleID >= len(s.modules) {
		return model.LearningModule{}, util.ErrUnknownModule
	}
	return s.modules[moduleID], nil
}

// List 返回目录快照的副本（含停用模块）
func (s *CatalogService) List() []model.LearningModule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LearningModule, len(s.modules))
	copy(out, s.modules)
	return out
}

// AddModule 管理端追加模块，分配下一个连续编号
func (s *CatalogService) AddModule(name string, lessonCount int) (model.LearningModule, error) {
	if lessonCount <= 0 || lessonCount > model.MaxLessonsPerModule {
		return model.LearningModule{}, util.ErrInvalidLessonCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.modules) >= model.MaxModules {
		return model.LearningModule{}, util.ErrCatalogFull
	}

	module := model.LearningModule{
		Position:    len(s.modules),
		Name:        name,
		LessonCount: lessonCount,
		Active:      true,
	}
	if err := s.store.Create(&module); err != nil {
		return model.LearningModule{}, err
	}

	s.modules = append(s.modules, module)
	return module, nil
}

// ToggleModule 管理端启用/停用模块
func (s *CatalogService) ToggleModule(moduleID int) (model.LearningModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if moduleID < 0 || moduleID >= len(s.modules) {
		return model.LearningModule{}, util.ErrUnknownModule
	}

	module := s.modules[moduleID]
	module.Active = !module.Active
	if err := s.store.Save(&module); err != nil {
		return model.LearningModule{}, err
	}

	s.modules[moduleID] = module
	return module, nil
}
