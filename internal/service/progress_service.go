package service

import (
	"context"
	"fmt"
	"privacy_edu_backend/internal/model"
	"privacy_edu_backend/internal/util"
	"privacy_edu_backend/pkg/monitoring"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// DayIndexFunc 返回当前天序号。注入而非直接读时钟，便于测试跨日界的连续打卡逻辑
type DayIndexFunc func() int64

// progressStore 台账的持久化接口，由 repository.ProgressRepository 实现
type progressStore interface {
	FindRecord(userID uint) (*model.StudentProgress, error)
	CreateRecord(record *model.StudentProgress) error
	FindCompletions(userID uint) ([]model.LessonCompletion, error)
	FindModuleProgress(userID uint, moduleID int) (*model.StudentModuleProgress, error)
	ApplyCompletion(record *model.StudentProgress, completion *model.LessonCompletion, moduleProgress []model.StudentModuleProgress) error
}

// ProgressService 进度台账：每个学生一条记录，状态机只有
// 未注册 → 已注册 两个状态（注册后不可退出）。
// 所有写操作按账户串行化；派生字段在每次写入后整体重算，不做增量修补。
type ProgressService struct {
	store    progressStore
	catalog  *CatalogService
	events   EventSink
	dayIndex DayIndexFunc
	redis    *redis.Client // 注册状态缓存，可为 nil

	mu           sync.Mutex
	accountLocks map[uint]*sync.Mutex
}

func NewProgressService(store progressStore, catalog *CatalogService, events EventSink, rdb *redis.Client) *ProgressService {
	return &ProgressService{
		store:        store,
		catalog:      catalog,
		events:       events,
		dayIndex:     util.CurrentDayIndex,
		redis:        rdb,
		accountLocks: make(map[uint]*sync.Mutex),
	}
}

// SetDayIndexFunc 替换天序号时钟（测试用）
func (s *ProgressService) SetDayIndexFunc(fn DayIndexFunc) {
	s.dayIndex = fn
}

// lockAccount 返回账户粒度的互斥锁；不同账户的操作互不阻塞
func (s *ProgressService) lockAccount(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.accountLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.accountLocks[userID] = l
	}
	return l
}

// Enroll 注册学生。重复注册报 ErrAlreadyEnrolled，不会重置已有进度
func (s *ProgressService) Enroll(userID uint) error {
	l := s.lockAccount(userID)
	l.Lock()
	defer l.Unlock()

	existing, err := s.store.FindRecord(userID)
	if err == nil && existing.Enrolled {
		return util.ErrAlreadyEnrolled
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	record := &model.StudentProgress{
		UserID:        userID,
		Enrolled:      true,
		LastActiveDay: s.dayIndex(),
	}
	if err := s.store.CreateRecord(record); err != nil {
		return err
	}

	s.cacheEnrolled(userID)
	monitoring.EnrollmentCounter.Inc()
	s.events.Publish(newEvent(userID, model.EventEnrolled, nil, nil))
	return nil
}

// RecordCompletion 写入一个课时完成比特位并整体重算派生字段。
// 前置条件按固定顺序检查，任何一项失败都不产生状态变更和事件。
func (s *ProgressService) RecordCompletion(userID uint, moduleID, lessonID int, completed bool) error {
	l := s.lockAccount(userID)
	l.Lock()
	defer l.Unlock()

	record, err := s.store.FindRecord(userID)
	if err == gorm.ErrRecordNotFound || (err == nil && !record.Enrolled) {
		return util.ErrNotEnrolled
	}
	if err != nil {
		return err
	}

	module, err := s.catalog.Get(moduleID)
	if err != nil {
		return util.ErrUnknownModule
	}
	if lessonID < 0 || lessonID >= module.LessonCount {
		return util.ErrUnknownLesson
	}
	if !module.Active {
		return util.ErrModuleInactive
	}

	completions, err := s.store.FindCompletions(userID)
	if err != nil {
		return err
	}
	matrix := buildMatrix(completions)

	modules := s.catalog.List()
	before, _, _ := recomputeAggregates(modules, matrix)

	// 覆盖写入：重复写同一个值不改变存储位，但仍触发重算和事件
	setBit(matrix, moduleID, lessonID, completed)

	// 连续打卡只在标记完成时推进；LastActiveDay 只向前走，
	// 时钟回拨按“同一天”处理，不破坏已有连续天数
	if completed {
		today := s.dayIndex()
		switch {
		case today == record.LastActiveDay:
			// 同一天重复完成不加天数
		case today == record.LastActiveDay+1:
			record.LearningStreak++
			record.LastActiveDay = today
		case today > record.LastActiveDay+1:
			record.LearningStreak = 1
			record.LastActiveDay = today
		}
	}

	after, total, completedLessons := recomputeAggregates(modules, matrix)
	record.TotalProgress = total
	record.CompletedLessons = completedLessons

	completion := &model.LessonCompletion{
		UserID:    userID,
		ModuleID:  moduleID,
		LessonID:  lessonID,
		Completed: completed,
		UpdatedAt: time.Now(),
	}
	rows := make([]model.StudentModuleProgress, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, model.StudentModuleProgress{
			UserID:   userID,
			ModuleID: m.Position,
			Progress: after[m.Position],
		})
	}

	if err := s.store.ApplyCompletion(record, completion, rows); err != nil {
		return err
	}

	if completed {
		monitoring.LessonCompletionCounter.Inc()
		s.events.Publish(newEvent(userID, model.EventLessonCompleted, &moduleID, &lessonID))
		if after[moduleID] == 100 && before[moduleID] < 100 {
			monitoring.ModuleCompletionCounter.Inc()
			s.events.Publish(newEvent(userID, model.EventModuleCompleted, &moduleID, nil))
		}
	}
	s.events.Publish(newEvent(userID, model.EventProgressUpdated, nil, nil))
	return nil
}

// TotalProgress 总进度百分比（各模块百分比的截断均值）
func (s *ProgressService) TotalProgress(userID uint) (int, error) {
	record, err := s.enrolledRecord(userID)
	if err != nil {
		return 0, err
	}
	return record.TotalProgress, nil
}

// ModuleProgress 单模块进度百分比
func (s *ProgressService) ModuleProgress(userID uint, moduleID int) (int, error) {
	if _, err := s.enrolledRecord(userID); err != nil {
		return 0, err
	}
	if _, err := s.catalog.Get(moduleID); err != nil {
		return 0, util.ErrUnknownModule
	}

	mp, err := s.store.FindModuleProgress(userID, moduleID)
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return mp.Progress, nil
}

// CompletedLessons 全部模块中已完成课时总数
func (s *ProgressService) CompletedLessons(userID uint) (int, error) {
	record, err := s.enrolledRecord(userID)
	if err != nil {
		return 0, err
	}
	return record.CompletedLessons, nil
}

// LearningStreak 当前连续学习天数
func (s *ProgressService) LearningStreak(userID uint) (int, error) {
	record, err := s.enrolledRecord(userID)
	if err != nil {
		return 0, err
	}
	return record.LearningStreak, nil
}

// IsLessonCompleted 查询单个课时比特位
func (s *ProgressService) IsLessonCompleted(userID uint, moduleID, lessonID int) (bool, error) {
	if _, err := s.enrolledRecord(userID); err != nil {
		return false, err
	}
	module, err := s.catalog.Get(moduleID)
	if err != nil {
		return false, util.ErrUnknownModule
	}
	if lessonID < 0 || lessonID >= module.LessonCount {
		return false, util.ErrUnknownLesson
	}

	completions, err := s.store.FindCompletions(userID)
	if err != nil {
		return false, err
	}
	return buildMatrix(completions)[matrixKey(moduleID, lessonID)], nil
}

// IsEnrolled 唯一对任意账户都可调用的查询，从未出现过的账户返回 false
func (s *ProgressService) IsEnrolled(userID uint) (bool, error) {
	if s.redis != nil {
		val, err := s.redis.Get(context.Background(), enrolledCacheKey(userID)).Result()
		if err == nil && val == "1" {
			return true, nil
		}
	}

	record, err := s.store.FindRecord(userID)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if record.Enrolled {
		s.cacheEnrolled(userID)
	}
	return record.Enrolled, nil
}

// ModuleSummary 面板用的单模块视图
type ModuleSummary struct {
	ModuleID    int    `json:"moduleId"`
	Name        string `json:"name"`
	LessonCount int    `json:"lessonCount"`
	Active      bool   `json:"active"`
	Progress    int    `json:"progress"`
	Lessons     []bool `json:"lessons"`
}

// ProgressSummary 面板用的台账汇总视图
type ProgressSummary struct {
	Enrolled         bool            `json:"enrolled"`
	TotalProgress    int             `json:"totalProgress"`
	CompletedLessons int             `json:"completedLessons"`
	LearningStreak   int             `json:"learningStreak"`
	LastActiveDay    int64           `json:"lastActiveDay"`
	Modules          []ModuleSummary `json:"modules"`
}

// Summary 一次取回台账记录和逐课时完成矩阵
func (s *ProgressService) Summary(userID uint) (*ProgressSummary, error) {
	record, err := s.enrolledRecord(userID)
	if err != nil {
		return nil, err
	}

	completions, err := s.store.FindCompletions(userID)
	if err != nil {
		return nil, err
	}
	matrix := buildMatrix(completions)

	modules := s.catalog.List()
	perModule, _, _ := recomputeAggregates(modules, matrix)

	summaries := make([]ModuleSummary, 0, len(modules))
	for _, m := range modules {
		lessons := make([]bool, m.LessonCount)
		for l := 0; l < m.LessonCount; l++ {
			lessons[l] = matrix[matrixKey(m.Position, l)]
		}
		summaries = append(summaries, ModuleSummary{
			ModuleID:    m.Position,
			Name:        m.Name,
			LessonCount: m.LessonCount,
			Active:      m.Active,
			Progress:    perModule[m.Position],
			Lessons:     lessons,
		})
	}

	return &ProgressSummary{
		Enrolled:         record.Enrolled,
		TotalProgress:    record.TotalProgress,
		CompletedLessons: record.CompletedLessons,
		LearningStreak:   record.LearningStreak,
		LastActiveDay:    record.LastActiveDay,
		Modules:          summaries,
	}, nil
}

func (s *ProgressService) enrolledRecord(userID uint) (*model.StudentProgress, error) {
	record, err := s.store.FindRecord(userID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}
	if !record.Enrolled {
		return nil, util.ErrNotEnrolled
	}
	return record, nil
}

func (s *ProgressService) cacheEnrolled(userID uint) {
	if s.redis == nil {
		return
	}
	s.redis.Set(context.Background(), enrolledCacheKey(userID), "1", 0)
}

func enrolledCacheKey(userID uint) string {
	return fmt.Sprintf("enrolled:%d", userID)
}

// matrixKey 完成矩阵的扁平键
func matrixKey(moduleID, lessonID int) [2]int {
	return [2]int{moduleID, lessonID}
}

func buildMatrix(completions []model.LessonCompletion) map[[2]int]bool {
	matrix := make(map[[2]int]bool, len(completions))
	for _, c := range completions {
		if c.Completed {
			matrix[matrixKey(c.ModuleID, c.LessonID)] = true
		}
	}
	return matrix
}

func setBit(matrix map[[2]int]bool, moduleID, lessonID int, completed bool) {
	if completed {
		matrix[matrixKey(moduleID, lessonID)] = true
	} else {
		delete(matrix, matrixKey(moduleID, lessonID))
	}
}

// recomputeAggregates 由完成矩阵和模块目录整体重算全部派生字段。
// 单模块百分比用截断除法；总进度是各模块百分比之和再对模块数截断取均值。
// 注意是两段截断：先截断的单模块百分比再求均值，不等价于按课时加权。
func recomputeAggregates(modules []model.LearningModule, matrix map[[2]int]bool) (perModule map[int]int, total int, completedLessons int) {
	perModule = make(map[int]int, len(modules))
	sum := 0
	for _, m := range modules {
		done := 0
		for l := 0; l < m.LessonCount; l++ {
			if matrix[matrixKey(m.Position, l)] {
				done++
			}
		}
		pct := 0
		if m.LessonCount > 0 {
			pct = done * 100 / m.LessonCount
		}
		perModule[m.Position] = pct
		sum += pct
		completedLessons += done
	}
	if len(modules) > 0 {
		total = sum / len(modules)
	}
	return perModule, total, completedLessons
}

func newEvent(userID uint, eventType model.EventType, moduleID, lessonID *int) *model.ProgressEvent {
	return &model.ProgressEvent{
		UserID:   userID,
		Type:     eventType,
		ModuleID: moduleID,
		LessonID: lessonID,
	}
}
