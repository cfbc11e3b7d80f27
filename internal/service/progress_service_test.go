package service

import (
	"privacy_edu_backend/internal/model"
	"privacy_edu_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeProgressStore struct {
	mu             sync.Mutex
	records        map[uint]model.StudentProgress
	completions    map[uint]map[[2]int]bool
	moduleProgress map[uint]map[int]int
	failApply      error
	applyCalls     int
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{
		records:        make(map[uint]model.StudentProgress),
		completions:    make(map[uint]map[[2]int]bool),
		moduleProgress: make(map[uint]map[int]int),
	}
}

func (f *fakeProgressStore) FindRecord(userID uint) (*model.StudentProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := record
	return &out, nil
}

func (f *fakeProgressStore) CreateRecord(record *model.StudentProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.UserID] = *record
	return nil
}

func (f *fakeProgressStore) FindCompletions(userID uint) ([]model.LessonCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LessonCompletion
	for key, completed := range f.completions[userID] {
		out = append(out, model.LessonCompletion{
			UserID:    userID,
			ModuleID:  key[0],
			LessonID:  key[1],
			Completed: completed,
		})
	}
	return out, nil
}

func (f *fakeProgressStore) FindModuleProgress(userID uint, moduleID int) (*model.StudentModuleProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	progress, ok := f.moduleProgress[userID][moduleID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.StudentModuleProgress{UserID: userID, ModuleID: moduleID, Progress: progress}, nil
}

func (f *fakeProgressStore) ApplyCompletion(record *model.StudentProgress, completion *model.LessonCompletion, moduleProgress []model.StudentModuleProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if f.failApply != nil {
		return f.failApply
	}

	if f.completions[record.UserID] == nil {
		f.completions[record.UserID] = make(map[[2]int]bool)
	}
	f.completions[record.UserID][[2]int{completion.ModuleID, completion.LessonID}] = completion.Completed

	if f.moduleProgress[record.UserID] == nil {
		f.moduleProgress[record.UserID] = make(map[int]int)
	}
	for _, mp := range moduleProgress {
		f.moduleProgress[record.UserID][mp.ModuleID] = mp.Progress
	}

	f.records[record.UserID] = *record
	return nil
}

type fakeEventSink struct {
	mu     sync.Mutex
	events []*model.ProgressEvent
}

func (f *fakeEventSink) Publish(event *model.ProgressEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEventSink) types() []model.EventType {
	out := make([]model.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func (f *fakeEventSink) reset() {
	f.events = nil
}

type testLedger struct {
	svc   *ProgressService
	store *fakeProgressStore
	sink  *fakeEventSink
	day   int64
}

func (l *testLedger) setDay(day int64) {
	l.day = day
}

// newTestLedger 用 4 个模块各 lessonCounts 的目录和可控时钟搭建台账
func newTestLedger(t *testing.T, lessonCounts ...int) *testLedger {
	t.Helper()
	catalog, _ := newTestCatalog(t, lessonCounts...)

	l := &testLedger{
		store: newFakeProgressStore(),
		sink:  &fakeEventSink{},
	}
	l.svc = NewProgressService(l.store, catalog, l.sink, nil)
	l.svc.SetDayIndexFunc(func() int64 { return l.day })
	return l
}

const testUser uint = 7

func TestRecordCompletionRequiresEnrollment(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)

	err := l.svc.RecordCompletion(testUser, 0, 0, true)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	assert.Empty(t, l.sink.events)
	assert.Zero(t, l.store.applyCalls)

	_, err = l.svc.TotalProgress(testUser)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	_, err = l.svc.LearningStreak(testUser)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	_, err = l.svc.CompletedLessons(testUser)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	_, err = l.svc.Summary(testUser)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestEnrollCreatesZeroedRecord(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	l.setDay(10)

	require.NoError(t, l.svc.Enroll(testUser))

	record := l.store.records[testUser]
	assert.True(t, record.Enrolled)
	assert.Zero(t, record.TotalProgress)
	assert.Zero(t, record.CompletedLessons)
	assert.Zero(t, record.LearningStreak)
	assert.Equal(t, int64(10), record.LastActiveDay)
	assert.Equal(t, []model.EventType{model.EventEnrolled}, l.sink.types())
}

func TestEnrollTwiceFails(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	l.setDay(10)

	require.NoError(t, l.svc.Enroll(testUser))
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	before := l.store.records[testUser]
	l.sink.reset()

	err := l.svc.Enroll(testUser)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
	// 第二次注册不能重置已有进度
	assert.Equal(t, before, l.store.records[testUser])
	assert.Empty(t, l.sink.events)
}

func TestModuleProgressLadder(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	require.NoError(t, l.svc.Enroll(testUser))

	expected := []int{25, 50, 75, 100}
	for lesson := 0; lesson < 4; lesson++ {
		l.sink.reset()
		require.NoError(t, l.svc.RecordCompletion(testUser, 0, lesson, true))

		progress, err := l.svc.ModuleProgress(testUser, 0)
		require.NoError(t, err)
		assert.Equal(t, expected[lesson], progress)

		if lesson < 3 {
			assert.Equal(t, []model.EventType{model.EventLessonCompleted, model.EventProgressUpdated}, l.sink.types())
		} else {
			// 恰好在第 4 课时的完成瞬间发出模块完成事件
			assert.Equal(t, []model.EventType{
				model.EventLessonCompleted,
				model.EventModuleCompleted,
				model.EventProgressUpdated,
			}, l.sink.types())
		}
	}

	count, err := l.svc.CompletedLessons(testUser)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestModuleCompletedNotReemitted(t *testing.T) {
	l := newTestLedger(t, 2)
	require.NoError(t, l.svc.Enroll(testUser))
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, true))

	// 模块已满，重复写同一课时不再发模块完成事件
	l.sink.reset()
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, true))
	assert.Equal(t, []model.EventType{model.EventLessonCompleted, model.EventProgressUpdated}, l.sink.types())
}

func TestRecomputeIdempotence(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	require.NoError(t, l.svc.Enroll(testUser))

	require.NoError(t, l.svc.RecordCompletion(testUser, 1, 2, true))
	first := l.store.records[testUser]

	require.NoError(t, l.svc.RecordCompletion(testUser, 1, 2, true))
	second := l.store.records[testUser]

	assert.Equal(t, first.TotalProgress, second.TotalProgress)
	assert.Equal(t, first.CompletedLessons, second.CompletedLessons)
	assert.Equal(t, l.store.moduleProgress[testUser][1], 25)
}

func TestUnsetLessonDecreasesAggregates(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	require.NoError(t, l.svc.Enroll(testUser))

	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, true))

	progress, err := l.svc.ModuleProgress(testUser, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, progress)

	// 完成不是单向的：取消标记会回落
	l.sink.reset()
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, false))

	progress, err = l.svc.ModuleProgress(testUser, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, progress)

	count, err := l.svc.CompletedLessons(testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	completed, err := l.svc.IsLessonCompleted(testUser, 0, 1)
	require.NoError(t, err)
	assert.False(t, completed)

	// 取消标记只发进度更新事件
	assert.Equal(t, []model.EventType{model.EventProgressUpdated}, l.sink.types())
}

func TestStreakScenario(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	l.setDay(5)
	require.NoError(t, l.svc.Enroll(testUser))

	// 第 10 天：距上次活跃隔了多天，连续天数从 1 重新开始
	l.setDay(10)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	streak, err := l.svc.LearningStreak(testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
	assert.Equal(t, int64(10), l.store.records[testUser].LastActiveDay)

	// 第 11 天：连续，+1
	l.setDay(11)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, true))
	streak, _ = l.svc.LearningStreak(testUser)
	assert.Equal(t, 2, streak)

	// 第 15 天：断档，重置为 1
	l.setDay(15)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 2, true))
	streak, _ = l.svc.LearningStreak(testUser)
	assert.Equal(t, 1, streak)
	assert.Equal(t, int64(15), l.store.records[testUser].LastActiveDay)

	// 第 15 天再完成一课：同日不加
	require.NoError(t, l.svc.RecordCompletion(testUser, 1, 0, true))
	streak, _ = l.svc.LearningStreak(testUser)
	assert.Equal(t, 1, streak)
}

func TestStreakUntouchedByUnset(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	l.setDay(5)
	require.NoError(t, l.svc.Enroll(testUser))

	l.setDay(10)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))

	// completed=false 不触碰连续天数，即使又过了几天
	l.setDay(14)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, false))
	record := l.store.records[testUser]
	assert.Equal(t, 1, record.LearningStreak)
	assert.Equal(t, int64(10), record.LastActiveDay)
}

func TestStreakClockRegression(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	l.setDay(5)
	require.NoError(t, l.svc.Enroll(testUser))

	l.setDay(10)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	l.setDay(11)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, true))

	// 时钟回拨按“同一天”处理：LastActiveDay 只向前走
	l.setDay(8)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 2, true))
	record := l.store.records[testUser]
	assert.Equal(t, 2, record.LearningStreak)
	assert.Equal(t, int64(11), record.LastActiveDay)
}

func TestTotalProgressTwoStageTruncation(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	require.NoError(t, l.svc.Enroll(testUser))

	for lesson := 0; lesson < 4; lesson++ {
		require.NoError(t, l.svc.RecordCompletion(testUser, 0, lesson, true))
	}

	// [100,0,0,0] 的截断均值是 25
	total, err := l.svc.TotalProgress(testUser)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
}

func TestTruncatingDivisionOddLessonCount(t *testing.T) {
	l := newTestLedger(t, 3)
	require.NoError(t, l.svc.Enroll(testUser))

	expected := []int{33, 66, 100}
	for lesson := 0; lesson < 3; lesson++ {
		require.NoError(t, l.svc.RecordCompletion(testUser, 0, lesson, true))
		progress, err := l.svc.ModuleProgress(testUser, 0)
		require.NoError(t, err)
		assert.Equal(t, expected[lesson], progress)
	}
}

func TestTwoStageTruncationArtifact(t *testing.T) {
	// 2 个 3 课时模块各完成 2 课：逐模块先截断 (66+66)/2 = 66，
	// 而不是按课时加权 4/6 再截断的结果
	l := newTestLedger(t, 3, 3)
	require.NoError(t, l.svc.Enroll(testUser))

	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 1, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 1, 0, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 1, 1, true))

	total, err := l.svc.TotalProgress(testUser)
	require.NoError(t, err)
	assert.Equal(t, 66, total)
}

func TestPreconditionOrder(t *testing.T) {
	l := newTestLedger(t, 4, 4)

	// 未注册优先于一切
	err := l.svc.RecordCompletion(testUser, 99, 99, true)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	require.NoError(t, l.svc.Enroll(testUser))

	err = l.svc.RecordCompletion(testUser, 99, 0, true)
	assert.ErrorIs(t, err, util.ErrUnknownModule)

	err = l.svc.RecordCompletion(testUser, 1, 99, true)
	assert.ErrorIs(t, err, util.ErrUnknownLesson)

	// 停用模块上：课时越界先于模块停用报出
	_, err = l.svc.catalog.ToggleModule(1)
	require.NoError(t, err)
	err = l.svc.RecordCompletion(testUser, 1, 99, true)
	assert.ErrorIs(t, err, util.ErrUnknownLesson)
	err = l.svc.RecordCompletion(testUser, 1, 0, true)
	assert.ErrorIs(t, err, util.ErrModuleInactive)
}

func TestInactiveModuleLeavesStateUntouched(t *testing.T) {
	l := newTestLedger(t, 4, 4)
	require.NoError(t, l.svc.Enroll(testUser))
	require.NoError(t, l.svc.RecordCompletion(testUser, 1, 0, true))
	before := l.store.records[testUser]

	_, err := l.svc.catalog.ToggleModule(1)
	require.NoError(t, err)
	l.sink.reset()

	err = l.svc.RecordCompletion(testUser, 1, 1, true)
	assert.ErrorIs(t, err, util.ErrModuleInactive)
	assert.Equal(t, before, l.store.records[testUser])
	assert.Empty(t, l.sink.events)

	// 停用不隐藏历史数据
	progress, err := l.svc.ModuleProgress(testUser, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, progress)
}

func TestPersistFailureEmitsNoEvents(t *testing.T) {
	l := newTestLedger(t, 4)
	require.NoError(t, l.svc.Enroll(testUser))
	l.sink.reset()

	l.store.failApply = gorm.ErrInvalidTransaction
	err := l.svc.RecordCompletion(testUser, 0, 0, true)
	assert.Error(t, err)
	assert.Empty(t, l.sink.events)

	l.store.failApply = nil
	_, hasBit := l.store.completions[testUser][[2]int{0, 0}]
	assert.False(t, hasBit)
}

func TestIsEnrolledForAnyAccount(t *testing.T) {
	l := newTestLedger(t, 4)

	// 从未出现过的账户不报错，返回 false
	enrolled, err := l.svc.IsEnrolled(12345)
	require.NoError(t, err)
	assert.False(t, enrolled)

	require.NoError(t, l.svc.Enroll(testUser))
	enrolled, err = l.svc.IsEnrolled(testUser)
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestLessonStatusValidatesBothIDs(t *testing.T) {
	l := newTestLedger(t, 4)
	require.NoError(t, l.svc.Enroll(testUser))

	_, err := l.svc.IsLessonCompleted(testUser, 9, 0)
	assert.ErrorIs(t, err, util.ErrUnknownModule)
	_, err = l.svc.IsLessonCompleted(testUser, 0, 9)
	assert.ErrorIs(t, err, util.ErrUnknownLesson)

	completed, err := l.svc.IsLessonCompleted(testUser, 0, 0)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestSummary(t *testing.T) {
	l := newTestLedger(t, 4, 4, 4, 4)
	l.setDay(5)
	require.NoError(t, l.svc.Enroll(testUser))

	l.setDay(10)
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 0, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 0, 2, true))

	summary, err := l.svc.Summary(testUser)
	require.NoError(t, err)
	assert.True(t, summary.Enrolled)
	assert.Equal(t, 12, summary.TotalProgress) // (50+0+0+0)/4
	assert.Equal(t, 2, summary.CompletedLessons)
	assert.Equal(t, 1, summary.LearningStreak)
	assert.Equal(t, int64(10), summary.LastActiveDay)
	require.Len(t, summary.Modules, 4)
	assert.Equal(t, 50, summary.Modules[0].Progress)
	assert.Equal(t, []bool{true, false, true, false}, summary.Modules[0].Lessons)
	assert.Equal(t, 0, summary.Modules[1].Progress)
}

func TestModuleProgressIsMultipleOfStep(t *testing.T) {
	l := newTestLedger(t, 4, 3, 5)
	require.NoError(t, l.svc.Enroll(testUser))

	require.NoError(t, l.svc.RecordCompletion(testUser, 2, 0, true))
	require.NoError(t, l.svc.RecordCompletion(testUser, 2, 3, true))

	progress, err := l.svc.ModuleProgress(testUser, 2)
	require.NoError(t, err)
	// 2/5 → 40，始终是 100/lessonCount 的整数倍
	assert.Equal(t, 40, progress)
	assert.Zero(t, progress%(100/5))
}

func TestConcurrentAccountsIndependent(t *testing.T) {
	l := newTestLedger(t, 4)

	const other uint = 8
	require.NoError(t, l.svc.Enroll(testUser))
	require.NoError(t, l.svc.Enroll(other))

	done := make(chan error, 2)
	go func() { done <- l.svc.RecordCompletion(testUser, 0, 0, true) }()
	go func() { done <- l.svc.RecordCompletion(other, 0, 1, true) }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	a, err := l.svc.CompletedLessons(testUser)
	require.NoError(t, err)
	b, err := l.svc.CompletedLessons(other)
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
