package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
)

func TestMergeClasses_StructuredAndSorted(t *testing.T) {
	days := model.WeekDays{
		"Monday": {{Task: "Study", Start: "18:00", End: "20:00", Priority: "high"}},
	}
	courses := []model.Course{
		{
			Name: "Math",
			Schedule: model.CourseWeek{
				"Monday": {Times: []model.ClassTime{{Start: "10:00", End: "11:30"}}},
			},
		},
	}

	merged := MergeClasses(days, courses)
	blocks := merged["Monday"]
	if len(blocks) != 2 {
		t.Fatalf("预期 2 个块，实际 %d", len(blocks))
	}
	// 按开始时间排序：课程在前
	if !blocks[0].IsClass || blocks[0].Task != "Math" {
		t.Errorf("第一个块应为课程: %+v", blocks[0])
	}
	if blocks[1].Task != "Study" {
		t.Errorf("第二个块应为用户任务: %+v", blocks[1])
	}
	// 原始 days 不被修改
	if len(days["Monday"]) != 1 {
		t.Error("合并不得修改输入")
	}
}

func TestMergeClasses_LegacyHours(t *testing.T) {
	courses := []model.Course{
		{
			Name: "History",
			Schedule: model.CourseWeek{
				"Wednesday": {IsLegacy: true, LegacyHours: 3},
			},
		},
	}

	merged := MergeClasses(nil, courses)
	blocks := merged["Wednesday"]
	if len(blocks) != 1 {
		t.Fatalf("预期 1 个块，实际 %d", len(blocks))
	}
	b := blocks[0]
	if b.Task != "History (3h)" {
		t.Errorf("遗留格式任务名应为 History (3h)，实际 %q", b.Task)
	}
	if b.Start != "09:00" || b.End != "12:00" {
		t.Errorf("遗留格式应为 09:00 起连排，实际 %s-%s", b.Start, b.End)
	}
	if !b.IsClass {
		t.Error("遗留格式也应标记为课程块")
	}
}

func TestMergeClasses_SkipsInvalidDay(t *testing.T) {
	courses := []model.Course{
		{
			Name: "Ghost",
			Schedule: model.CourseWeek{
				"Noday": {Times: []model.ClassTime{{Start: "10:00", End: "11:00"}}},
			},
		},
	}
	merged := MergeClasses(nil, courses)
	total := 0
	for _, blocks := range merged {
		total += len(blocks)
	}
	if total != 0 {
		t.Errorf("非法星期名应被跳过，实际合并了 %d 个块", total)
	}
}

func TestStripClasses(t *testing.T) {
	days := model.WeekDays{
		"Monday": {
			{Task: "Math", Start: "10:00", End: "11:30", IsClass: true},
			{Task: "Study", Start: "18:00", End: "20:00"},
		},
	}
	stripped := StripClasses(days)
	if len(stripped["Monday"]) != 1 || stripped["Monday"][0].Task != "Study" {
		t.Errorf("剥除后应只剩用户任务: %+v", stripped["Monday"])
	}
}

func TestToggleComplete(t *testing.T) {
	repo := newTestRepository()
	svc := NewTimetableService(repo, zap.NewNop())
	uid := uuid.New()

	_ = repo.WeekSchedule.Save(context.Background(), &model.WeekSchedule{
		UserID: uid,
		Days: model.WeekDays{
			"Monday": {{Task: "Study", Start: "18:00", End: "20:00", Priority: "high"}},
		},
	})

	req := &dto.ToggleCompleteRequest{Day: "Monday", Task: "Study", Start: "18:00", End: "20:00"}
	resp, err := svc.ToggleComplete(context.Background(), uid.String(), req)
	if err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if !resp.Days["Monday"][0].Completed {
		t.Error("任务应标记为已完成")
	}

	// 再切回
	resp, err = svc.ToggleComplete(context.Background(), uid.String(), req)
	if err != nil {
		t.Fatalf("二次切换失败: %v", err)
	}
	if resp.Days["Monday"][0].Completed {
		t.Error("二次切换应恢复未完成")
	}
}

func TestToggleComplete_ClassRefused(t *testing.T) {
	repo := newTestRepository()
	svc := NewTimetableService(repo, zap.NewNop())
	uid := uuid.New()

	_ = repo.WeekSchedule.Save(context.Background(), &model.WeekSchedule{
		UserID: uid,
		Days:   model.WeekDays{},
	})
	_ = repo.Course.Create(context.Background(), &model.Course{
		UserID: uid,
		Name:   "Math",
		Schedule: model.CourseWeek{
			"Monday": {Times: []model.ClassTime{{Start: "10:00", End: "11:30"}}},
		},
	})

	req := &dto.ToggleCompleteRequest{Day: "Monday", Task: "Math", Start: "10:00", End: "11:30"}
	_, err := svc.ToggleComplete(context.Background(), uid.String(), req)
	if !errors.Is(err, ErrClassImmutable) {
		t.Errorf("课程块切换应返回 ErrClassImmutable，实际 %v", err)
	}
}

func TestToggleComplete_NotFound(t *testing.T) {
	repo := newTestRepository()
	svc := NewTimetableService(repo, zap.NewNop())
	uid := uuid.New()

	req := &dto.ToggleCompleteRequest{Day: "Monday", Task: "Ghost", Start: "10:00", End: "11:00"}
	_, err := svc.ToggleComplete(context.Background(), uid.String(), req)
	if !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("无记录应返回 ErrBlockNotFound，实际 %v", err)
	}
}

func TestGetMyTimetable_EmptyScheduleStillMergesClasses(t *testing.T) {
	repo := newTestRepository()
	svc := NewTimetableService(repo, zap.NewNop())
	uid := uuid.New()

	_ = repo.Course.Create(context.Background(), &model.Course{
		UserID: uid,
		Name:   "Physics",
		Schedule: model.CourseWeek{
			"Tuesday": {Times: []model.ClassTime{{Start: "14:00", End: "16:00"}}},
		},
	})

	resp, err := svc.GetMyTimetable(context.Background(), uid.String())
	if err != nil {
		t.Fatalf("获取视图失败: %v", err)
	}
	if len(resp.Days["Tuesday"]) != 1 || !resp.Days["Tuesday"][0].IsClass {
		t.Errorf("无周日程时视图仍应含课程块: %+v", resp.Days)
	}
}
