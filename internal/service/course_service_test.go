package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
)

func TestCourseCreate_Defaults(t *testing.T) {
	repo := newTestRepository()
	svc := NewCourseService(repo, zap.NewNop())
	uid := uuid.New()

	resp, err := svc.Create(context.Background(), uid.String(), &dto.CreateCourseRequest{Name: "Math"})
	if err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}
	if resp.MinAttendance != 75 {
		t.Errorf("最低出勤率缺省应为 75，实际 %d", resp.MinAttendance)
	}
	if resp.Source != model.CourseSourceManual {
		t.Errorf("手动创建来源应为 manual，实际 %s", resp.Source)
	}
	if resp.AttendancePercent != 100 {
		t.Errorf("零课时出勤率应为 100，实际 %f", resp.AttendancePercent)
	}
}

func TestCourseCreate_InvalidSchedule(t *testing.T) {
	repo := newTestRepository()
	svc := NewCourseService(repo, zap.NewNop())
	uid := uuid.New()

	req := &dto.CreateCourseRequest{
		Name: "Math",
		Schedule: model.CourseWeek{
			"Monday": {Times: []model.ClassTime{{Start: "11:00", End: "10:00"}}},
		},
	}
	if _, err := svc.Create(context.Background(), uid.String(), req); !errors.Is(err, ErrCourseInvalidSchedule) {
		t.Errorf("起止倒置应返回 ErrCourseInvalidSchedule，实际 %v", err)
	}
}

func TestCourseUpdate_OwnershipEnforced(t *testing.T) {
	repo := newTestRepository()
	svc := NewCourseService(repo, zap.NewNop())
	owner := uuid.New()
	stranger := uuid.New()

	created, err := svc.Create(context.Background(), owner.String(), &dto.CreateCourseRequest{Name: "Math"})
	if err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	name := "Hijacked"
	_, err = svc.Update(context.Background(), created.CourseID, stranger.String(), &dto.UpdateCourseRequest{Name: &name})
	if !errors.Is(err, ErrCourseNotOwner) {
		t.Errorf("非归属者更新应返回 ErrCourseNotOwner，实际 %v", err)
	}

	if err := svc.Delete(context.Background(), created.CourseID, stranger.String()); !errors.Is(err, ErrCourseNotOwner) {
		t.Errorf("非归属者删除应返回 ErrCourseNotOwner，实际 %v", err)
	}
}

// 合法样本：周一 10:00-11:30（上海时区）与周三同名课程
const weeklyICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:1@test
SUMMARY:Linear Algebra
DTSTART:20260831T020000Z
DTEND:20260831T033000Z
END:VEVENT
BEGIN:VEVENT
UID:2@test
SUMMARY:Linear Algebra
DTSTART:20260902T060000Z
DTEND:20260902T073000Z
END:VEVENT
BEGIN:VEVENT
UID:3@test
SUMMARY:Linear Algebra
DTSTART:20260831T020000Z
DTEND:20260831T033000Z
END:VEVENT
END:VCALENDAR
`

func TestParseICS_GroupsAndDeduplicates(t *testing.T) {
	uid := uuid.New()
	courses, err := ParseICS(strings.NewReader(weeklyICS), uid)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("同名事件应聚合为一门课，实际 %d", len(courses))
	}
	c := courses[0]
	if c.Name != "Linear Algebra" || c.Source != model.CourseSourceICS {
		t.Errorf("课程基本信息错误: %+v", c)
	}
	// 2026-08-31 是周一；UTC 02:00 = 上海 10:00
	mon := c.Schedule["Monday"]
	if len(mon.Times) != 1 {
		t.Fatalf("周一重复事件应去重为 1 个时段，实际 %d", len(mon.Times))
	}
	if mon.Times[0].Start != "10:00" || mon.Times[0].End != "11:30" {
		t.Errorf("时区换算错误: %+v", mon.Times[0])
	}
	if len(c.Schedule["Wednesday"].Times) != 1 {
		t.Errorf("周三时段缺失: %+v", c.Schedule)
	}
}

func TestImportICS_EmptyCalendar(t *testing.T) {
	repo := newTestRepository()
	svc := NewCourseService(repo, zap.NewNop())
	uid := uuid.New()

	empty := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//test//EN\nEND:VCALENDAR\n"
	_, err := svc.ImportICS(context.Background(), strings.NewReader(empty), uid.String())
	if !errors.Is(err, ErrICSEmpty) {
		t.Errorf("空日历应返回 ErrICSEmpty，实际 %v", err)
	}
}

func TestImportICS_Persists(t *testing.T) {
	repo := newTestRepository()
	svc := NewCourseService(repo, zap.NewNop())
	uid := uuid.New()

	resp, err := svc.ImportICS(context.Background(), strings.NewReader(weeklyICS), uid.String())
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.ImportedCount != 1 {
		t.Errorf("导入数量应为 1，实际 %d", resp.ImportedCount)
	}
	saved, _ := repo.Course.ListByUser(context.Background(), uid.String())
	if len(saved) != 1 {
		t.Errorf("导入课程应已持久化，实际 %d 门", len(saved))
	}
}
