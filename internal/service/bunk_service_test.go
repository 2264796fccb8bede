package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
)

func TestMatchCourse_Scoring(t *testing.T) {
	courses := []model.Course{
		{Name: "Math"},
		{Name: "Mathematical Logic"},
		{Name: "Physics"},
	}

	// 完全匹配压过子串匹配
	if got := matchCourse(courses, "math"); got == nil || got.Name != "Math" {
		t.Errorf("完全匹配应选 Math，实际 %+v", got)
	}
	// 子串匹配
	if got := matchCourse(courses, "can i skip physics today?"); got == nil || got.Name != "Physics" {
		t.Errorf("子串匹配应选 Physics，实际 %+v", got)
	}
	// 不匹配
	if got := matchCourse(courses, "can i skip chemistry?"); got != nil {
		t.Errorf("无匹配应返回 nil，实际 %+v", got)
	}
}

func TestBunkAdvice_SafeToSkip(t *testing.T) {
	course := &model.Course{
		Name:            "Math",
		AttendedClasses: 18,
		TotalClasses:    20,
		MinAttendance:   75,
	}
	// 18/21 = 85.7% >= 75%
	advice := bunkAdvice(course)
	if !strings.HasPrefix(advice, "YES") {
		t.Errorf("出勤充足应建议可翘: %s", advice)
	}
}

func TestBunkAdvice_NotSafe(t *testing.T) {
	course := &model.Course{
		Name:            "Physics",
		AttendedClasses: 15,
		TotalClasses:    20,
		MinAttendance:   75,
	}
	// 15/21 = 71.4% < 75%
	advice := bunkAdvice(course)
	if !strings.HasPrefix(advice, "NO") {
		t.Errorf("出勤不足应建议别翘: %s", advice)
	}
}

func TestSafeBunks(t *testing.T) {
	course := &model.Course{
		AttendedClasses: 18,
		TotalClasses:    20,
		MinAttendance:   75,
	}
	// 18/(20+k) >= 0.75 → k <= 4
	if got := safeBunks(course); got != 4 {
		t.Errorf("安全翘课余量应为 4，实际 %d", got)
	}
}

func TestBunkChat_FlowWithRephraseFallback(t *testing.T) {
	repo := newTestRepository()
	gen := &mockGenerator{rephraseErr: context.DeadlineExceeded}
	svc := NewBunkService(repo, gen, zap.NewNop())
	uid := uuid.New()

	_ = repo.Course.Create(context.Background(), &model.Course{
		UserID:          uid,
		Name:            "Math",
		AttendedClasses: 18,
		TotalClasses:    20,
		MinAttendance:   75,
	})

	resp, err := svc.Chat(context.Background(), uid.String(), &dto.AttendanceChatRequest{Message: "can i skip math?"})
	if err != nil {
		t.Fatalf("出勤对话失败: %v", err)
	}
	// 润色失败时回退原始文本，结论仍然给出
	if !strings.HasPrefix(resp.Reply, "YES") {
		t.Errorf("润色失败应回退确定性建议: %s", resp.Reply)
	}
}

func TestBunkChat_NoCourses(t *testing.T) {
	repo := newTestRepository()
	svc := NewBunkService(repo, &mockGenerator{}, zap.NewNop())
	uid := uuid.New()

	resp, err := svc.Chat(context.Background(), uid.String(), &dto.AttendanceChatRequest{Message: "can i skip?"})
	if err != nil {
		t.Fatalf("出勤对话失败: %v", err)
	}
	if !strings.Contains(resp.Reply, "don't have any courses") {
		t.Errorf("无课程时应提示先添加课程: %s", resp.Reply)
	}
}

func TestBunkChat_AmbiguousCourse(t *testing.T) {
	repo := newTestRepository()
	svc := NewBunkService(repo, &mockGenerator{}, zap.NewNop())
	uid := uuid.New()

	_ = repo.Course.Create(context.Background(), &model.Course{UserID: uid, Name: "Math"})
	_ = repo.Course.Create(context.Background(), &model.Course{UserID: uid, Name: "Physics"})

	resp, err := svc.Chat(context.Background(), uid.String(), &dto.AttendanceChatRequest{Message: "should i go today?"})
	if err != nil {
		t.Fatalf("出勤对话失败: %v", err)
	}
	if !strings.Contains(resp.Reply, "Math") || !strings.Contains(resp.Reply, "Physics") {
		t.Errorf("无法定位课程时应列出课程清单: %s", resp.Reply)
	}
}
