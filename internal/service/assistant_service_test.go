package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
	"studyflow/backend/pkg/gemini"
)

// assistantFixture 组装一套带可编程生成器的助手服务
type assistantFixture struct {
	svc     AssistantService
	repo    *repository.Repository
	gen     *mockGenerator
	pending *mockPendingStore
	userID  string
}

func newAssistantFixture(t *testing.T) *assistantFixture {
	t.Helper()
	repo := newTestRepository()
	gen := &mockGenerator{}
	pending := newMockPendingStore()
	logger := zap.NewNop()

	user := &model.User{Name: "测试用户", Email: "test@example.com", Chronotype: model.ChronotypeBear}
	if err := repo.User.Create(context.Background(), user); err != nil {
		t.Fatalf("创建测试用户失败: %v", err)
	}

	timetable := NewTimetableService(repo, logger)
	svc := NewAssistantService(repo, gen, pending, timetable, logger)
	return &assistantFixture{
		svc:     svc,
		repo:    repo,
		gen:     gen,
		pending: pending,
		userID:  user.UserID.String(),
	}
}

func (f *assistantFixture) savedDays(t *testing.T) model.WeekDays {
	t.Helper()
	schedule, err := f.repo.WeekSchedule.GetByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("读取周日程失败: %v", err)
	}
	return schedule.Days
}

func TestAssistantChat_ChatIntent(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "chat"
	f.gen.chatReply = "你好！"

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeChat || resp.Reply != "你好！" {
		t.Errorf("闲聊回合响应错误: %+v", resp)
	}
}

func TestAssistantChat_CleanCandidateAccepted(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		WeekStart: "2026-08-31",
		Days: map[string][]dto.CandidateBlock{
			"Monday": {{Task: "Study", Start: "18:00", End: "20:00", Priority: "high"}},
		},
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "plan my week"})
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeAccepted {
		t.Fatalf("无冲突候选应被接受，实际 %s (%s)", resp.Outcome, resp.Message)
	}
	days := f.savedDays(t)
	if len(days["Monday"]) != 1 || days["Monday"][0].Task != "Study" {
		t.Errorf("接受的候选应已持久化: %+v", days)
	}
}

func TestAssistantChat_ClassBlocksStrippedBeforePersist(t *testing.T) {
	f := newAssistantFixture(t)
	uid := uuid.MustParse(f.userID)
	// 一门周一上午的课；合并视图会带出课程块
	course := &model.Course{
		UserID: uid,
		Name:   "Math",
		Schedule: model.CourseWeek{
			"Monday": {Times: []model.ClassTime{{Start: "10:00", End: "11:30"}}},
		},
	}
	if err := f.repo.Course.Create(context.Background(), course); err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Monday": {
				{Task: "Math", Start: "10:00", End: "11:30", Priority: "high", IsClass: true},
				{Task: "Study", Start: "18:00", End: "20:00", Priority: "high"},
			},
		},
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "add study"})
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeAccepted {
		t.Fatalf("保留课程块的候选应被接受，实际 %s (%s)", resp.Outcome, resp.Message)
	}

	days := f.savedDays(t)
	for _, b := range days["Monday"] {
		if b.IsClass {
			t.Errorf("课程块不得落库: %+v", b)
		}
	}
	// 但合并视图里课程块仍在
	if resp.Schedule == nil {
		t.Fatal("接受响应应携带最新视图")
	}
	hasClass := false
	for _, b := range resp.Schedule.Days["Monday"] {
		if b.IsClass {
			hasClass = true
		}
	}
	if !hasClass {
		t.Error("合并视图应包含课程块")
	}
}

func TestAssistantChat_OverlapRejectedNotPersisted(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Monday": {
				{Task: "A", Start: "10:00", End: "12:00", Priority: "medium"},
				{Task: "B", Start: "11:00", End: "13:00", Priority: "medium"},
			},
		},
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "plan"})
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeRejected || resp.ReasonCode != ReasonInternalOverlap {
		t.Errorf("重叠候选应被拒绝: %+v", resp)
	}
	if _, err := f.repo.WeekSchedule.GetByUser(context.Background(), f.userID); err == nil {
		t.Error("被拒绝的候选不得持久化")
	}
}

func TestAssistantChat_InvalidPriorityRejected(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Monday": {{Task: "A", Start: "10:00", End: "11:00", Priority: "urgent"}},
		},
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "plan"})
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeRejected || resp.ReasonCode != "invalid_candidate" {
		t.Errorf("非法优先级应整体拒绝: %+v", resp)
	}
}

func TestAssistantChat_DowngradeGoesToMailbox(t *testing.T) {
	f := newAssistantFixture(t)
	uid := uuid.MustParse(f.userID)
	// 既有 high 任务
	existing := &model.WeekSchedule{
		UserID: uid,
		Days: model.WeekDays{
			"Friday": {{Task: "Thesis", Start: "09:00", End: "12:00", Priority: "high"}},
		},
	}
	if err := f.repo.WeekSchedule.Save(context.Background(), existing); err != nil {
		t.Fatalf("预置周日程失败: %v", err)
	}

	// 候选块与既有 high 任务时间重叠且优先级更低
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Friday": {{Task: "Errand", Start: "10:00", End: "11:00", Priority: "low"}},
		},
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "squeeze in an errand"})
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeNeedsConfirmation {
		t.Fatalf("降级应走确认流程，实际 %s", resp.Outcome)
	}
	if _, ok := f.pending.slots[f.userID]; !ok {
		t.Error("待确认候选应已入信箱")
	}
	// 原日程未变
	days := f.savedDays(t)
	if days["Friday"][0].Priority != "high" {
		t.Error("确认前原日程不得改动")
	}
}

func TestAssistantChat_PendingYesApplies(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Friday": {{Task: "Errand", Start: "10:00", End: "11:00", Priority: "low"}},
		},
	}
	uid := uuid.MustParse(f.userID)
	_ = f.repo.WeekSchedule.Save(context.Background(), &model.WeekSchedule{
		UserID: uid,
		Days: model.WeekDays{
			"Friday": {{Task: "Thesis", Start: "09:00", End: "12:00", Priority: "high"}},
		},
	})
	if _, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "squeeze in an errand"}); err != nil {
		t.Fatalf("第一回合失败: %v", err)
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "yes"})
	if err != nil {
		t.Fatalf("确认回合失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeAccepted {
		t.Fatalf("yes 应应用候选，实际 %s", resp.Outcome)
	}
	if _, ok := f.pending.slots[f.userID]; ok {
		t.Error("应用后信箱应清空")
	}
	days := f.savedDays(t)
	if days["Friday"][0].Task != "Errand" || days["Friday"][0].Priority != "low" || days["Friday"][0].Start != "10:00" {
		t.Errorf("确认后的日程未生效: %+v", days["Friday"])
	}
}

func TestAssistantChat_PendingNoDiscards(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Friday": {{Task: "Errand", Start: "10:00", End: "11:00", Priority: "low"}},
		},
	}
	uid := uuid.MustParse(f.userID)
	_ = f.repo.WeekSchedule.Save(context.Background(), &model.WeekSchedule{
		UserID: uid,
		Days: model.WeekDays{
			"Friday": {{Task: "Thesis", Start: "09:00", End: "12:00", Priority: "high"}},
		},
	})
	if _, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "squeeze in an errand"}); err != nil {
		t.Fatalf("第一回合失败: %v", err)
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "no"})
	if err != nil {
		t.Fatalf("否认回合失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeChat {
		t.Errorf("no 应放弃候选并回到对话，实际 %s", resp.Outcome)
	}
	if _, ok := f.pending.slots[f.userID]; ok {
		t.Error("放弃后信箱应清空")
	}
	days := f.savedDays(t)
	if days["Friday"][0].Priority != "high" {
		t.Error("放弃后原日程应保持不变")
	}
}

func TestAssistantChat_PendingOtherReprompts(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidate = &dto.CandidateSchedule{
		Days: map[string][]dto.CandidateBlock{
			"Friday": {{Task: "Errand", Start: "10:00", End: "11:00", Priority: "low"}},
		},
	}
	uid := uuid.MustParse(f.userID)
	_ = f.repo.WeekSchedule.Save(context.Background(), &model.WeekSchedule{
		UserID: uid,
		Days: model.WeekDays{
			"Friday": {{Task: "Thesis", Start: "09:00", End: "12:00", Priority: "high"}},
		},
	})
	if _, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "squeeze in an errand"}); err != nil {
		t.Fatalf("第一回合失败: %v", err)
	}

	resp, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "what does that mean?"})
	if err != nil {
		t.Fatalf("追问回合失败: %v", err)
	}
	if resp.Outcome != dto.OutcomeNeedsConfirmation {
		t.Errorf("非 yes/no 答复应重新追问，实际 %s", resp.Outcome)
	}
	if _, ok := f.pending.slots[f.userID]; !ok {
		t.Error("追问时信箱应保留候选")
	}
}

func TestAssistantChat_GeneratorUnavailable(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intentErr = gemini.ErrUnavailable

	_, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "hi"})
	if !errors.Is(err, ErrGeneratorUnavailable) {
		t.Errorf("生成器故障应映射为 ErrGeneratorUnavailable，实际 %v", err)
	}
}

func TestAssistantChat_GeneratorParseError(t *testing.T) {
	f := newAssistantFixture(t)
	f.gen.intent = "schedule"
	f.gen.candidateErr = gemini.ErrParse

	_, err := f.svc.Chat(context.Background(), f.userID, &dto.AssistantChatRequest{Message: "plan"})
	if !errors.Is(err, ErrGeneratorParse) {
		t.Errorf("解析失败应映射为 ErrGeneratorParse，实际 %v", err)
	}
}
