package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
)

// ── 出勤顾问模块 ──────────────────────────────────────────
//
// 设计说明：
//   - 结论必须由确定性算术得出，生成器只做润色：出勤率建议
//     错一次就会让学生挂科，不能把数字交给 LLM 算。
//   - 润色失败时静默回退到原始文本，生成器故障不影响功能。
// ─────────────────────────────────────────────────────────────

// BunkService 出勤顾问业务接口
type BunkService interface {
	// Chat 回答"这节课能不能翘"
	Chat(ctx context.Context, userID string, req *dto.AttendanceChatRequest) (*dto.AssistantResponse, error)
}

type bunkService struct {
	repo      *repository.Repository
	generator Generator
	logger    *zap.Logger
}

// NewBunkService 创建 BunkService 实例
func NewBunkService(repo *repository.Repository, generator Generator, logger *zap.Logger) BunkService {
	return &bunkService{repo: repo, generator: generator, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Chat — 出勤建议
// ════════════════════════════════════════════════════════════

func (s *bunkService) Chat(ctx context.Context, userID string, req *dto.AttendanceChatRequest) (*dto.AssistantResponse, error) {
	courses, err := s.repo.Course.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询课表失败: %w", err)
	}
	if err := s.record(ctx, userID, req.Message, true); err != nil {
		return nil, err
	}

	var reply string
	if len(courses) == 0 {
		reply = "You don't have any courses yet. Add your courses first and I can tell you whether it's safe to skip a class."
	} else if course := matchCourse(courses, req.Message); course == nil {
		names := make([]string, len(courses))
		for i, c := range courses {
			names[i] = c.Name
		}
		reply = "Which course do you mean? Your courses: " + strings.Join(names, ", ") + "."
	} else {
		reply = bunkAdvice(course)
		// 润色失败就用原始文本，结论与数字不变
		if polished, perr := s.generator.Rephrase(ctx, reply); perr == nil && polished != "" {
			reply = polished
		}
	}

	if err := s.record(ctx, userID, reply, false); err != nil {
		return nil, err
	}
	return &dto.AssistantResponse{Outcome: dto.OutcomeChat, Reply: reply}, nil
}

// ── 课程匹配 ──

// matchCourse 在消息中定位课程：完全匹配 100 分、前缀 80 分、
// 子串 60 分，取最高分；全部不中返回 nil
func matchCourse(courses []model.Course, message string) *model.Course {
	msg := strings.ToLower(message)
	bestScore := 0
	var best *model.Course

	for i := range courses {
		name := strings.ToLower(courses[i].Name)
		score := 0
		switch {
		case msg == name:
			score = 100
		case strings.HasPrefix(msg, name):
			score = 80
		case strings.Contains(msg, name):
			score = 60
		}
		if score > bestScore {
			bestScore = score
			best = &courses[i]
		}
	}
	return best
}

// ── 出勤算术 ──

// bunkAdvice 确定性计算翘一次课后的出勤率与安全翘课余量
func bunkAdvice(course *model.Course) string {
	current := course.AttendancePercent()
	afterBunk := float64(course.AttendedClasses) / float64(course.TotalClasses+1) * 100
	required := float64(course.MinAttendance)

	if afterBunk >= required {
		return fmt.Sprintf(
			"YES, you can skip %s. Your attendance would drop from %.1f%% to %.1f%%, still above the required %.0f%%. You can safely skip %d more class(es) after this one.",
			course.Name, current, afterBunk, required, safeBunks(course)-1)
	}
	return fmt.Sprintf(
		"NO, don't skip %s. Your attendance would drop from %.1f%% to %.1f%%, below the required %.0f%%. Attend the next %d class(es) to build a buffer.",
		course.Name, current, afterBunk, required, classesToRecover(course))
}

// safeBunks 在不跌破最低出勤率前提下还能连翘几次
func safeBunks(course *model.Course) int {
	count := 0
	attended := float64(course.AttendedClasses)
	required := float64(course.MinAttendance)
	for k := 1; k <= 50; k++ {
		if attended/float64(course.TotalClasses+k)*100 < required {
			break
		}
		count = k
	}
	return count
}

// classesToRecover 需要连续出勤几次才能回到可翘状态
func classesToRecover(course *model.Course) int {
	attended := course.AttendedClasses
	total := course.TotalClasses
	required := float64(course.MinAttendance)
	for k := 1; k <= 100; k++ {
		if float64(attended+k)/float64(total+k+1)*100 >= required {
			return k
		}
	}
	return 100
}

func (s *bunkService) record(ctx context.Context, userID, text string, isUser bool) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("非法用户 ID: %w", err)
	}
	msg := &model.ChatMessage{
		UserID:  uid,
		Channel: model.ChatChannelAttendance,
		Text:    text,
		IsUser:  isUser,
	}
	if err := s.repo.ChatMessage.Create(ctx, msg); err != nil {
		return fmt.Errorf("保存对话消息失败: %w", err)
	}
	return nil
}
