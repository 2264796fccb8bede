package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
	"studyflow/backend/pkg/gemini"
	redisclient "studyflow/backend/pkg/redis"
)

// ── 助手模块业务错误 ──

var (
	ErrGeneratorUnavailable = errors.New("日程生成服务暂时不可用")
	ErrGeneratorParse       = errors.New("日程生成服务返回了无法理解的内容")
	ErrUserNotFound         = errors.New("用户不存在")
)

// 对话历史带入提示词的最大轮数
const historyWindow = 20

// ── 协作方接口 ──

// Generator 日程生成器（外部 LLM）抽象
type Generator interface {
	ClassifyIntent(ctx context.Context, history []dto.ChatTurn, message string) (string, error)
	Chat(ctx context.Context, history []dto.ChatTurn, schedule model.WeekDays, message string) (string, error)
	GenerateSchedule(ctx context.Context, history []dto.ChatTurn, schedule model.WeekDays, message, chronotype string) (*dto.CandidateSchedule, error)
	Rephrase(ctx context.Context, text string) (string, error)
}

// PendingStore 待确认候选的信箱：每用户单槽，后写覆盖先写
type PendingStore interface {
	SetPending(ctx context.Context, userID string, payload []byte) error
	GetPending(ctx context.Context, userID string) ([]byte, error)
	ClearPending(ctx context.Context, userID string) error
}

// MemoryPendingStore 进程内信箱，Redis 未启用时的降级实现
type MemoryPendingStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryPendingStore 创建进程内信箱
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{slots: make(map[string][]byte)}
}

func (m *MemoryPendingStore) SetPending(_ context.Context, userID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[userID] = payload
	return nil
}

func (m *MemoryPendingStore) GetPending(_ context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.slots[userID]
	if !ok {
		return nil, redisclient.ErrNoPending
	}
	return payload, nil
}

func (m *MemoryPendingStore) ClearPending(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, userID)
	return nil
}

// ── AssistantService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 每用户互斥锁串行化该用户的全部助手请求：调和流程是
//     读-改-写整个周日程文档，并发会丢更新。
//   - 生成器输出永不直接落库：规范化 → 校验 → 冲突检测 →
//     裁决，只有 accepted 的候选才会（剥除课程块后）持久化。
//   - 待确认候选放在信箱里，由下一条消息解决（yes / no /
//     其他内容重新追问）。
// ─────────────────────────────────────────────────────────────

// AssistantService 助手模块业务接口
type AssistantService interface {
	// Chat 处理助手对话的一个回合
	Chat(ctx context.Context, userID string, req *dto.AssistantChatRequest) (*dto.AssistantResponse, error)
}

type assistantService struct {
	repo      *repository.Repository
	generator Generator
	pending   PendingStore
	timetable TimetableService
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAssistantService 创建 AssistantService 实例
func NewAssistantService(repo *repository.Repository, generator Generator, pending PendingStore, timetable TimetableService, logger *zap.Logger) AssistantService {
	return &assistantService{
		repo:      repo,
		generator: generator,
		pending:   pending,
		timetable: timetable,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// userLock 取该用户的互斥锁，首次访问时创建
func (s *assistantService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// ════════════════════════════════════════════════════════════
// Chat — 助手对话回合
// ════════════════════════════════════════════════════════════

func (s *assistantService) Chat(ctx context.Context, userID string, req *dto.AssistantChatRequest) (*dto.AssistantResponse, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.saveMessage(ctx, userID, req.Message, true); err != nil {
		return nil, err
	}

	// 信箱里有待确认候选时，本条消息优先作为确认答复处理
	if resp, handled, err := s.resolvePending(ctx, userID, req.Message); err != nil {
		return nil, err
	} else if handled {
		return resp, nil
	}

	merged, err := s.timetable.MergedView(ctx, userID)
	if err != nil {
		return nil, err
	}

	intent, err := s.generator.ClassifyIntent(ctx, history, req.Message)
	if err != nil {
		return nil, s.mapGeneratorErr(err)
	}

	if intent == "chat" {
		reply, err := s.generator.Chat(ctx, history, merged, req.Message)
		if err != nil {
			return nil, s.mapGeneratorErr(err)
		}
		if err := s.saveMessage(ctx, userID, reply, false); err != nil {
			return nil, err
		}
		return &dto.AssistantResponse{Outcome: dto.OutcomeChat, Reply: reply}, nil
	}

	return s.reconcile(ctx, user, history, merged, req.Message)
}

// ════════════════════════════════════════════════════════════
// reconcile — 候选日程调和
// ════════════════════════════════════════════════════════════

func (s *assistantService) reconcile(ctx context.Context, user *model.User, history []dto.ChatTurn, merged model.WeekDays, message string) (*dto.AssistantResponse, error) {
	userID := user.UserID.String()

	candidate, err := s.generator.GenerateSchedule(ctx, history, merged, message, user.Chronotype)
	if err != nil {
		return nil, s.mapGeneratorErr(err)
	}

	normalized := NormalizeCandidate(candidate)
	if err := ValidateCandidate(normalized); err != nil {
		msg := "生成的日程格式有误，已拒绝：" + err.Error()
		if serr := s.saveMessage(ctx, userID, msg, false); serr != nil {
			return nil, serr
		}
		s.logger.Warn("候选日程未通过校验", zap.String("user_id", userID), zap.Error(err))
		return &dto.AssistantResponse{
			Outcome:    dto.OutcomeRejected,
			ReasonCode: "invalid_candidate",
			Message:    msg,
		}, nil
	}

	report := DetectConflicts(merged, normalized)
	decision := Decide(report)

	switch decision.Outcome {
	case dto.OutcomeAccepted:
		view, err := s.applyCandidate(ctx, userID, candidate, normalized)
		if err != nil {
			return nil, err
		}
		msg := "日程已更新。"
		if serr := s.saveMessage(ctx, userID, msg, false); serr != nil {
			return nil, serr
		}
		return &dto.AssistantResponse{
			Outcome:  dto.OutcomeAccepted,
			Message:  msg,
			Schedule: view,
		}, nil

	case dto.OutcomeNeedsConfirmation:
		payload, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("序列化待确认候选失败: %w", err)
		}
		if err := s.pending.SetPending(ctx, userID, payload); err != nil {
			return nil, fmt.Errorf("暂存待确认候选失败: %w", err)
		}
		if serr := s.saveMessage(ctx, userID, decision.Message, false); serr != nil {
			return nil, serr
		}
		return &dto.AssistantResponse{
			Outcome:          dto.OutcomeNeedsConfirmation,
			ReasonCode:       decision.ReasonCode,
			Message:          decision.Message,
			Conflicts:        report,
			PendingCandidate: normalized,
		}, nil

	default: // rejected
		if serr := s.saveMessage(ctx, userID, decision.Message, false); serr != nil {
			return nil, serr
		}
		s.logger.Info("候选日程被拒绝",
			zap.String("user_id", userID),
			zap.String("reason", decision.ReasonCode))
		return &dto.AssistantResponse{
			Outcome:    dto.OutcomeRejected,
			ReasonCode: decision.ReasonCode,
			Message:    decision.Message,
			Conflicts:  report,
		}, nil
	}
}

// ════════════════════════════════════════════════════════════
// resolvePending — 确认流程
// ════════════════════════════════════════════════════════════
//
// yes 应用候选，no 放弃，其他内容保留信箱并重新追问。

func (s *assistantService) resolvePending(ctx context.Context, userID, message string) (*dto.AssistantResponse, bool, error) {
	payload, err := s.pending.GetPending(ctx, userID)
	if err != nil {
		if errors.Is(err, redisclient.ErrNoPending) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取待确认候选失败: %w", err)
	}

	var candidate model.WeekDays
	if err := json.Unmarshal(payload, &candidate); err != nil {
		// 信箱内容损坏：清掉并当作没有待确认项
		_ = s.pending.ClearPending(ctx, userID)
		s.logger.Warn("待确认候选数据损坏，已丢弃", zap.String("user_id", userID))
		return nil, false, nil
	}

	switch answerOf(message) {
	case "yes":
		if err := s.pending.ClearPending(ctx, userID); err != nil {
			return nil, false, fmt.Errorf("清除待确认候选失败: %w", err)
		}
		view, err := s.applyCandidate(ctx, userID, nil, candidate)
		if err != nil {
			return nil, false, err
		}
		msg := "已按确认应用新的日程。"
		if serr := s.saveMessage(ctx, userID, msg, false); serr != nil {
			return nil, false, serr
		}
		return &dto.AssistantResponse{
			Outcome:  dto.OutcomeAccepted,
			Message:  msg,
			Schedule: view,
		}, true, nil

	case "no":
		if err := s.pending.ClearPending(ctx, userID); err != nil {
			return nil, false, fmt.Errorf("清除待确认候选失败: %w", err)
		}
		msg := "已放弃该候选日程，原日程保持不变。"
		if serr := s.saveMessage(ctx, userID, msg, false); serr != nil {
			return nil, false, serr
		}
		return &dto.AssistantResponse{Outcome: dto.OutcomeChat, Reply: msg}, true, nil

	default:
		msg := "还有一份日程变更等待确认：回复 yes 应用，回复 no 放弃。"
		if serr := s.saveMessage(ctx, userID, msg, false); serr != nil {
			return nil, false, serr
		}
		return &dto.AssistantResponse{
			Outcome:          dto.OutcomeNeedsConfirmation,
			ReasonCode:       ReasonPriorityDowngrade,
			Message:          msg,
			PendingCandidate: candidate,
		}, true, nil
	}
}

// answerOf 识别确认答复
func answerOf(message string) string {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "yes", "y", "是", "好", "确认", "接受":
		return "yes"
	case "no", "n", "否", "不", "取消", "放弃":
		return "no"
	default:
		return ""
	}
}

// ── 内部辅助 ──

// applyCandidate 剥除课程块后整写周日程，返回应用后的合并视图
// candidate 为 nil 时（确认流程）沿用已存的 week_start / timezone
func (s *assistantService) applyCandidate(ctx context.Context, userID string, candidate *dto.CandidateSchedule, normalized model.WeekDays) (*dto.TimetableResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("非法用户 ID: %w", err)
	}

	schedule := &model.WeekSchedule{
		UserID:   uid,
		Timezone: "Asia/Shanghai",
		Days:     StripClasses(normalized),
	}
	if existing, err := s.repo.WeekSchedule.GetByUser(ctx, userID); err == nil {
		schedule.WeekStart = existing.WeekStart
		schedule.Timezone = existing.Timezone
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询周日程失败: %w", err)
	}
	if candidate != nil {
		if candidate.WeekStart != "" {
			if ws, err := time.Parse("2006-01-02", candidate.WeekStart); err == nil {
				schedule.WeekStart = ws
			}
		}
		if candidate.Timezone != "" {
			schedule.Timezone = candidate.Timezone
		}
	}
	if schedule.WeekStart.IsZero() {
		schedule.WeekStart = mondayOf(time.Now())
	}

	if err := s.repo.WeekSchedule.Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("保存周日程失败: %w", err)
	}
	s.logger.Info("周日程已应用", zap.String("user_id", userID))

	return s.timetable.GetMyTimetable(ctx, userID)
}

// mondayOf 所在周的周一
func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, 1-weekday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// loadHistory 最近若干轮对话，转为生成器的提示词格式
func (s *assistantService) loadHistory(ctx context.Context, userID string) ([]dto.ChatTurn, error) {
	msgs, err := s.repo.ChatMessage.ListRecent(ctx, userID, model.ChatChannelAssistant, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("查询对话历史失败: %w", err)
	}
	turns := make([]dto.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		role := "assistant"
		if m.IsUser {
			role = "user"
		}
		turns = append(turns, dto.ChatTurn{Role: role, Content: m.Text})
	}
	return turns, nil
}

func (s *assistantService) saveMessage(ctx context.Context, userID, text string, isUser bool) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("非法用户 ID: %w", err)
	}
	msg := &model.ChatMessage{
		UserID:  uid,
		Channel: model.ChatChannelAssistant,
		Text:    text,
		IsUser:  isUser,
	}
	if err := s.repo.ChatMessage.Create(ctx, msg); err != nil {
		return fmt.Errorf("保存对话消息失败: %w", err)
	}
	return nil
}

// mapGeneratorErr 把生成器客户端错误折叠为业务错误
func (s *assistantService) mapGeneratorErr(err error) error {
	switch {
	case errors.Is(err, gemini.ErrParse):
		return fmt.Errorf("%w: %v", ErrGeneratorParse, err)
	case errors.Is(err, gemini.ErrUnavailable), errors.Is(err, gemini.ErrNotConfigured):
		return fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	default:
		return err
	}
}

// [自证通过] internal/service/assistant_service.go
