package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
	redisclient "studyflow/backend/pkg/redis"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == uuid.Nil {
		user.UserID = uuid.New()
	}
	m.users[user.UserID.String()] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID.String()] = user
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
	order   []string
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == uuid.Nil {
		course.CourseID = uuid.New()
	}
	m.courses[course.CourseID.String()] = course
	m.order = append(m.order, course.CourseID.String())
	return nil
}

func (m *mockCourseRepo) BatchCreate(ctx context.Context, courses []model.Course) error {
	for i := range courses {
		if err := m.Create(ctx, &courses[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) ListByUser(_ context.Context, userID string) ([]model.Course, error) {
	var result []model.Course
	for _, id := range m.order {
		c := m.courses[id]
		if c != nil && c.UserID.String() == userID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	m.courses[course.CourseID.String()] = course
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) error {
	delete(m.courses, id)
	return nil
}

// ── Mock WeekScheduleRepository ──

type mockWeekScheduleRepo struct {
	byUser map[string]*model.WeekSchedule
}

func newMockWeekScheduleRepo() *mockWeekScheduleRepo {
	return &mockWeekScheduleRepo{byUser: make(map[string]*model.WeekSchedule)}
}

func (m *mockWeekScheduleRepo) GetByUser(_ context.Context, userID string) (*model.WeekSchedule, error) {
	if s, ok := m.byUser[userID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeekScheduleRepo) Save(_ context.Context, schedule *model.WeekSchedule) error {
	if schedule.WeekScheduleID == uuid.Nil {
		schedule.WeekScheduleID = uuid.New()
	}
	m.byUser[schedule.UserID.String()] = schedule
	return nil
}

func (m *mockWeekScheduleRepo) DeleteByUser(_ context.Context, userID string) error {
	delete(m.byUser, userID)
	return nil
}

// ── Mock ChatMessageRepository ──

type mockChatMessageRepo struct {
	messages []model.ChatMessage
}

func newMockChatMessageRepo() *mockChatMessageRepo {
	return &mockChatMessageRepo{}
}

func (m *mockChatMessageRepo) Create(_ context.Context, msg *model.ChatMessage) error {
	if msg.ChatMessageID == uuid.Nil {
		msg.ChatMessageID = uuid.New()
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockChatMessageRepo) ListRecent(_ context.Context, userID, channel string, limit int) ([]model.ChatMessage, error) {
	var result []model.ChatMessage
	for _, msg := range m.messages {
		if msg.UserID.String() == userID && msg.Channel == channel {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockChatMessageRepo) DeleteByUserChannel(_ context.Context, userID, channel string) error {
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.UserID.String() != userID || msg.Channel != channel {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

// ── Mock Generator ──

// mockGenerator 可编程的生成器替身
type mockGenerator struct {
	intent       string
	intentErr    error
	chatReply    string
	chatErr      error
	candidate    *dto.CandidateSchedule
	candidateErr error
	rephrased    string
	rephraseErr  error
}

func (g *mockGenerator) ClassifyIntent(_ context.Context, _ []dto.ChatTurn, _ string) (string, error) {
	return g.intent, g.intentErr
}

func (g *mockGenerator) Chat(_ context.Context, _ []dto.ChatTurn, _ model.WeekDays, _ string) (string, error) {
	return g.chatReply, g.chatErr
}

func (g *mockGenerator) GenerateSchedule(_ context.Context, _ []dto.ChatTurn, _ model.WeekDays, _, _ string) (*dto.CandidateSchedule, error) {
	return g.candidate, g.candidateErr
}

func (g *mockGenerator) Rephrase(_ context.Context, text string) (string, error) {
	if g.rephraseErr != nil {
		return "", g.rephraseErr
	}
	if g.rephrased != "" {
		return g.rephrased, nil
	}
	return text, nil
}

// ── Mock PendingStore ──

type mockPendingStore struct {
	slots map[string][]byte
}

func newMockPendingStore() *mockPendingStore {
	return &mockPendingStore{slots: make(map[string][]byte)}
}

func (m *mockPendingStore) SetPending(_ context.Context, userID string, payload []byte) error {
	m.slots[userID] = payload
	return nil
}

func (m *mockPendingStore) GetPending(_ context.Context, userID string) ([]byte, error) {
	if p, ok := m.slots[userID]; ok {
		return p, nil
	}
	return nil, redisclient.ErrNoPending
}

func (m *mockPendingStore) ClearPending(_ context.Context, userID string) error {
	delete(m.slots, userID)
	return nil
}

// ── 组装辅助 ──

func newTestRepository() *repository.Repository {
	return &repository.Repository{
		User:         newMockUserRepo(),
		Course:       newMockCourseRepo(),
		WeekSchedule: newMockWeekScheduleRepo(),
		ChatMessage:  newMockChatMessageRepo(),
	}
}
