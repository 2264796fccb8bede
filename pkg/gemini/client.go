package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"studyflow/backend/config"
	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
)

// ── 生成器错误 ──
//
// 基础设施故障（ErrUnavailable）与输出不可解析（ErrParse）分开，
// 便于上层区分"生成器挂了"与"生成器给了垃圾"两类失败。

var (
	ErrNotConfigured = errors.New("生成器未配置 API Key")
	ErrUnavailable   = errors.New("生成器服务不可用")
	ErrParse         = errors.New("生成器输出无法解析")
)

// Client Gemini REST API 客户端
// 生成器是不可信的外部协作方：本客户端只负责传输与反序列化，
// 输出的日程语义校验全部由上层冲突检测完成
type Client struct {
	cfg        *config.GeneratorConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建 Gemini 客户端
func NewClient(cfg *config.GeneratorConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// ════════════════════════════════════════════════════════════
// 意图分类
// ════════════════════════════════════════════════════════════

const intentPrompt = `Classify the user message.

Return ONLY valid JSON:
{
  "intent": "chat" | "schedule"
}

Rules:
- Greetings, questions, casual talk -> "chat"
- Add / move / remove / reschedule tasks -> "schedule"
`

// ClassifyIntent 判断用户消息意图：chat（闲聊）或 schedule（日程变更）
func (c *Client) ClassifyIntent(ctx context.Context, history []dto.ChatTurn, message string) (string, error) {
	prompt := fmt.Sprintf("%s\nCONVERSATION:\n%s\n\nLAST_MESSAGE:\n%q\n", intentPrompt, renderHistory(history), message)

	text, err := c.generateText(ctx, prompt)
	if err != nil {
		return "", err
	}

	var result struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if result.Intent != "chat" && result.Intent != "schedule" {
		return "", fmt.Errorf("%w: 未知意图 %q", ErrParse, result.Intent)
	}
	return result.Intent, nil
}

// ════════════════════════════════════════════════════════════
// 闲聊
// ════════════════════════════════════════════════════════════

// Chat 继续普通对话，日程仅作为可选上下文
func (c *Client) Chat(ctx context.Context, history []dto.ChatTurn, schedule model.WeekDays, message string) (string, error) {
	scheduleJSON, _ := json.MarshalIndent(schedule, "", "  ")
	prompt := fmt.Sprintf(`You are a helpful AI assistant.
Continue the conversation naturally.

The user has the following weekly schedule:
%s

Use it ONLY if relevant.

Conversation so far:
%s
USER: %s

ASSISTANT:
`, scheduleJSON, renderHistory(history), message)

	return c.generateText(ctx, prompt)
}

// ════════════════════════════════════════════════════════════
// 日程生成
// ════════════════════════════════════════════════════════════

const schedulerPrompt = `You are an AI scheduling agent.

Return ONLY valid JSON (no text, no markdown).

Example task object:
{
  "task": "Study",
  "start": "18:00",
  "end": "20:00",
  "priority": "high"
}

Rules:
- Every task MUST include a priority: high, medium, or low
- Assign priority based on importance, urgency, and consequences
- Studying, exams, deadlines, and academic work are typically high priority
- Practice, gym, skill-building are typically medium priority
- Leisure and rest are typically low priority
- Return the FULL updated schedule under a top-level "days" key
- CRITICAL: NEVER schedule tasks over blocks marked with "isClass": true - classes are IMMUTABLE and CANNOT BE MOVED
- If you see tasks with "isClass": true in the current schedule, preserve them EXACTLY as they are
- Do NOT overlap with class times under any circumstances
- CRITICAL: NO OVERLAPPING TASKS - every task must have a unique, non-overlapping time slot
- Double-check all time ranges to ensure no two tasks on the same day overlap
`

// GenerateSchedule 依据对话与当前日程生成候选周日程
// 返回的是松散类型的候选数据：规范化与不变量校验由调和服务负责
func (c *Client) GenerateSchedule(ctx context.Context, history []dto.ChatTurn, schedule model.WeekDays, message, chronotype string) (*dto.CandidateSchedule, error) {
	scheduleJSON, _ := json.MarshalIndent(schedule, "", "  ")
	prompt := fmt.Sprintf(`%s

CHRONOTYPE_CONTEXT:
%s

IMPORTANT:
- Respect the user's chronotype when scheduling
- Place high-priority tasks inside peak focus hours, when possible

CONVERSATION:
%s

CURRENT_SCHEDULE:
%s

USER_REQUEST:
%q
`, schedulerPrompt, chronotypeRules(chronotype), renderHistory(history), scheduleJSON, message)

	text, err := c.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var candidate dto.CandidateSchedule
	if err := json.Unmarshal([]byte(stripFences(text)), &candidate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(candidate.Days) == 0 {
		return nil, fmt.Errorf("%w: 候选日程缺少 days 字段", ErrParse)
	}
	return &candidate, nil
}

// ════════════════════════════════════════════════════════════
// 文本润色
// ════════════════════════════════════════════════════════════

// Rephrase 将确定性生成的建议文本改写为更自然的口吻
// 结论、百分比与数字必须原样保留；失败时调用方应回退到原始文本
func (c *Client) Rephrase(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Rephrase this attendance advice in a conversational, friendly way (2-3 sentences max):

%q

Keep the YES/NO decision, percentages, and numbers exactly the same. Just make it sound more natural.`, text)

	return c.generateText(ctx, prompt)
}

// ── 内部辅助 ──

// chronotypeRules 按用户生物钟类型生成提示词片段
func chronotypeRules(animal string) string {
	switch strings.ToLower(animal) {
	case "lion":
		return "User is a LION chronotype.\nPeak focus: early morning (5:00-11:00).\nSchedule high-priority tasks early.\nAvoid late-night work."
	case "bear":
		return "User is a BEAR chronotype.\nPeak focus: 9:00-17:00.\nFollow a standard daytime schedule."
	case "wolf":
		return "User is a WOLF chronotype.\nPeak focus: 15:00-23:00.\nAvoid early-morning high-priority tasks."
	case "dolphin":
		return "User is a DOLPHIN chronotype.\nFocus comes in short bursts.\nPrefer shorter tasks with breaks.\nAvoid very late nights."
	default:
		return "User has no chronotype data.\nUse a balanced, neutral schedule."
	}
}

// renderHistory 将对话历史渲染为提示词文本
func renderHistory(history []dto.ChatTurn) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(strings.ToUpper(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// stripFences 去除模型输出中可能包裹的 ```json 代码栅栏
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ── REST 传输层 ──

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// generateText 调用 generateContent 接口并拼接首个候选的全部文本片段
func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model, c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("生成器返回非 200 状态", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, result.Error.Message)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: 响应中无候选内容", ErrParse)
	}

	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
