package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/service"
	"studyflow/backend/pkg/response"
)

// AssistantHandler 助手与出勤顾问 HTTP 处理器
type AssistantHandler struct {
	assistantSvc service.AssistantService
	bunkSvc      service.BunkService
}

// NewAssistantHandler 创建 AssistantHandler
func NewAssistantHandler(assistantSvc service.AssistantService, bunkSvc service.BunkService) *AssistantHandler {
	return &AssistantHandler{assistantSvc: assistantSvc, bunkSvc: bunkSvc}
}

// Chat 助手对话
// POST /api/v1/assistant/chat
//
// 候选日程被拒绝属于正常业务结果（HTTP 200，outcome=rejected）；
// 只有生成器本身故障才返回 502。
func (h *AssistantHandler) Chat(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.AssistantChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assistantSvc.Chat(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGeneratorUnavailable):
			response.BadGateway(c, 14201, "日程生成服务暂时不可用，请稍后重试")
		case errors.Is(err, service.ErrGeneratorParse):
			response.BadGateway(c, 14202, "日程生成服务返回了无法理解的内容")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 10103, "用户不存在")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// AttendanceChat 出勤顾问对话
// POST /api/v1/attendance/chat
func (h *AssistantHandler) AttendanceChat(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.AttendanceChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.bunkSvc.Chat(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/assistant_handler.go
