package handler

import "studyflow/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Course    *CourseHandler
	Timetable *TimetableHandler
	Assistant *AssistantHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Course:    NewCourseHandler(svc.Course),
		Timetable: NewTimetableHandler(svc.Timetable),
		Assistant: NewAssistantHandler(svc.Assistant, svc.Bunk),
		Export:    NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
