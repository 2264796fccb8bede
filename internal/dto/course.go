package dto

import "studyflow/backend/internal/model"

// ── 课程模块 DTO ──

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=128"`
	AttendedClasses int              `json:"attended_classes" binding:"omitempty,min=0"`
	TotalClasses    int              `json:"total_classes" binding:"omitempty,min=0"`
	MinAttendance   int              `json:"min_attendance" binding:"omitempty,min=1,max=100"`
	Schedule        model.CourseWeek `json:"schedule"`
}

// UpdateCourseRequest 更新课程请求，指针字段区分"未提供"与"置零"
type UpdateCourseRequest struct {
	Name            *string           `json:"name" binding:"omitempty,min=1,max=128"`
	AttendedClasses *int              `json:"attended_classes" binding:"omitempty,min=0"`
	TotalClasses    *int              `json:"total_classes" binding:"omitempty,min=0"`
	MinAttendance   *int              `json:"min_attendance" binding:"omitempty,min=1,max=100"`
	Schedule        *model.CourseWeek `json:"schedule"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	CourseID          string           `json:"course_id"`
	Name              string           `json:"name"`
	AttendedClasses   int              `json:"attended_classes"`
	TotalClasses      int              `json:"total_classes"`
	MinAttendance     int              `json:"min_attendance"`
	AttendancePercent float64          `json:"attendance_percent"`
	Schedule          model.CourseWeek `json:"schedule"`
	Source            string           `json:"source"`
}

// ImportICSResponse ICS 导入响应
type ImportICSResponse struct {
	ImportedCount int              `json:"imported_count"`
	Courses       []CourseResponse `json:"courses"`
}
