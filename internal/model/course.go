package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// 课程来源
const (
	CourseSourceManual = "manual"
	CourseSourceICS    = "ics"
)

// ClassTime 某天的一次上课时间
type ClassTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule 一天的课程安排，兼容两种历史格式：
//   - 结构化：[{"start":"10:00","end":"11:30"}]
//   - 遗留数值：每日课时数（如 3），渲染时固定从 09:00 开始
type DaySchedule struct {
	Times       []ClassTime
	LegacyHours int
	IsLegacy    bool
}

// UnmarshalJSON 按标记联合解析：数组为结构化格式，数字为遗留课时数
func (d *DaySchedule) UnmarshalJSON(data []byte) error {
	var times []ClassTime
	if err := json.Unmarshal(data, &times); err == nil {
		d.Times = times
		d.IsLegacy = false
		d.LegacyHours = 0
		return nil
	}
	var hours float64
	if err := json.Unmarshal(data, &hours); err == nil {
		d.LegacyHours = int(hours)
		d.IsLegacy = true
		d.Times = nil
		return nil
	}
	return fmt.Errorf("无法识别的课程日格式: %s", string(data))
}

// MarshalJSON 结构化格式原样输出，遗留格式保持数值
func (d DaySchedule) MarshalJSON() ([]byte, error) {
	if d.IsLegacy {
		return json.Marshal(d.LegacyHours)
	}
	if d.Times == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Times)
}

// CourseWeek 星期名到当日课程安排的映射，整体序列化为 JSONB 列
type CourseWeek map[string]DaySchedule

// Value 实现 driver.Valuer
func (w CourseWeek) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	return json.Marshal(w)
}

// Scan 实现 sql.Scanner
func (w *CourseWeek) Scan(value interface{}) error {
	if value == nil {
		*w = CourseWeek{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 CourseWeek", value)
	}
	return json.Unmarshal(bytes, w)
}

// Course 课程实体，出勤字段支撑翘课顾问
type Course struct {
	CourseID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string     `gorm:"size:128;not null" json:"name"`
	AttendedClasses int        `gorm:"not null;default:0" json:"attended_classes"`
	TotalClasses    int        `gorm:"not null;default:0" json:"total_classes"`
	MinAttendance   int        `gorm:"not null;default:75" json:"min_attendance"`
	Schedule        CourseWeek `gorm:"type:jsonb;not null;default:'{}'" json:"schedule"`
	Source          string     `gorm:"size:16;not null;default:'manual'" json:"source"`
	VersionedModel
}

// TableName 指定表名
func (Course) TableName() string {
	return "courses"
}

// AttendancePercent 当前出勤率，总课时为零时返回 100
func (c *Course) AttendancePercent() float64 {
	if c.TotalClasses == 0 {
		return 100
	}
	return float64(c.AttendedClasses) / float64(c.TotalClasses) * 100
}
