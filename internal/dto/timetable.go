package dto

import "studyflow/backend/internal/model"

// ── 周日程模块 DTO ──

// TimetableResponse 合并课程块后的周日程视图
type TimetableResponse struct {
	WeekStart string         `json:"week_start"`
	Timezone  string         `json:"timezone"`
	Days      model.WeekDays `json:"days"`
}

// ToggleCompleteRequest 切换任务完成状态请求
// 以结构化身份定位块：同日内按 task+start+end 匹配
type ToggleCompleteRequest struct {
	Day   string `json:"day"   binding:"required"`
	Task  string `json:"task"  binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end"   binding:"required"`
}
