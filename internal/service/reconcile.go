package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/pkg/timeutil"
)

// 候选日程调和错误
var (
	ErrUnknownDay       = errors.New("未知的星期名")
	ErrInvalidPriority  = errors.New("非法的优先级")
	ErrInvalidTimeRange = errors.New("起止时间非法")
)

// 裁决 reason_code 取值
const (
	ReasonInternalOverlap   = "internal_overlap"
	ReasonClassViolation    = "class_violation"
	ReasonClassCollision    = "class_collision"
	ReasonPriorityDowngrade = "priority_downgrade"
)

const (
	unnamedTask = "Unnamed Task"

	// 拒绝消息中最多列出的重叠组数；冲突报告本身不截断
	maxOverlapReports = 3
)

// ════════════════════════════════════════════════════════════
// NormalizeCandidate — 候选日程规范化
// ════════════════════════════════════════════════════════════
//
// 生成器输出的块字段松散：任务名按 task、title、name 依次回退，
// 都缺失时落到占位名；优先级仅在缺失时补 medium，不做大小写修正，
// "HIGH" 这类写法留给校验按非法值拒绝。

func NormalizeCandidate(cand *dto.CandidateSchedule) model.WeekDays {
	days := make(model.WeekDays, len(cand.Days))
	for day, blocks := range cand.Days {
		out := make([]model.TimeBlock, 0, len(blocks))
		for _, b := range blocks {
			task := b.Task
			if task == "" {
				task = b.Title
			}
			if task == "" {
				task = b.Name
			}
			if task == "" {
				task = unnamedTask
			}
			priority := b.Priority
			if priority == "" {
				priority = model.PriorityMedium
			}
			out = append(out, model.TimeBlock{
				Task:      task,
				Start:     b.Start,
				End:       b.End,
				Priority:  priority,
				IsClass:   b.IsClass,
				Completed: b.Completed,
			})
		}
		days[day] = out
	}
	return days
}

// ════════════════════════════════════════════════════════════
// ValidateCandidate — 候选日程校验
// ════════════════════════════════════════════════════════════
//
// 任一块非法即整体拒绝，不做局部修补。

func ValidateCandidate(days model.WeekDays) error {
	names := make([]string, 0, len(days))
	for day := range days {
		names = append(names, day)
	}
	sort.Strings(names)

	for _, day := range names {
		if !model.IsValidDay(day) {
			return fmt.Errorf("%w: %s", ErrUnknownDay, day)
		}
		for _, b := range days[day] {
			start, err := timeutil.ToMinutes(b.Start)
			if err != nil {
				return fmt.Errorf("%s %q: %w", day, b.Task, err)
			}
			end, err := timeutil.ToMinutes(b.End)
			if err != nil {
				return fmt.Errorf("%s %q: %w", day, b.Task, err)
			}
			if start >= end {
				return fmt.Errorf("%w: %s %q %s-%s", ErrInvalidTimeRange, day, b.Task, b.Start, b.End)
			}
			switch b.Priority {
			case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
			default:
				return fmt.Errorf("%w: %s %q %s", ErrInvalidPriority, day, b.Task, b.Priority)
			}
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// DetectConflicts — 冲突检测
// ════════════════════════════════════════════════════════════
//
// current 是当前合并视图（含课程块），candidate 是已通过校验的候选。
// 课程相关检查跳过周末。

func DetectConflicts(current, candidate model.WeekDays) *dto.ConflictReport {
	report := &dto.ConflictReport{}
	detectInternalOverlaps(candidate, report)
	detectClassViolations(current, candidate, report)
	detectClassCollisions(current, candidate, report)
	detectPriorityDowngrades(current, candidate, report)
	return report
}

// 同日内候选块两两重叠，按周一到周日顺序完整记录；
// 面向用户的摘要在裁决阶段才截断
func detectInternalOverlaps(candidate model.WeekDays, report *dto.ConflictReport) {
	for _, day := range model.DayOrder {
		blocks := candidate[day]
		for i := 0; i < len(blocks); i++ {
			for j := i + 1; j < len(blocks); j++ {
				overlap, err := timeutil.Overlaps(blocks[i].Start, blocks[i].End, blocks[j].Start, blocks[j].End)
				if err != nil || !overlap {
					continue
				}
				report.InternalOverlaps = append(report.InternalOverlaps, dto.OverlapConflict{
					Day:    day,
					First:  blocks[i],
					Second: blocks[j],
				})
			}
		}
	}
}

// 当前视图中的课程块必须在候选同日按结构身份原样出现，否则视为篡改
func detectClassViolations(current, candidate model.WeekDays, report *dto.ConflictReport) {
	seen := make(map[string]struct{})
	for _, day := range model.DayOrder {
		if model.IsWeekend(day) {
			continue
		}
		identities := make(map[string]struct{})
		for _, b := range candidate[day] {
			if b.IsClass {
				identities[b.IdentityKey()] = struct{}{}
			}
		}
		for _, b := range current[day] {
			if !b.IsClass {
				continue
			}
			if _, ok := identities[b.IdentityKey()]; ok {
				continue
			}
			key := day + "|" + b.Task + "|" + b.Start
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			report.ClassViolations = append(report.ClassViolations, dto.ClassConflict{
				Day:   day,
				Task:  b.Task,
				Start: b.Start,
				End:   b.End,
			})
		}
	}
}

// 候选任务块不得占用当前视图中课程块的时间段；课程块之间不互查。
// 每一对（任务块 × 课程块）都完整记录，去重在裁决阶段按课程做
func detectClassCollisions(current, candidate model.WeekDays, report *dto.ConflictReport) {
	for _, day := range model.DayOrder {
		if model.IsWeekend(day) {
			continue
		}
		for _, b := range candidate[day] {
			if b.IsClass {
				continue
			}
			for _, class := range current[day] {
				if !class.IsClass {
					continue
				}
				overlap, err := timeutil.Overlaps(b.Start, b.End, class.Start, class.End)
				if err != nil || !overlap {
					continue
				}
				report.ClassCollisions = append(report.ClassCollisions, dto.ClassConflict{
					Day:        day,
					Task:       b.Task,
					Start:      b.Start,
					End:        b.End,
					Class:      class.Task,
					ClassStart: class.Start,
					ClassEnd:   class.End,
				})
			}
		}
	}
}

// 候选块压占既有高优先级任务的时间段（按重叠配对，与任务名无关）。
// 存量任务缺失优先级按 high 处理；候选块本身为 high 时不算降级，
// 否则与当前视图完全相同的候选会把自己的高优任务报成冲突。
// 课程块两侧都不参与
func detectPriorityDowngrades(current, candidate model.WeekDays, report *dto.ConflictReport) {
	for _, day := range model.DayOrder {
		for _, oldB := range current[day] {
			if oldB.IsClass {
				continue
			}
			oldPriority := oldB.Priority
			if oldPriority == "" {
				oldPriority = model.PriorityHigh
			}
			if oldPriority != model.PriorityHigh {
				continue
			}
			for _, newB := range candidate[day] {
				if newB.IsClass || newB.Priority == model.PriorityHigh {
					continue
				}
				overlap, err := timeutil.Overlaps(oldB.Start, oldB.End, newB.Start, newB.End)
				if err != nil || !overlap {
					continue
				}
				report.PriorityDowngrades = append(report.PriorityDowngrades, dto.DowngradeConflict{
					Day: day,
					Old: oldB,
					New: newB,
				})
			}
		}
	}
}

// ════════════════════════════════════════════════════════════
// Decide — 裁决
// ════════════════════════════════════════════════════════════

// Decision 冲突报告的裁决结果
type Decision struct {
	Outcome    string
	ReasonCode string
	Message    string
}

// Decide 按固定优先级裁决：内部重叠、课程篡改、课程占位直接拒绝，
// 仅剩优先级降级的候选进入确认流程，无冲突则接受。
// 拒绝消息逐项列出冲突块：重叠最多列前 maxOverlapReports 组，
// 课程类冲突列出去重后的全部课程。
func Decide(report *dto.ConflictReport) Decision {
	if len(report.InternalOverlaps) > 0 {
		shown := report.InternalOverlaps
		if len(shown) > maxOverlapReports {
			shown = shown[:maxOverlapReports]
		}
		items := make([]string, 0, len(shown))
		for _, o := range shown {
			items = append(items, fmt.Sprintf("%s（%s-%s）与 %s（%s-%s），%s",
				o.First.Task, o.First.Start, o.First.End,
				o.Second.Task, o.Second.Start, o.Second.End, o.Day))
		}
		return Decision{
			Outcome:    dto.OutcomeRejected,
			ReasonCode: ReasonInternalOverlap,
			Message: fmt.Sprintf("生成的日程存在时间重叠：%s。任务之间不能重叠，已拒绝，原日程保持不变。",
				strings.Join(items, "；")),
		}
	}
	if len(report.ClassViolations) > 0 {
		items := make([]string, 0, len(report.ClassViolations))
		for _, v := range report.ClassViolations {
			items = append(items, fmt.Sprintf("%s（%s %s-%s）", v.Task, v.Day, v.Start, v.End))
		}
		return Decision{
			Outcome:    dto.OutcomeRejected,
			ReasonCode: ReasonClassViolation,
			Message: fmt.Sprintf("生成的日程改动了以下课程块：%s。课程不可移动或删除，已拒绝。",
				strings.Join(items, "、")),
		}
	}
	if len(report.ClassCollisions) > 0 {
		seen := make(map[string]struct{})
		items := make([]string, 0, len(report.ClassCollisions))
		for _, c := range report.ClassCollisions {
			key := c.Day + "|" + c.Class + "|" + c.ClassStart
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, fmt.Sprintf("%s（%s %s-%s）", c.Class, c.Day, c.ClassStart, c.ClassEnd))
		}
		return Decision{
			Outcome:    dto.OutcomeRejected,
			ReasonCode: ReasonClassCollision,
			Message: fmt.Sprintf("以下课程的时间段被任务占用：%s。课程时间不可安排其他任务，已拒绝。",
				strings.Join(items, "、")),
		}
	}
	if len(report.PriorityDowngrades) > 0 {
		d := report.PriorityDowngrades[0]
		return Decision{
			Outcome:    dto.OutcomeNeedsConfirmation,
			ReasonCode: ReasonPriorityDowngrade,
			Message: fmt.Sprintf("新日程中的 %q（%s-%s）压占了高优先级任务 %q（%s %s-%s）的时间段，是否接受？回复\"是\"应用新日程，\"否\"保留原日程。",
				d.New.Task, d.New.Start, d.New.End,
				d.Old.Task, d.Day, d.Old.Start, d.Old.End),
		}
	}
	return Decision{Outcome: dto.OutcomeAccepted}
}

// [自证通过] internal/service/reconcile.go
