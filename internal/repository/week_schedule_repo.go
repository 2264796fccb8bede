package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyflow/backend/internal/model"
)

// WeekScheduleRepository 周日程数据访问接口
// 周日程按用户单文档存储：整读整写，不做块级局部更新
type WeekScheduleRepository interface {
	GetByUser(ctx context.Context, userID string) (*model.WeekSchedule, error)
	Save(ctx context.Context, schedule *model.WeekSchedule) error
	DeleteByUser(ctx context.Context, userID string) error
}

// weekScheduleRepo WeekScheduleRepository 的 GORM 实现
type weekScheduleRepo struct {
	db *gorm.DB
}

// NewWeekScheduleRepo 创建 WeekScheduleRepository 实例
func NewWeekScheduleRepo(db *gorm.DB) WeekScheduleRepository {
	return &weekScheduleRepo{db: db}
}

func (r *weekScheduleRepo) GetByUser(ctx context.Context, userID string) (*model.WeekSchedule, error) {
	var schedule model.WeekSchedule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Save 按 user_id 做 upsert，days 整体覆盖
func (r *weekScheduleRepo) Save(ctx context.Context, schedule *model.WeekSchedule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"week_start", "timezone", "days", "updated_at",
			}),
		}).
		Create(schedule).Error
}

func (r *weekScheduleRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.WeekSchedule{}).Error
}
