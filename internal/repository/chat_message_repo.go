package repository

import (
	"context"

	"gorm.io/gorm"

	"studyflow/backend/internal/model"
)

// ChatMessageRepository 聊天记录数据访问接口
type ChatMessageRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	ListRecent(ctx context.Context, userID, channel string, limit int) ([]model.ChatMessage, error)
	DeleteByUserChannel(ctx context.Context, userID, channel string) error
}

// chatMessageRepo ChatMessageRepository 的 GORM 实现
type chatMessageRepo struct {
	db *gorm.DB
}

// NewChatMessageRepo 创建 ChatMessageRepository 实例
func NewChatMessageRepo(db *gorm.DB) ChatMessageRepository {
	return &chatMessageRepo{db: db}
}

func (r *chatMessageRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListRecent 返回最近 limit 条，按时间正序排列
func (r *chatMessageRepo) ListRecent(ctx context.Context, userID, channel string, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel = ?", userID, channel).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// 倒序查询取最近 N 条，再反转回时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *chatMessageRepo) DeleteByUserChannel(ctx context.Context, userID, channel string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND channel = ?", userID, channel).
		Delete(&model.ChatMessage{}).Error
}
