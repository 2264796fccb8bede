package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studyflow/backend/config"
)

// ErrNoPending 指定用户当前没有待确认候选日程
var ErrNoPending = errors.New("无待确认候选日程")

// Client Redis 客户端封装
// 两个用途：Token 黑名单（登出）、每用户单槽的待确认候选日程信箱
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 待确认候选日程信箱 ──
//
// 每用户单槽：同一用户仅允许存在一个待确认候选，后写覆盖（last-writer-wins）。
// 不设 TTL：候选保持待确认状态直到用户显式回答或被新候选覆盖。

const pendingPrefix = "assistant:pending:"

// SetPending 写入用户的待确认候选（覆盖旧值）
func (c *Client) SetPending(ctx context.Context, userID string, payload []byte) error {
	return c.rdb.Set(ctx, pendingPrefix+userID, payload, 0).Err()
}

// GetPending 读取用户的待确认候选；不存在时返回 ErrNoPending
func (c *Client) GetPending(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, pendingPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNoPending
		}
		return nil, err
	}
	return data, nil
}

// ClearPending 清除用户的待确认候选
func (c *Client) ClearPending(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, pendingPrefix+userID).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
