package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"studyflow/backend/internal/dto"
	"studyflow/backend/internal/model"
	"studyflow/backend/internal/repository"
	"studyflow/backend/pkg/jwt"
	redisclient "studyflow/backend/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrEmailTaken         = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)

// AuthService 认证模块业务接口
type AuthService interface {
	// Register 注册新用户
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error)
	// Login 登录
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	// Logout 登出（将当前 token 拉黑至过期）
	Logout(ctx context.Context, claims *jwt.Claims) error
	// Me 当前用户信息
	Me(ctx context.Context, userID string) (*dto.UserInfo, error)
	// UpdateChronotype 设置生物钟类型
	UpdateChronotype(ctx context.Context, userID string, req *dto.UpdateChronotypeRequest) (*dto.UserInfo, error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// redis 可为 nil：此时登出只在客户端丢弃 token
func NewAuthService(repo *repository.Repository, jwtMgr *jwt.Manager, redis *redisclient.Client, logger *zap.Logger) AuthService {
	return &authService{repo: repo, jwtMgr: jwtMgr, redis: redis, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Register — 注册
// ════════════════════════════════════════════════════════════

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Chronotype:   req.Chronotype,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	s.logger.Info("用户已注册", zap.String("user_id", user.UserID.String()))

	return s.issueToken(user)
}

// ════════════════════════════════════════════════════════════
// Login — 登录
// ════════════════════════════════════════════════════════════

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// ════════════════════════════════════════════════════════════
// Logout — 登出
// ════════════════════════════════════════════════════════════

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.redis == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("拉黑 token 失败: %w", err)
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// Me — 当前用户
// ════════════════════════════════════════════════════════════

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserInfo, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return toUserInfo(user), nil
}

// ════════════════════════════════════════════════════════════
// UpdateChronotype — 设置生物钟类型
// ════════════════════════════════════════════════════════════

func (s *authService) UpdateChronotype(ctx context.Context, userID string, req *dto.UpdateChronotypeRequest) (*dto.UserInfo, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	user.Chronotype = req.Chronotype
	if err := s.repo.User.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return toUserInfo(user), nil
}

// ── 内部辅助 ──

func (s *authService) issueToken(user *model.User) (*dto.LoginResponse, error) {
	token, err := s.jwtMgr.GenerateToken(user.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("签发 token 失败: %w", err)
	}
	return &dto.LoginResponse{Token: token, User: toUserInfo(user)}, nil
}

func toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		UserID:     user.UserID.String(),
		Name:       user.Name,
		Email:      user.Email,
		Chronotype: user.Chronotype,
	}
}

// [自证通过] internal/service/auth_service.go
