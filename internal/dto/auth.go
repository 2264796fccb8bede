package dto

// ── 认证模块 DTO ──

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name       string `json:"name"       binding:"required,min=2,max=40"`
	Email      string `json:"email"      binding:"required,email"`
	Password   string `json:"password"   binding:"required,min=8,max=64"`
	Chronotype string `json:"chronotype" binding:"omitempty,oneof=lion bear wolf dolphin"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo 用户信息
type UserInfo struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Chronotype string `json:"chronotype"`
}

// UpdateChronotypeRequest 设置生物钟类型请求
type UpdateChronotypeRequest struct {
	Chronotype string `json:"chronotype" binding:"required,oneof=lion bear wolf dolphin"`
}

// [自证通过] internal/dto/auth.go
