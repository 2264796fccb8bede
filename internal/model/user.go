package model

import (
	"github.com/google/uuid"
)

// 生物钟类型
const (
	ChronotypeLion    = "lion"
	ChronotypeBear    = "bear"
	ChronotypeWolf    = "wolf"
	ChronotypeDolphin = "dolphin"
)

// User 用户实体
type User struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Chronotype   string    `gorm:"size:16" json:"chronotype"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
