package service

import (
	"errors"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
)

// Principal 请求主体，由控制器从 JWT 中解析后显式传入
type Principal struct {
	UserID uint
	Role   model.UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == model.Admin
}

// CanAccess 本人或管理员
func (p Principal) CanAccess(ownerID uint) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

func PrincipalFromClaims(claims *util.Claims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{UserID: claims.UserID, Role: claims.Role}
}

// notFound 将 gorm 的记录不存在错误转换为业务错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
