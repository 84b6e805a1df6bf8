package service

import (
	"context"
	"strings"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// UserService 处理用户相关的业务逻辑
type UserService struct {
	UserRepo *repository.UserRepository
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// ProfileInput 用户修改自己的资料
type ProfileInput struct {
	Name        string `json:"name" binding:"omitempty,max=100"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" binding:"omitempty,min=8"`
}

// AdminUserInput 管理员修改用户角色与状态
type AdminUserInput struct {
	Name     string         `json:"name" binding:"omitempty,max=100"`
	Role     model.UserRole `json:"role" binding:"omitempty,oneof=student admin"`
	Disabled *bool          `json:"disabled"`
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter, p util.Pagination) ([]model.User, int64, error) {
	return s.UserRepo.List(ctx, filter, p)
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	return user, nil
}

// UpdateProfile 修改密码时必须提供旧密码
func (s *UserService) UpdateProfile(ctx context.Context, principal Principal, in ProfileInput) (*model.User, error) {
	user, err := s.Get(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if in.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.OldPassword)); err != nil {
			return nil, util.NewValidationError(util.FieldError{Field: "oldPassword", Message: "is incorrect"})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update 管理员不能降级或禁用自己
func (s *UserService) Update(ctx context.Context, id uint, principal Principal, in AdminUserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == principal.UserID {
		if (in.Role != "" && in.Role != model.Admin) || (in.Disabled != nil && *in.Disabled) {
			return nil, util.Validationf("administrators cannot demote or disable themselves")
		}
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if in.Role != "" {
		user.Role = in.Role
	}
	if in.Disabled != nil {
		user.Disabled = *in.Disabled
	}
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uint, principal Principal) error {
	if id == principal.UserID {
		return util.Validationf("administrators cannot delete themselves")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.UserRepo.Delete(ctx, id)
}
