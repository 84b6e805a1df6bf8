package util

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类，业务层通过 fmt.Errorf("%w: ...") 包装
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSessionExpired   = errors.New("quiz session has expired")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthorized     = errors.New("unauthorized")
)

var (
	ErrUserNotFound          = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrEmailRegistered       = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials    = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrAccountDisabled       = fmt.Errorf("%w: account is disabled", ErrPermissionDenied)
	ErrCategoryNotFound      = fmt.Errorf("%w: category not found", ErrNotFound)
	ErrCategoryInactive      = fmt.Errorf("%w: category is not active", ErrValidation)
	ErrCategoryNameTaken     = fmt.Errorf("%w: category name already exists", ErrConflict)
	ErrCategoryInUse         = fmt.Errorf("%w: category still has questions", ErrConflict)
	ErrQuestionNotFound      = fmt.Errorf("%w: question not found", ErrNotFound)
	ErrNoQuestionsAvailable  = fmt.Errorf("%w: no questions available for this category", ErrNotFound)
	ErrSessionNotActive      = fmt.Errorf("%w: quiz session not found or not active", ErrNotFound)
	ErrSessionNotFound       = fmt.Errorf("%w: quiz session not found", ErrNotFound)
	ErrQuestionNotInSession  = fmt.Errorf("%w: question is not part of this session", ErrValidation)
	ErrHistoryExists         = fmt.Errorf("%w: attempt history already exists for this session", ErrConflict)
	ErrHistoryNotFound       = fmt.Errorf("%w: attempt history not found", ErrNotFound)
	ErrChallengeNotFound     = fmt.Errorf("%w: coding challenge not found", ErrNotFound)
	ErrChallengeInactive     = fmt.Errorf("%w: coding challenge is not active", ErrValidation)
	ErrSubmissionNotFound    = fmt.Errorf("%w: submission not found", ErrNotFound)
	ErrSubmissionNotEditable = fmt.Errorf("%w: submission can no longer be edited", ErrConflict)
	ErrSubmissionState       = fmt.Errorf("%w: submission is not in a reviewable state", ErrConflict)
	ErrJudgeUnavailable      = errors.New("judge service is not configured")
)

// ActiveSessionError 同一分类已有进行中的会话
type ActiveSessionError struct {
	SessionID     string
	TimeRemaining int
}

func (e *ActiveSessionError) Error() string {
	return fmt.Sprintf("you already have an active quiz session for this category (%ds remaining)", e.TimeRemaining)
}

func (e *ActiveSessionError) Unwrap() error {
	return ErrConflict
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 携带字段级错误
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validationf 构造一个不带字段信息的校验错误
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
