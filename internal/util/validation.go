package util

import (
	"errors"
	"fmt"
	"strings"

	"quiz_edu_backend/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册自定义校验规则，需在路由注册前调用
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	if err := v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		d := model.Difficulty(fl.Field().String())
		return d.Valid() || d == model.DifficultyMixed
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("qkind", func(fl validator.FieldLevel) bool {
		return model.QuestionKind(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("qstatus", func(fl validator.FieldLevel) bool {
		return model.QuestionStatus(fl.Field().String()).Valid()
	})
}

// FieldErrors 将 validator 的错误转换为字段级错误
func FieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]FieldError, 0, len(ve))
		for _, fe := range ve {
			out = append(out, FieldError{
				Field:   lowerFirst(fe.Field()),
				Message: fieldMessage(fe),
			})
		}
		return out
	}
	var fe *ValidationError
	if errors.As(err, &fe) {
		return fe.Fields
	}
	return []FieldError{{Field: "body", Message: err.Error()}}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "difficulty":
		return "must be one of [easy medium hard mixed]"
	case "qkind":
		return "must be one of [mcq program-trace coding]"
	case "qstatus":
		return "must be one of [draft active inactive]"
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
