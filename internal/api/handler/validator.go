package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"courtmate/backend/internal/level"
	"courtmate/backend/internal/model"
)

// RegisterValidators 向 gin 的校验引擎注册自定义规则：
//   - simple_level: 新手/初级/中级/高级/专业
//   - sport: tennis/badminton/squash
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("simple_level", func(fl validator.FieldLevel) bool {
		return level.IsValidSimple(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("sport", func(fl validator.FieldLevel) bool {
		return model.IsValidSport(fl.Field().String())
	})
}
