package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Registers the symbol format rule used by request binding tags
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
			return symbolPattern.MatchString(fl.Field().String())
		})
	}
}
