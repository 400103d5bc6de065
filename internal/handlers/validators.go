package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/polisys/ledgercore/internal/core/domain"
)

// registerCustomValidators adds binding validators shared by the request DTOs.
// The currency check runs at bind time so malformed codes never reach the
// services.
func registerCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return domain.IsKnownCurrency(fl.Field().String())
		})
	}
}
