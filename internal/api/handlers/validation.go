package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jafarshop/storefront-checkout/internal/address"
)

// RegisterBindingValidators adds the "mobile" binding tag. Phones are checked
// with the address validator's pattern, or only for presence when it is nil.
func RegisterBindingValidators(addrValidator *address.Validator) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		if addrValidator == nil {
			return fl.Field().String() != ""
		}
		return addrValidator.ValidPhone(fl.Field().String())
	})
}
