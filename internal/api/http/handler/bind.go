package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/service"
)

// bindJSON decodes the body into req and aborts with 422 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierror.Abort(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return service.ToValidationError(verrs)
	}
	return model.NewValidationError("body", "must be a valid JSON object")
}

// RegisterValidations installs the custom rules on gin's validator and makes
// it report JSON field names. It must run before any request is bound.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	service.RegisterValidations(v)
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}
