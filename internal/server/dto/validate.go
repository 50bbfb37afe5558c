// Package dto defines the API request and response types.
//
// Request types carry path, query and json struct tags for parameter binding
// and validate tags checked by Validate. Response types never expose
// password hashes.
package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/maruel/myaccount/internal/errors"
)

// Validatable is implemented by request types that can validate their fields.
// The Wrap functions use this interface as a type constraint to ensure all
// request types provide validation.
type Validatable interface {
	Validate() error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"path", "query", "json"} {
			if name, _, _ := strings.Cut(fld.Tag.Get(key), ","); name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// check validates the validate tags of req and converts failures to a 400
// APIError naming the JSON fields.
func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apierrors.FromValidator(verrs)
	}
	return apierrors.BadRequest(err.Error())
}
