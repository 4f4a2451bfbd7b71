// Package payload decodes and validates inbound JSON bodies for the realtime and REST
// adapters. Field errors are reported by their JSON names.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"dispatch/internal/pkg/errs"

	"github.com/go-playground/validator/v10"
)

// Validator checks struct tags. It satisfies echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that names fields after their json tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return &Validator{validate: v}
}

// Validate runs the struct's validate tags.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// Decode unmarshals data into dest, rejecting unknown fields, and validates it.
// An empty body decodes as {}.
func (v *Validator) Decode(data []byte, dest any) error {
	return v.decode(data, dest, true)
}

// DecodeLenient is Decode for device telemetry: unknown fields are ignored.
func (v *Validator) DecodeLenient(data []byte, dest any) error {
	return v.decode(data, dest, false)
}

func (v *Validator) decode(data []byte, dest any, strict bool) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dest); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("payload", err)
	}
	return v.Validate(dest)
}

func formatValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewValueIsInvalidErrorWithCause("payload", err)
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fe.Field()+" "+validationMessage(fe))
	}
	sort.Strings(details)
	return errs.NewValueIsInvalidErrorWithCause("payload", errors.New(strings.Join(details, "; ")))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid":
		return "must be a UUID"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "numeric":
		return "must be numeric"
	}
	return "is invalid"
}
