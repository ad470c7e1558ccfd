// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Field names in errors are taken
// from the json tag so messages refer to the wire name ("user_email"), not
// the Go field name.
//
// Example usage:
//
//	type createUserRequest struct {
//	    ID   *int64  `json:"user_id"   validate:"required"`
//	    Name *string `json:"user_name" validate:"required"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    handler.WriteError(w, verr.AppError())
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/usersvc/internal/apperror"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// fieldError is one field that failed validation.
type fieldError struct {
	field   string // json name
	message string
}

// RequestValidationError collects every field error of one ValidateStruct call.
type RequestValidationError struct {
	errors []fieldError
}

// Error joins the field messages with "; ".
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, fe := range ve.errors {
		messages = append(messages, fe.message)
	}
	return strings.Join(messages, "; ")
}

// AppError converts ve to an *apperror.AppError wrapping apperror.ErrValidation.
// Field is set when exactly one field failed.
func (ve *RequestValidationError) AppError() *apperror.AppError {
	field := ""
	if len(ve.errors) == 1 {
		field = ve.errors[0].field
	}
	return apperror.ValidationFailed(field, ve.Error())
}

// GetValidator returns the singleton validator instance.
// This function is thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})

	return validate
}

// jsonFieldName reports a struct field by its json name. Fields tagged
// json:"-" are reported by their Go name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		// InvalidValidationError: s was nil or not a struct.
		return &RequestValidationError{
			errors: []fieldError{{field: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]fieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = fieldError{field: fe.Field(), message: translateError(fe)}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// translateError turns a validator.FieldError into a client-facing message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()

	if fe.Tag() == "required" {
		return fmt.Sprintf("%s is required", field)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
