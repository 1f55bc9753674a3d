package api

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"vidslides/internal/pipeline"
)

// fieldMessages maps validation tags to friendly messages.
var fieldMessages = map[string]string{
	"required":    "The field '%s' is required.",
	"min":         "The field '%s' must be at least %s characters long.",
	"max":         "The field '%s' must be no longer than %s characters.",
	"lte":         "The field '%s' must be less than or equal to %s.",
	"gte":         "The field '%s' must be greater than or equal to %s.",
	"oneof":       "The field '%s' must be one of %s.",
	"http_url":    "The field '%s' must be an http or https URL.",
	"jobid":       "The field '%s' may only contain letters, digits, '.', '_' and '-' and must start with a letter or digit.",
	"filepattern": "The field '%s' must not contain path separators or '..' and must not start with '-'.",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("jobid", func(fl validator.FieldLevel) bool {
		return pipeline.ValidJobID(fl.Field().String())
	})
	_ = v.RegisterValidation("filepattern", func(fl validator.FieldLevel) bool {
		return validFilePattern(fl.Field().String())
	})
	return v
}

// validFilePattern keeps download file names inside the job directory and
// out of the downloaders' option parsing.
func validFilePattern(pattern string) bool {
	return !strings.ContainsAny(pattern, `/\`) &&
		!strings.Contains(pattern, "..") &&
		!strings.HasPrefix(pattern, "-")
}

// validateRequest returns nil or an invalid_request error listing each
// offending field.
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &ServiceError{Code: CodeInvalidRequest, Message: err.Error()}
	}
	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	messages := make([]string, 0, len(names))
	for _, name := range names {
		messages = append(messages, fields[name])
	}
	return &ServiceError{
		Code:    CodeInvalidRequest,
		Message: strings.Join(messages, " "),
		Fields:  fields,
	}
}

func fieldMessage(fe validator.FieldError) string {
	template, ok := fieldMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", fe.Field(), fe.Tag())
	}
	switch strings.Count(template, "%s") {
	case 1:
		return fmt.Sprintf(template, fe.Field())
	default:
		return fmt.Sprintf(template, fe.Field(), fe.Param())
	}
}
