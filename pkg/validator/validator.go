// Package validator checks request structs with go-playground/validator
// and the tags used by ingestion and finding workflow requests.
package validator

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// Validator validates structs and reports failures as ValidationErrors.
type Validator struct {
	validate *validator.Validate
}

// ValidationError is one failed field. Field is the JSON name when the
// struct field has a json tag, snake_case otherwise.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validate when any field fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// customTag is a tag registered on top of the go-playground builtins.
type customTag struct {
	fn      validator.Func
	message string
}

var customTags = map[string]customTag{
	"severity":       {validateSeverity, "must be one of: " + joinSeverities()},
	"finding_status": {validateFindingStatus, "must be one of: open, in_progress, closed"},
	"scan_file":      {validateScanFile, "must be a .json or .jsonl file"},
	"printable":      {validatePrintable, "must not contain control characters"},
}

// New returns a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	for tag, ct := range customTags {
		if err := v.RegisterValidation(tag, ct.fn); err != nil {
			panic(fmt.Sprintf("validator: register %q: %v", tag, err))
		}
	}
	return &Validator{validate: v}
}

// Validate returns nil, ValidationErrors, or the validator's own error
// when s is not a struct.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{Field: fe.Field(), Message: message(fe)}
	}
	return out
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return toSnakeCase(f.Name)
	default:
		return name
	}
}

func message(fe validator.FieldError) string {
	if ct, ok := customTags[fe.Tag()]; ok {
		return ct.message
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// Empty values pass the custom tags; "required" reports them.

func validateSeverity(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slices.Contains(vulnerability.AllSeverities(), vulnerability.Severity(value))
}

func validateFindingStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := vulnerability.ParseFindingStatus(value)
	return err == nil
}

func validateScanFile(fl validator.FieldLevel) bool {
	switch strings.ToLower(filepath.Ext(fl.Field().String())) {
	case ".json", ".jsonl":
		return true
	}
	return false
}

func validatePrintable(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), func(r rune) bool { return !unicode.IsPrint(r) }) < 0
}

// toSnakeCase turns BatchName into batch_name.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func joinSeverities() string {
	all := vulnerability.AllSeverities()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
