// Package validation wraps validator/v10 with the field rules shared by
// every submission form and turns failures into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("validation failed")

const MinGraduationYear = 1964

var (
	mobilePattern  = regexp.MustCompile(`^[6-9]\d{9}$`)
	phone10Pattern = regexp.MustCompile(`^\d{10}$`)
	emailPattern   = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
)

// Errors maps a JSON field name to a human readable message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(parts, "; ")
}

func (e Errors) Is(target error) bool {
	return target == ErrInvalid
}

// Field builds a single-field validation error.
func Field(name, message string) Errors {
	return Errors{name: message}
}

// Fields extracts per-field messages from err, if it carries any.
func Fields(err error) map[string]string {
	var ve Errors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

var defaultValidator = sync.OnceValue(New)

// Struct validates s with the shared Validator.
func Struct(s any) error {
	return defaultValidator().Struct(s)
}

var dateLayouts = []string{time.DateOnly, time.RFC3339}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, Field(field, field+" is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, Field(field, field+" must be a date like 2006-01-02")
}

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.mustRegister("mobile", matchString(mobilePattern))
	v.mustRegister("phone10", matchString(phone10Pattern))
	v.mustRegister("emailaddr", matchString(emailPattern))
	v.mustRegister("gradyear", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year >= MinGraduationYear && year <= int64(v.now().Year())
	})

	return v
}

func (v *Validator) mustRegister(tag string, fn validator.Func) {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s and returns Errors, or nil when s is valid.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	out := Errors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe, v.now())
		}
	}
	return out
}

func message(fe validator.FieldError, now time.Time) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email", "emailaddr":
		return "please provide a valid email address"
	case "mobile":
		return "mobile must be a 10-digit number starting with 6-9"
	case "phone10":
		return "please provide a valid 10-digit phone number"
	case "gradyear":
		return fmt.Sprintf("graduation year must be between %d and %d", MinGraduationYear, now.Year())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at least %s required", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at most %s allowed", fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url", "http_url":
		return fe.Field() + " must be a valid URL"
	case "datetime":
		return fmt.Sprintf("%s must use the format %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
