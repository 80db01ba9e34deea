// Package reviewform validates the borrower review forms field by field.
package reviewform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid matches any FieldErrors.
var ErrInvalid = errors.New("reviewform: invalid form")

// FieldErrors maps a JSON field path such as "contact.email" or "income[2]"
// to a human readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + " " + fe[f]
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Is(target error) bool { return target == ErrInvalid }

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("digitcount", validateDigitCount)
	_ = v.RegisterValidation("amount", validateAmount)
	_ = v.RegisterValidation("contingentkey", validateContingentKey)
	return &Validator{v: v}
}

// Validate returns nil or FieldErrors for form, which must be a struct or a
// pointer to one.
func (val *Validator) Validate(form any) error {
	err := val.v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate form: %w", err)
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if _, seen := out[field]; !seen {
			out[field] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "digitcount":
		return "must contain exactly " + fe.Param() + " digits"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must have at most " + fe.Param() + " entries"
	case "amount":
		return "must be a currency amount"
	case "contingentkey":
		return "is not a known question"
	}
	return "is invalid"
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// digitcount=N ignores punctuation, so "(555) 123-4567" has 10 digits.
func validateDigitCount(fl validator.FieldLevel) bool {
	want, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return countDigits(fl.Field().String()) == want
}

// amount accepts an empty cell or a currency string: digits plus "$", ",",
// ".", "-" and spaces, with at least one digit.
func validateAmount(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune("$,.- ", r):
		default:
			return false
		}
	}
	return countDigits(s) > 0
}

func validateContingentKey(fl validator.FieldLevel) bool {
	_, ok := contingentKeys[fl.Field().String()]
	return ok
}
