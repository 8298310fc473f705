// Package validation holds request validation and Bulgarian identifier checks.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bgfactura/invoicing/internal/errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Decimals reach the tag validators as their exact string form.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			switch d := field.Interface().(type) {
			case decimal.Decimal:
				return d.String()
			case decimal.NullDecimal:
				if !d.Valid {
					return nil
				}
				return d.Decimal.String()
			}
			return nil
		}, decimal.Decimal{}, decimal.NullDecimal{})
		_ = v.RegisterValidation("dgte", func(fl validator.FieldLevel) bool {
			return compareDecimal(fl, func(c int) bool { return c >= 0 })
		})
		_ = v.RegisterValidation("dlte", func(fl validator.FieldLevel) bool {
			return compareDecimal(fl, func(c int) bool { return c <= 0 })
		})
		_ = v.RegisterValidation("eik", func(fl validator.FieldLevel) bool {
			return ValidEIK(fl.Field().String())
		})
		_ = v.RegisterValidation("bgiban", func(fl validator.FieldLevel) bool {
			return ValidBulgarianIBAN(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s against its `validate` tags. Failures are returned as a
// validation ServiceError whose details map field paths to messages.
func Struct(s interface{}) error {
	err := validate().Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation(err.Error())
	}
	se := errors.Validation("Validation failed")
	for _, fe := range fieldErrs {
		se.WithDetails(fieldPath(fe), message(fe))
	}
	return se
}

// compareDecimal compares the field with the tag parameter without going
// through float64. Values that do not parse fail.
func compareDecimal(fl validator.FieldLevel, ok func(int) bool) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	value, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	bound, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return ok(value.Cmp(bound))
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte", "dgte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte", "dlte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "eik":
		return "is not a valid EIK"
	case "bgiban":
		return "is not a valid Bulgarian IBAN"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
