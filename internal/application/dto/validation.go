package dto

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
)

var platePattern = regexp.MustCompile(`^[A-Z0-9]{5,10}$`)

// Validator valida DTOs de entrada con validator/v10 y tags propios del SAT (rfc, cp, plate).
type Validator struct {
	v *validator.Validate
}

// NewValidator registra nombres JSON en los errores y los tipos decimal/fecha.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(DateTime); ok {
			return d.Time
		}
		return nil
	}, DateTime{})

	_ = v.RegisterValidation("rfc", func(fl validator.FieldLevel) bool {
		_, err := cfdi.ValidateRFC(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cp", func(fl validator.FieldLevel) bool {
		return cfdi.IsValidZipCode(fl.Field().String())
	})
	_ = v.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
		return platePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate devuelve un error de validación de dominio con el detalle por campo.
func (val *Validator) Validate(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(err.Error())
	}
	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: validationMessage(fe),
		})
	}
	return domain.NewValidationError("solicitud inválida", fields...)
}

// fieldPath quita el nombre del struct raíz: "CartaPorteRequest.recipient.rfc" → "recipient.rfc".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obligatorio"
	case "email":
		return "correo electrónico inválido"
	case "rfc":
		return "RFC con formato inválido"
	case "cp":
		return "el código postal debe tener 5 dígitos"
	case "plate":
		return "placa inválida (5 a 10 caracteres A-Z/0-9)"
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "se requieren al menos " + fe.Param() + " elementos"
		}
		return "debe ser al menos " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "máximo " + fe.Param() + " caracteres"
		}
		return "debe ser como máximo " + fe.Param()
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "gte":
		return "debe ser mayor o igual que " + fe.Param()
	case "lte":
		return "debe ser menor o igual que " + fe.Param()
	default:
		return "valor inválido"
	}
}
