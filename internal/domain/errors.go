package domain

import (
	"errors"
	"strings"
)

// Clases de error de dominio (sin dependencias externas).
// Todas las clases cumplen errors.Is(err, ErrBilling).
var (
	ErrBilling         = errors.New("error de facturación")
	ErrValidation      = errors.New("datos inválidos")
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrExternalService = errors.New("error del servicio externo")
	ErrAuth            = errors.New("autenticación con el proveedor fallida")
	ErrDuplicate       = errors.New("recurso duplicado")
)

// FieldError detalle de validación por campo.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error error de dominio con clase, mensaje para el usuario y causa opcional.
type Error struct {
	Kind   error
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if len(e.Fields) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// Unwrap expone la clase y la causa para errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Is hace que cualquier error de dominio sea también ErrBilling.
func (e *Error) Is(target error) bool {
	return target == ErrBilling
}

// NewValidationError error de datos de entrada o regla de negocio.
func NewValidationError(msg string, fields ...FieldError) *Error {
	return &Error{Kind: ErrValidation, Msg: msg, Fields: fields}
}

// NewNotFoundError entidad no localizada.
func NewNotFoundError(msg string) *Error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// NewExternalServiceError falla del proveedor (red, respuesta inválida o error SAT/PAC).
func NewExternalServiceError(msg string, cause error) *Error {
	return &Error{Kind: ErrExternalService, Msg: msg, Err: cause}
}

// NewAuthError falla al obtener o renovar el token del proveedor.
func NewAuthError(msg string, cause error) *Error {
	return &Error{Kind: ErrAuth, Msg: msg, Err: cause}
}

// Message devuelve el mensaje legible de un error de dominio, o err.Error() si no lo es.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	return err.Error()
}

// Fields devuelve los errores por campo si err es una validación.
func Fields(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
