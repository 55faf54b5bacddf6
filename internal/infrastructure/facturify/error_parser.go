package facturify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// satErrorMessages mensajes legibles para códigos CFDI frecuentes.
var satErrorMessages = map[string]string{
	"CFDI40147": "El código postal del receptor no está registrado en el SAT",
	"CFDI40148": "El RFC del receptor no está activo en el SAT",
	"CFDI40149": "El régimen fiscal del receptor no es válido",
	"CFDI33101": "El RFC del emisor no está activo en el SAT",
	"CFDI33102": "El certificado del emisor no es válido",
	"CFDI33103": "El sello digital no es válido",
}

var (
	satDetailPattern   = regexp.MustCompile(`\(SAT:\s*(.+?)\)`)
	parenDetailPattern = regexp.MustCompile(`\((.+?)\)`)
)

// ProviderValidationError error de campo devuelto por Facturify (422 y similares).
type ProviderValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// ProviderError error normalizado de Facturify/PAC/SAT.
type ProviderError struct {
	Code             string
	PAC              string
	OriginalMessage  string
	SATMessage       string
	FriendlyMessage  string
	UserMessage      string
	ValidationErrors []ProviderValidationError
}

func (e *ProviderError) Error() string { return e.UserMessage }

type errorEnvelope struct {
	Success *bool                     `json:"success"`
	Code    any                       `json:"code"`
	Message string                    `json:"message"`
	PAC     string                    `json:"pac"`
	Errors  []ProviderValidationError `json:"errors"`
}

// ParseProviderError normaliza los dos sobres de error del proveedor:
//
//	{success:false, code, message, pac}   error SAT/PAC, detalle "(SAT: ...)" en message
//	{code, message, errors:[{field,...}]} validación por campo
//
// Cualquier otro cuerpo se trata como texto plano.
func ParseProviderError(body []byte) *ProviderError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return parsePlainText(strings.TrimSpace(string(body)))
	}

	if env.Errors != nil {
		msg := env.Message
		if msg == "" {
			msg = "Error de validación"
		}
		user := msg
		if len(env.Errors) > 0 {
			lines := make([]string, 0, len(env.Errors))
			for _, fe := range env.Errors {
				field, m := fe.Field, fe.Message
				if field == "" {
					field = "campo desconocido"
				}
				if m == "" {
					m = "error desconocido"
				}
				lines = append(lines, "• "+field+": "+m)
			}
			user = msg + ":\n" + strings.Join(lines, "\n")
		}
		return &ProviderError{
			Code:             codeString(env.Code),
			OriginalMessage:  msg,
			UserMessage:      user,
			ValidationErrors: env.Errors,
		}
	}

	code := codeString(env.Code)
	sat := extractSATMessage(env.Message)
	friendly := satErrorMessages[code]
	return &ProviderError{
		Code:            code,
		PAC:             env.PAC,
		OriginalMessage: env.Message,
		SATMessage:      sat,
		FriendlyMessage: friendly,
		UserMessage:     userMessage(sat, friendly, env.Message),
	}
}

func parsePlainText(text string) *ProviderError {
	sat := extractSATMessage(text)
	user := text
	if sat != "" {
		user = sat
	}
	return &ProviderError{OriginalMessage: text, SATMessage: sat, UserMessage: user}
}

func extractSATMessage(msg string) string {
	if m := satDetailPattern.FindStringSubmatch(msg); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := parenDetailPattern.FindStringSubmatch(msg); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func userMessage(sat, friendly, original string) string {
	switch {
	case friendly != "" && sat != "":
		return friendly + ". Detalle: " + sat
	case friendly != "":
		return friendly
	case sat != "":
		return "Error del SAT: " + sat
	default:
		return original
	}
}

// codeString el proveedor envía code como texto ("CFDI40147") o número (33).
func codeString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
