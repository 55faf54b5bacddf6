package cfdi

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	rfcPattern = regexp.MustCompile(`^[A-Z&Ñ]{3,4}\d{6}[A-Z0-9]{3}$`)
	cpPattern  = regexp.MustCompile(`^\d{5}$`)

	upperES = cases.Upper(language.Spanish)
)

// NormalizeRFC quita espacios y pasa a mayúsculas compuestas (NFC), de modo que
// "ñ" escrita como n + tilde combinante se compare igual que "Ñ".
func NormalizeRFC(rfc string) string {
	s := strings.TrimSpace(rfc)
	s = norm.NFC.String(s)
	return upperES.String(s)
}

// IsValidRFC indica si el RFC (ya normalizado) cumple el patrón de persona moral (12) o física (13).
func IsValidRFC(rfc string) bool {
	return rfcPattern.MatchString(rfc)
}

// ValidateRFC normaliza y valida. Devuelve el RFC normalizado.
func ValidateRFC(rfc string) (string, error) {
	n := NormalizeRFC(rfc)
	if !IsValidRFC(n) {
		return "", fmt.Errorf("cfdi: RFC %q no cumple el formato del SAT", rfc)
	}
	return n, nil
}

// IsValidZipCode código postal de 5 dígitos.
func IsValidZipCode(cp string) bool {
	return cpPattern.MatchString(cp)
}
