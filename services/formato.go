package services

import (
	"fmt"
	"strings"
	"time"
)

var mesesES = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatRUT renders a normalized RUT with thousands dots and the check
// digit after a hyphen, e.g. 12345678K -> 12.345.678-K.
func FormatRUT(rut string) string {
	normalized := NormalizeRUT(rut)
	if len(normalized) < 2 {
		return normalized
	}
	body := normalized[:len(normalized)-1]
	dv := normalized[len(normalized)-1:]

	var groups []string
	for len(body) > 3 {
		groups = append([]string{body[len(body)-3:]}, groups...)
		body = body[:len(body)-3]
	}
	groups = append([]string{body}, groups...)
	return strings.Join(groups, ".") + "-" + dv
}

// FormatFecha renders a date in long Spanish form, e.g. "2 de enero de 2026".
func FormatFecha(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), mesesES[t.Month()-1], t.Year())
}

// FormatMoneda renders a peso amount with thousands dots and no
// decimals, e.g. 1234567 -> "$1.234.567".
func FormatMoneda(monto float64) string {
	n := int64(monto)
	negative := n < 0
	if negative {
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	out := "$" + strings.Join(groups, ".")
	if negative {
		out = "-" + out
	}
	return out
}
