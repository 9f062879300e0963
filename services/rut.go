package services

import (
	"fmt"
	"strings"
)

// NormalizeRUT strips dots and hyphens and uppercases the identifier.
func NormalizeRUT(rut string) string {
	r := strings.ReplaceAll(rut, ".", "")
	r = strings.ReplaceAll(r, "-", "")
	return strings.ToUpper(strings.TrimSpace(r))
}

// ValidateRUT verifies a Chilean RUT with the mod-11 checksum. The input
// may contain dots and a hyphen. Returns an error describing the first
// failed check.
func ValidateRUT(rut string) error {
	normalized := NormalizeRUT(rut)
	if len(normalized) < 8 || len(normalized) > 9 {
		return fmt.Errorf("rut inválido: largo fuera de rango")
	}
	body := normalized[:len(normalized)-1]
	dv := normalized[len(normalized)-1]
	for _, c := range body {
		if c < '0' || c > '9' {
			return fmt.Errorf("rut inválido: cuerpo no numérico")
		}
	}
	if ComputeDV(body) != dv {
		return fmt.Errorf("rut inválido: dígito verificador incorrecto")
	}
	return nil
}

// ComputeDV computes the check digit for a numeric RUT body using
// weights 2..7 cycling from the least significant digit. 11 maps to '0'
// and 10 to 'K'.
func ComputeDV(body string) byte {
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	raw := 11 - (sum % 11)
	switch raw {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + raw)
	}
}

// CheckRUTFormat applies the loose length and charset check used by the
// lookup and search endpoints. It does not verify the checksum.
func CheckRUTFormat(rut string) error {
	normalized := NormalizeRUT(rut)
	if len(normalized) < 8 || len(normalized) > 9 {
		return fmt.Errorf("formato de rut inválido")
	}
	for i, c := range normalized {
		if c >= '0' && c <= '9' {
			continue
		}
		if c == 'K' && i == len(normalized)-1 {
			continue
		}
		return fmt.Errorf("formato de rut inválido")
	}
	return nil
}
