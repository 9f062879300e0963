package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRUT(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"12345678-5", "12.345.678-5"},
		{"123456785", "12.345.678-5"},
		{"12.345.678-5", "12.345.678-5"},
		{"7775777-5", "7.775.777-5"},
		{"20000003k", "20.000.003-K"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatRUT(tt.input))
		})
	}
}

func TestFormatFecha(t *testing.T) {
	assert.Equal(t, "2 de enero de 2026", FormatFecha(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "15 de septiembre de 2025", FormatFecha(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "31 de diciembre de 2024", FormatFecha(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestFormatMoneda(t *testing.T) {
	tests := []struct {
		monto    float64
		expected string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1.000"},
		{1234567, "$1.234.567"},
		{987654321, "$987.654.321"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoneda(tt.monto))
		})
	}
}
