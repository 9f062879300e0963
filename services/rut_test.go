package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRUT(t *testing.T) {
	assert.Equal(t, "12345678K", NormalizeRUT("12.345.678-k"))
	assert.Equal(t, "123456785", NormalizeRUT(" 12345678-5 "))
	assert.Equal(t, "11111111", NormalizeRUT("1.111.111-1"))
}

func TestComputeDV(t *testing.T) {
	tests := []struct {
		body string
		dv   byte
	}{
		{"12345678", '5'},
		{"11111111", '1'},
		{"7775777", '5'},
		{"20000003", 'K'},
		{"10000004", '0'},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.dv, ComputeDV(tt.body), "body %s", tt.body)
		})
	}
}

func TestValidateRUT(t *testing.T) {
	t.Run("valid with separators", func(t *testing.T) {
		assert.NoError(t, ValidateRUT("12.345.678-5"))
		assert.NoError(t, ValidateRUT("12345678-5"))
		assert.NoError(t, ValidateRUT("123456785"))
	})

	t.Run("lowercase k accepted", func(t *testing.T) {
		assert.NoError(t, ValidateRUT("20.000.003-k"))
	})

	t.Run("wrong check digit", func(t *testing.T) {
		assert.Error(t, ValidateRUT("12.345.678-6"))
	})

	t.Run("length out of range", func(t *testing.T) {
		assert.Error(t, ValidateRUT("1234-5"))
		assert.Error(t, ValidateRUT("1234567890-1"))
	})

	t.Run("non numeric body", func(t *testing.T) {
		assert.Error(t, ValidateRUT("12A45678-5"))
	})

	t.Run("computed digit always validates", func(t *testing.T) {
		for _, body := range []string{"7654321", "10000001", "25999999", "8888888", "19283746"} {
			rut := fmt.Sprintf("%s-%c", body, ComputeDV(body))
			assert.NoError(t, ValidateRUT(rut), "rut %s", rut)
		}
	})
}

func TestCheckRUTFormat(t *testing.T) {
	t.Run("accepts well formed without checksum", func(t *testing.T) {
		// wrong check digit still passes the loose check
		assert.NoError(t, CheckRUTFormat("12.345.678-6"))
		assert.NoError(t, CheckRUTFormat("12345678K"))
	})

	t.Run("rejects bad charset", func(t *testing.T) {
		assert.Error(t, CheckRUTFormat("12X45678-5"))
	})

	t.Run("rejects bad length", func(t *testing.T) {
		assert.Error(t, CheckRUTFormat("123-5"))
	})
}
