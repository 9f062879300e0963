package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Funcionario roles
const (
	RolEjecutivoPlataforma = "ejecutivo_plataforma"
	RolJefatura            = "jefatura"
)

// Valid sucursal codes accepted at account creation
var ValidSucursales = []string{"providencia", "nunoa", "santo_domingo"}

// DefaultSucursal is assigned when no sucursal is provided
const DefaultSucursal = "IPS Central"

// Funcionario represents a platform user (executive or supervisor)
type Funcionario struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RUT          string  `gorm:"column:rut;uniqueIndex;not null" json:"rut"`
	Nombres      string  `gorm:"not null" json:"nombres"`
	ApellidoP    string  `gorm:"not null" json:"apellido_p"`
	ApellidoM    *string `json:"apellido_m,omitempty"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Rol          string  `gorm:"not null;default:ejecutivo_plataforma" json:"rol"`
	Sucursal     string  `gorm:"not null" json:"sucursal"`
	Iniciales    string  `json:"iniciales"`
	Activo       bool    `gorm:"not null;default:true" json:"activo"`
}

// BeforeCreate derives the iniciales from the name fields
func (f *Funcionario) BeforeCreate(tx *gorm.DB) error {
	if f.Iniciales == "" {
		f.Iniciales = BuildIniciales(f.Nombres, f.ApellidoP)
	}
	return nil
}

// TableName specifies the table name for Funcionario model
func (Funcionario) TableName() string {
	return "funcionarios"
}

// NombreCompleto returns the display name "Nombres ApellidoP ApellidoM"
func (f *Funcionario) NombreCompleto() string {
	parts := []string{f.Nombres, f.ApellidoP}
	if f.ApellidoM != nil && *f.ApellidoM != "" {
		parts = append(parts, *f.ApellidoM)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// IsValidRol checks if the role is one of the accepted values
func IsValidRol(rol string) bool {
	return rol == RolEjecutivoPlataforma || rol == RolJefatura
}

// IsValidSucursal checks a sucursal code against the accepted set
func IsValidSucursal(sucursal string) bool {
	for _, s := range ValidSucursales {
		if s == sucursal {
			return true
		}
	}
	return false
}

// BuildIniciales takes the first letter of the first given name and the
// paternal surname, uppercased
func BuildIniciales(nombres, apellidoP string) string {
	var b strings.Builder
	if first := strings.Fields(nombres); len(first) > 0 {
		b.WriteString(first[0][:1])
	}
	if apellidoP != "" {
		b.WriteString(apellidoP[:1])
	}
	return strings.ToUpper(b.String())
}
