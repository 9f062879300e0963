package models

import (
	"strings"
	"time"
)

// Representante is the requesting party acting on behalf of the estate.
// Natural key is the RUT, upserted the same way as Causante.
type Representante struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExpedienteID uint `gorm:"not null;index" json:"expediente_id"`

	RUT       string `gorm:"column:rep_rut;uniqueIndex;not null" json:"rep_rut"`
	Calidad   string `gorm:"column:rep_calidad" json:"rep_calidad"`
	Nombre    string `gorm:"column:rep_nombre" json:"rep_nombre"`
	ApellidoP string `gorm:"column:rep_apellido_p" json:"rep_apellido_p"`
	ApellidoM string `gorm:"column:rep_apellido_m" json:"rep_apellido_m"`
	Telefono  string `gorm:"column:rep_telefono" json:"rep_telefono"`
	Direccion string `gorm:"column:rep_direccion" json:"rep_direccion"`
	Comuna    string `gorm:"column:rep_comuna" json:"rep_comuna"`
	Region    string `gorm:"column:rep_region" json:"rep_region"`
	Email     string `gorm:"column:rep_email" json:"rep_email"`
}

// TableName specifies the table name for Representante model
func (Representante) TableName() string {
	return "representantes"
}

// NombreCompleto returns the display name of the representative
func (r *Representante) NombreCompleto() string {
	return joinNames(r.Nombre, r.ApellidoP, r.ApellidoM)
}

func joinNames(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, " ")
}
