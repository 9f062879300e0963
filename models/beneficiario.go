package models

import (
	"time"
)

// Beneficiario is created fresh on every submission (no upsert). Its
// signed status is not stored here: a beneficiario counts as signed when
// a UsuarioFirma row exists whose RUT matches BenRUN, case-insensitive.
type Beneficiario struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ExpedienteID uint `gorm:"not null;index" json:"expediente_id"`
	SolicitudID  uint `gorm:"not null;index" json:"solicitud_id"`

	BenNombre       string `gorm:"column:ben_nombre;not null" json:"ben_nombre"`
	BenRUN          string `gorm:"column:ben_run;not null;index" json:"ben_run"`
	BenParentesco   string `gorm:"column:ben_parentesco" json:"ben_parentesco"`
	EsRepresentante bool   `gorm:"not null;default:false" json:"es_representante"`
}

// TableName specifies the table name for Beneficiario model
func (Beneficiario) TableName() string {
	return "beneficiarios"
}
