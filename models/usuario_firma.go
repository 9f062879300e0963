package models

import (
	"time"
)

// UsuarioFirma is the signature side table keyed by identity. Rows are
// written by the external signing application; this backend only reads
// it to resolve signed status for beneficiarios and representantes.
type UsuarioFirma struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RUT        string     `gorm:"column:rut;not null;index" json:"rut"`
	Nombre     string     `json:"nombre"`
	FechaFirma *time.Time `json:"fecha_firma,omitempty"`
}

// TableName specifies the table name for UsuarioFirma model
func (UsuarioFirma) TableName() string {
	return "usuarios_firma"
}
