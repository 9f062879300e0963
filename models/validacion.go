package models

import (
	"time"
)

// Validacion is the per-solicitud scaffold created at intake. It stores
// the HMAC firma blobs (JSON) for the representante and the funcionario.
type Validacion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExpedienteID uint `gorm:"not null;index" json:"expediente_id"`
	SolicitudID  uint `gorm:"not null;index" json:"solicitud_id"`

	ValSucursal string `gorm:"column:val_sucursal" json:"val_sucursal"`
	ValEstado   string `gorm:"column:val_estado;not null;default:pendiente" json:"val_estado"`

	// JSON blobs: {"firma": hex, "payload": {...}, "fecha": ...}
	ValFirmaRepresentante    *string    `gorm:"column:val_firma_representante;type:text" json:"val_firma_representante,omitempty"`
	ValFirmaFuncionario      *string    `gorm:"column:val_firma_funcionario;type:text" json:"val_firma_funcionario,omitempty"`
	ValFechaFirmaFuncionario *time.Time `gorm:"column:val_fecha_firma_funcionario" json:"val_fecha_firma_funcionario,omitempty"`
}

// TableName specifies the table name for Validacion model
func (Validacion) TableName() string {
	return "validacion"
}
