package models

import (
	"time"
)

// Approval item categories
const (
	ItemTipoCausante      = "causante"
	ItemTipoBeneficiarios = "beneficiarios"
	ItemTipoFirmas        = "firmas"
	ItemTipoCalculo       = "calculo"
	ItemTipoDocumentos    = "documentos"
	ItemTipoGeneral       = "general"
)

// Approval item states
const (
	ItemEstadoPendiente = "pendiente"
	ItemEstadoAprobado  = "aprobado"
	ItemEstadoRechazado = "rechazado"
)

// ValidItemTipos lists every reviewable category
var ValidItemTipos = []string{
	ItemTipoCausante,
	ItemTipoBeneficiarios,
	ItemTipoFirmas,
	ItemTipoCalculo,
	ItemTipoDocumentos,
	ItemTipoGeneral,
}

// RequiredItemTipos are the categories that must be aprobado before a
// solicitud can be completada; general is informational only
var RequiredItemTipos = []string{
	ItemTipoCausante,
	ItemTipoBeneficiarios,
	ItemTipoFirmas,
	ItemTipoCalculo,
	ItemTipoDocumentos,
}

// AprobacionItem is one supervisory verdict, unique per
// (expediente, solicitud, item_tipo). Re-approving or re-rejecting the
// same category overwrites the prior verdict.
type AprobacionItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExpedienteID uint   `gorm:"not null;uniqueIndex:idx_aprobacion_item" json:"expediente_id"`
	SolicitudID  uint   `gorm:"not null;uniqueIndex:idx_aprobacion_item" json:"solicitud_id"`
	ItemTipo     string `gorm:"not null;uniqueIndex:idx_aprobacion_item" json:"item_tipo"`

	Estado          string     `gorm:"not null;default:pendiente" json:"estado"`
	Observacion     *string    `gorm:"type:text" json:"observacion,omitempty"`
	AprobadorID     *uint      `json:"aprobador_id,omitempty"`
	FechaAprobacion *time.Time `json:"fecha_aprobacion,omitempty"`
}

// TableName specifies the table name for AprobacionItem model
func (AprobacionItem) TableName() string {
	return "aprobacion_items"
}

// IsValidItemTipo checks a category against the reviewable set
func IsValidItemTipo(tipo string) bool {
	for _, t := range ValidItemTipos {
		if t == tipo {
			return true
		}
	}
	return false
}

// IsValidItemEstado checks a verdict value
func IsValidItemEstado(estado string) bool {
	return estado == ItemEstadoPendiente || estado == ItemEstadoAprobado || estado == ItemEstadoRechazado
}
