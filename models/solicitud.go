package models

import (
	"time"

	"gorm.io/gorm"
)

// Solicitud lifecycle states
const (
	SolicitudEstadoBorrador           = "borrador"
	SolicitudEstadoFirmadoFuncionario = "firmado_funcionario"
	SolicitudEstadoPendiente          = "pendiente"
	SolicitudEstadoCompletado         = "completado"
	SolicitudEstadoRechazado          = "rechazado"
	SolicitudEstadoEnRevision         = "rechazado/enRevision"
)

// Solicitud is the formal request under an Expediente. It carries the
// lifecycle state and the folio SI-NNN-YYYY.
type Solicitud struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ExpedienteID uint       `gorm:"not null;index" json:"expediente_id"`
	Expediente   Expediente `gorm:"foreignKey:ExpedienteID" json:"-"`

	Folio    string `gorm:"uniqueIndex;not null" json:"folio"`
	Estado   string `gorm:"not null;default:borrador" json:"estado"`
	Sucursal string `json:"sucursal"`
	// Free-text reason given by the representative for the request
	Observacion string `gorm:"type:text" json:"observacion"`

	// Natural keys of the signing parties (upserted side entities)
	RepresentanteRUT *string `gorm:"column:representante_rut" json:"representante_rut,omitempty"`
	CausanteRUT      *string `gorm:"column:causante_rut" json:"causante_rut,omitempty"`

	FechaDefuncion      *time.Time `json:"fecha_defuncion,omitempty"`
	ComunaFallecimiento string     `json:"comuna_fallecimiento"`

	// Functionary signature
	FirmadoFuncionario    bool       `gorm:"not null;default:false" json:"firmado_funcionario"`
	FechaFirmaFuncionario *time.Time `json:"fecha_firma_funcionario,omitempty"`
	FuncionarioIDFirma    *uint      `json:"funcionario_id_firma,omitempty"`
}

// TableName specifies the table name for Solicitud model
func (Solicitud) TableName() string {
	return "solicitudes"
}

// IsPendiente reports whether the solicitud is under supervisory review
func (s *Solicitud) IsPendiente() bool {
	return s.Estado == SolicitudEstadoPendiente
}

// IsEditable reports whether correction operations (document upload,
// recalculation, field edits) are allowed in the current state
func (s *Solicitud) IsEditable() bool {
	return s.Estado == SolicitudEstadoBorrador || s.Estado == SolicitudEstadoEnRevision
}

// IsValidSolicitudEstado checks if the state is one of the lifecycle states
func IsValidSolicitudEstado(estado string) bool {
	switch estado {
	case SolicitudEstadoBorrador,
		SolicitudEstadoFirmadoFuncionario,
		SolicitudEstadoPendiente,
		SolicitudEstadoCompletado,
		SolicitudEstadoRechazado,
		SolicitudEstadoEnRevision:
		return true
	}
	return false
}
