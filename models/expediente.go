package models

import (
	"time"

	"gorm.io/gorm"
)

// Expediente status constants
const (
	ExpedienteEstadoEnProceso = "en_proceso"
)

// Expediente is the aggregation root for a single saldo insoluto case.
// It owns the causante, representante, solicitudes, beneficiarios,
// documentos and cálculos; deleting it cascades to all of them.
type Expediente struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"fecha_creacion"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ExpedienteNumero string `gorm:"uniqueIndex;not null" json:"expediente_numero"`
	Estado           string `gorm:"not null;default:en_proceso" json:"estado"`
	Observaciones    string `gorm:"type:text" json:"observaciones"`

	FuncionarioID uint        `gorm:"not null;index" json:"funcionario_id"`
	Funcionario   Funcionario `gorm:"foreignKey:FuncionarioID" json:"funcionario,omitempty"`

	// Relationships
	Solicitudes   []Solicitud              `gorm:"foreignKey:ExpedienteID;constraint:OnDelete:CASCADE" json:"solicitudes,omitempty"`
	Beneficiarios []Beneficiario           `gorm:"foreignKey:ExpedienteID;constraint:OnDelete:CASCADE" json:"beneficiarios,omitempty"`
	Documentos    []DocumentoSaldoInsoluto `gorm:"foreignKey:ExpedienteID;constraint:OnDelete:CASCADE" json:"documentos,omitempty"`
}

// TableName specifies the table name for Expediente model
func (Expediente) TableName() string {
	return "expedientes"
}
