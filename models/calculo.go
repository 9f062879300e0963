package models

import (
	"time"
)

// Calculo states
const (
	CalculoEstadoPendiente = "pendiente"
	CalculoEstadoAprobado  = "aprobado"
	CalculoEstadoRechazado = "rechazado"
)

// CalculoSaldoInsoluto is the benefit calculation for an expediente.
// At most one active row (pendiente or aprobado) may exist per
// expediente at a time; recalculation while the solicitud is in
// revision updates the row in place and replaces its detalles.
type CalculoSaldoInsoluto struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExpedienteID uint `gorm:"not null;index" json:"expediente_id"`
	SolicitudID  uint `gorm:"not null;index" json:"solicitud_id"`

	TotalCalculado float64   `gorm:"not null" json:"total_calculado"`
	FuncionarioID  uint      `gorm:"not null" json:"funcionario_id"`
	Estado         string    `gorm:"not null;default:pendiente" json:"estado"`
	FechaCalculo   time.Time `json:"fecha_calculo"`

	Detalles []DetalleCalculoSaldo `gorm:"foreignKey:CalculoID;constraint:OnDelete:CASCADE" json:"detalles,omitempty"`
}

// TableName specifies the table name for CalculoSaldoInsoluto model
func (CalculoSaldoInsoluto) TableName() string {
	return "calculo_saldo_insoluto"
}

// IsActivo reports whether this cálculo counts against the
// one-active-per-expediente rule
func (c *CalculoSaldoInsoluto) IsActivo() bool {
	return c.Estado == CalculoEstadoPendiente || c.Estado == CalculoEstadoAprobado
}

// DetalleCalculoSaldo is one benefit line of a cálculo. Lines are fully
// replaced (delete all, reinsert) on recalculation.
type DetalleCalculoSaldo struct {
	ID uint `gorm:"primarykey" json:"id"`

	CalculoID uint `gorm:"not null;index" json:"calculo_id"`

	CodigoBeneficio      string  `gorm:"not null" json:"codigo_beneficio"`
	DescripcionBeneficio string  `json:"descripcion_beneficio"`
	Monto                float64 `gorm:"not null" json:"monto"`
}

// TableName specifies the table name for DetalleCalculoSaldo model
func (DetalleCalculoSaldo) TableName() string {
	return "detalle_calculo_saldo"
}
