package models

import (
	"time"
)

// Causante is the deceased person whose unpaid balance is being claimed.
// Natural key is the RUN; a repeat submission for the same RUN overwrites
// the attributes and re-parents the row to the new expediente.
type Causante struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExpedienteID uint `gorm:"not null;index" json:"expediente_id"`

	RUN             string     `gorm:"column:fal_run;uniqueIndex;not null" json:"fal_run"`
	Nacionalidad    string     `gorm:"column:fal_nacionalidad" json:"fal_nacionalidad"`
	Nombre          string     `gorm:"column:fal_nombre" json:"fal_nombre"`
	ApellidoP       string     `gorm:"column:fal_apellido_p" json:"fal_apellido_p"`
	ApellidoM       string     `gorm:"column:fal_apellido_m" json:"fal_apellido_m"`
	FechaDefuncion  *time.Time `gorm:"column:fal_fecha_defuncion" json:"fal_fecha_defuncion,omitempty"`
	ComunaDefuncion string     `gorm:"column:fal_comuna_defuncion" json:"fal_comuna_defuncion"`
	MotivoSolicitud string     `gorm:"column:motivo_solicitud;type:text" json:"motivo_solicitud"`
}

// TableName specifies the table name for Causante model
func (Causante) TableName() string {
	return "causantes"
}

// NombreCompleto returns the display name of the deceased
func (c *Causante) NombreCompleto() string {
	return joinNames(c.Nombre, c.ApellidoP, c.ApellidoM)
}
