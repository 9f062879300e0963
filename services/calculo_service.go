package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"saldo_insoluto_app_go/models"
)

// BeneficioInput is one benefit line of a calculation submission
type BeneficioInput struct {
	Codigo string  `json:"codigo"`
	Nombre string  `json:"nombre"`
	Monto  float64 `json:"monto"`
}

// GuardarCalculoInput carries a calculation submission
type GuardarCalculoInput struct {
	ExpedienteID uint             `json:"expediente_id"`
	SolicitudID  uint             `json:"solicitud_id"`
	Beneficios   []BeneficioInput `json:"beneficios"`
	Total        float64          `json:"total"`
}

// GuardarCalculoResult reports the stored cálculo and whether the
// readiness check advanced the solicitud
type GuardarCalculoResult struct {
	CalculoID         uint    `json:"calculo_id"`
	ExpedienteID      uint    `json:"expediente_id"`
	Total             float64 `json:"total"`
	EstadoActualizado bool    `json:"estado_actualizado"`
}

// GuardarCalculo stores or replaces the benefit calculation for an
// expediente. Blocked while the solicitud is pendiente. If an active
// cálculo already exists, only a solicitud in rechazado/enRevision may
// recalculate; the existing row is then updated in place and its
// detalle lines fully replaced.
func GuardarCalculo(db *gorm.DB, input GuardarCalculoInput, funcionarioID uint) (*GuardarCalculoResult, error) {
	if input.ExpedienteID == 0 || len(input.Beneficios) == 0 || input.Total == 0 {
		return nil, models.NewValidationError("datos incompletos")
	}

	result := &GuardarCalculoResult{ExpedienteID: input.ExpedienteID, Total: input.Total}
	err := db.Transaction(func(tx *gorm.DB) error {
		if input.SolicitudID != 0 {
			var solicitud models.Solicitud
			if err := tx.First(&solicitud, input.SolicitudID).Error; err == nil &&
				solicitud.Estado == models.SolicitudEstadoPendiente {
				return models.NewStateError("no se puede calcular o recalcular el saldo insoluto de un expediente en revisión de jefatura")
			}
		}

		var existente models.CalculoSaldoInsoluto
		err := tx.Where("expediente_id = ? AND estado IN ?", input.ExpedienteID,
			[]string{models.CalculoEstadoPendiente, models.CalculoEstadoAprobado}).
			Order("fecha_calculo DESC").
			First(&existente).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return fmt.Errorf("error consultando cálculo existente: %w", err)
		}
		hayActivo := err == nil

		if hayActivo {
			var ultima models.Solicitud
			err := tx.Where("expediente_id = ?", input.ExpedienteID).
				Order("id DESC").First(&ultima).Error
			if err != nil || ultima.Estado != models.SolicitudEstadoEnRevision {
				return models.NewStateError("ya existe un cálculo %s para este expediente; solo se puede recalcular si la solicitud fue rechazada", existente.Estado)
			}

			if err := tx.Model(&models.CalculoSaldoInsoluto{}).Where("id = ?", existente.ID).
				Updates(map[string]interface{}{
					"total_calculado": input.Total,
					"funcionario_id":  funcionarioID,
					"estado":          models.CalculoEstadoPendiente,
					"fecha_calculo":   time.Now(),
				}).Error; err != nil {
				return fmt.Errorf("error actualizando cálculo: %w", err)
			}
			if err := tx.Where("calculo_id = ?", existente.ID).
				Delete(&models.DetalleCalculoSaldo{}).Error; err != nil {
				return fmt.Errorf("error eliminando detalles antiguos: %w", err)
			}
			result.CalculoID = existente.ID
		} else {
			calculo := models.CalculoSaldoInsoluto{
				ExpedienteID:   input.ExpedienteID,
				SolicitudID:    input.SolicitudID,
				TotalCalculado: input.Total,
				FuncionarioID:  funcionarioID,
				Estado:         models.CalculoEstadoPendiente,
				FechaCalculo:   time.Now(),
			}
			if err := tx.Create(&calculo).Error; err != nil {
				return fmt.Errorf("error creando cálculo: %w", err)
			}
			result.CalculoID = calculo.ID
		}

		for _, b := range input.Beneficios {
			detalle := models.DetalleCalculoSaldo{
				CalculoID:            result.CalculoID,
				CodigoBeneficio:      b.Codigo,
				DescripcionBeneficio: b.Nombre,
				Monto:                b.Monto,
			}
			if err := tx.Create(&detalle).Error; err != nil {
				return fmt.Errorf("error creando detalle: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.SolicitudID != 0 {
		readiness, err := CheckReadiness(db, input.ExpedienteID, input.SolicitudID)
		if err != nil {
			log.Printf("[WARNING] Error verificando estado pendiente: %v", err)
		} else {
			result.EstadoActualizado = readiness.Transitioned
		}
	}
	return result, nil
}

// GetCalculoActivo returns the expediente's active cálculo (pendiente
// or aprobado), or nil when none exists
func GetCalculoActivo(db *gorm.DB, expedienteID uint) (*models.CalculoSaldoInsoluto, error) {
	var calculo models.CalculoSaldoInsoluto
	err := db.Where("expediente_id = ? AND estado IN ?", expedienteID,
		[]string{models.CalculoEstadoPendiente, models.CalculoEstadoAprobado}).
		Order("fecha_calculo DESC, id DESC").
		First(&calculo).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando cálculo: %w", err)
	}
	return &calculo, nil
}

// CalculoCompleto is the active cálculo with its detalle lines and the
// name of the funcionario who computed it
type CalculoCompleto struct {
	Calculo           models.CalculoSaldoInsoluto  `json:"calculo"`
	Detalles          []models.DetalleCalculoSaldo `json:"detalles"`
	FuncionarioNombre string                       `json:"funcionario_nombre"`
}

// GetCalculoCompleto loads the active cálculo with detalles
func GetCalculoCompleto(db *gorm.DB, expedienteID uint) (*CalculoCompleto, error) {
	calculo, err := GetCalculoActivo(db, expedienteID)
	if err != nil {
		return nil, err
	}
	if calculo == nil {
		return nil, models.NewNotFoundError("no existe cálculo para el expediente %d", expedienteID)
	}

	out := &CalculoCompleto{Calculo: *calculo}
	if err := db.Where("calculo_id = ?", calculo.ID).Order("id").Find(&out.Detalles).Error; err != nil {
		return nil, fmt.Errorf("error consultando detalles: %w", err)
	}

	var funcionario models.Funcionario
	if err := db.First(&funcionario, calculo.FuncionarioID).Error; err == nil {
		out.FuncionarioNombre = funcionario.NombreCompleto()
	}
	return out, nil
}
