package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"saldo_insoluto_app_go/models"
)

// SetItemVerdictInput is one supervisory verdict over a review category
type SetItemVerdictInput struct {
	ItemTipo    string `json:"item_tipo"`
	Estado      string `json:"estado"`
	Observacion string `json:"observacion"`
}

// SetItemVerdict upserts the (expediente, solicitud, item_tipo) verdict
// row. Rejecting requires an observación and moves a pendiente
// solicitud to rechazado/enRevision; an already reopened solicitud
// stays put. Re-approving a category does not restore pendiente.
func SetItemVerdict(db *gorm.DB, solicitudID, aprobadorID uint, input SetItemVerdictInput) (*models.AprobacionItem, error) {
	if !models.IsValidItemTipo(input.ItemTipo) {
		return nil, models.NewValidationError("item_tipo '%s' no es válido", input.ItemTipo)
	}
	if input.Estado != models.ItemEstadoAprobado && input.Estado != models.ItemEstadoRechazado {
		return nil, models.NewValidationError("estado debe ser '%s' o '%s'",
			models.ItemEstadoAprobado, models.ItemEstadoRechazado)
	}
	if input.Estado == models.ItemEstadoRechazado && strings.TrimSpace(input.Observacion) == "" {
		return nil, models.NewValidationError("observación es requerida al rechazar un ítem")
	}

	var item models.AprobacionItem
	err := db.Transaction(func(tx *gorm.DB) error {
		var solicitud models.Solicitud
		if err := tx.First(&solicitud, solicitudID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
			}
			return fmt.Errorf("error consultando solicitud: %w", err)
		}

		now := time.Now()
		var obs *string
		if input.Observacion != "" {
			obs = &input.Observacion
		}
		item = models.AprobacionItem{
			ExpedienteID:    solicitud.ExpedienteID,
			SolicitudID:     solicitudID,
			ItemTipo:        input.ItemTipo,
			Estado:          input.Estado,
			Observacion:     obs,
			AprobadorID:     &aprobadorID,
			FechaAprobacion: &now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "expediente_id"}, {Name: "solicitud_id"}, {Name: "item_tipo"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"estado", "observacion", "aprobador_id", "fecha_aprobacion", "updated_at",
			}),
		}).Create(&item).Error; err != nil {
			return fmt.Errorf("error guardando item de aprobación: %w", err)
		}

		if input.Estado == models.ItemEstadoRechazado &&
			solicitud.Estado == models.SolicitudEstadoPendiente {
			if err := tx.Model(&models.Solicitud{}).Where("id = ?", solicitudID).
				Update("estado", models.SolicitudEstadoEnRevision).Error; err != nil {
				return fmt.Errorf("error actualizando estado de solicitud: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItems returns the solicitud's verdicts keyed by category. Absent
// categories simply have no entry; callers default them to "not yet
// reviewed".
func GetItems(db *gorm.DB, solicitudID uint) (map[string]models.AprobacionItem, error) {
	var items []models.AprobacionItem
	if err := db.Where("solicitud_id = ?", solicitudID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("error consultando items de aprobación: %w", err)
	}
	out := make(map[string]models.AprobacionItem, len(items))
	for _, it := range items {
		out[it.ItemTipo] = it
	}
	return out, nil
}

// ApproveSolicitudResult reports the completion outcome
type ApproveSolicitudResult struct {
	SolicitudID    uint     `json:"solicitud_id"`
	Estado         string   `json:"estado"`
	ItemsFaltantes []string `json:"items_faltantes,omitempty"`
}

// ApproveSolicitud marks the solicitud completada when every required
// category is aprobado. Otherwise it fails naming exactly the missing
// categories. On success the expediente's active cálculo is marked
// aprobado as well.
func ApproveSolicitud(db *gorm.DB, solicitudID uint) (*ApproveSolicitudResult, error) {
	result := &ApproveSolicitudResult{SolicitudID: solicitudID}
	err := db.Transaction(func(tx *gorm.DB) error {
		var solicitud models.Solicitud
		if err := tx.First(&solicitud, solicitudID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
			}
			return fmt.Errorf("error consultando solicitud: %w", err)
		}
		if solicitud.Estado != models.SolicitudEstadoPendiente &&
			solicitud.Estado != models.SolicitudEstadoEnRevision {
			return models.NewStateError("la solicitud debe estar pendiente o en revisión para aprobarse (estado actual: '%s')",
				solicitud.Estado)
		}

		var items []models.AprobacionItem
		if err := tx.Where("solicitud_id = ? AND estado = ?", solicitudID,
			models.ItemEstadoAprobado).Find(&items).Error; err != nil {
			return fmt.Errorf("error consultando items: %w", err)
		}
		aprobados := make(map[string]bool, len(items))
		for _, it := range items {
			aprobados[it.ItemTipo] = true
		}

		var faltantes []string
		for _, tipo := range models.RequiredItemTipos {
			if !aprobados[tipo] {
				faltantes = append(faltantes, tipo)
			}
		}
		if len(faltantes) > 0 {
			result.ItemsFaltantes = faltantes
			return models.NewStateError("faltan items por aprobar: %s", strings.Join(faltantes, ", "))
		}

		if err := tx.Model(&models.Solicitud{}).Where("id = ?", solicitudID).
			Update("estado", models.SolicitudEstadoCompletado).Error; err != nil {
			return fmt.Errorf("error completando solicitud: %w", err)
		}
		if err := tx.Model(&models.CalculoSaldoInsoluto{}).
			Where("expediente_id = ? AND estado = ?", solicitud.ExpedienteID,
				models.CalculoEstadoPendiente).
			Update("estado", models.CalculoEstadoAprobado).Error; err != nil {
			return fmt.Errorf("error aprobando cálculo: %w", err)
		}

		result.Estado = models.SolicitudEstadoCompletado
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
