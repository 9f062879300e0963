package services

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"saldo_insoluto_app_go/models"
)

// BeneficiarioInput is one beneficiary row of a claim submission
type BeneficiarioInput struct {
	Nombre          string `json:"nombre"`
	RUN             string `json:"run"`
	Parentesco      string `json:"parentesco"`
	EsRepresentante bool   `json:"es_representante"`
}

// CreateSolicitudInput carries the full intake payload
type CreateSolicitudInput struct {
	RepRUN       string `json:"rep_run"`
	RepCalidad   string `json:"rep_calidad"`
	RepNombre    string `json:"rep_nombre"`
	RepApellidoP string `json:"rep_apellido_p"`
	RepApellidoM string `json:"rep_apellido_m"`
	RepTelefono  string `json:"rep_telefono"`
	RepDireccion string `json:"rep_direccion"`
	RepComuna    string `json:"rep_comuna"`
	RepRegion    string `json:"rep_region"`
	RepEmail     string `json:"rep_email"`

	FalRUN             string     `json:"fal_run"`
	FalNacionalidad    string     `json:"fal_nacionalidad"`
	FalNombre          string     `json:"fal_nombre"`
	FalApellidoP       string     `json:"fal_apellido_p"`
	FalApellidoM       string     `json:"fal_apellido_m"`
	FalFechaDefuncion  *time.Time `json:"fal_fecha_defuncion"`
	FalComunaDefuncion string     `json:"fal_comuna_defuncion"`
	MotivoSolicitud    string     `json:"motivo_solicitud"`

	Sucursal      string              `json:"sucursal"`
	Beneficiarios []BeneficiarioInput `json:"beneficiarios"`
}

// CreateSolicitudResult is returned to the intake caller
type CreateSolicitudResult struct {
	ExpedienteID     uint   `json:"expediente_id"`
	ExpedienteNumero string `json:"expediente_numero"`
	SolicitudID      uint   `json:"solicitud_id"`
	Folio            string `json:"folio"`
	Estado           string `json:"estado"`
}

var folioPattern = regexp.MustCompile(`^SI-(\d{3})-(\d{4})$`)

// NextFolioSequence scans the existing folios of the given year and
// returns max+1. Read-then-write without a reservation lock: two
// concurrent intakes in the same year can compute the same number and
// collide on the folio uniqueness constraint.
func NextFolioSequence(db *gorm.DB, year int) (int, error) {
	var folios []string
	if err := db.Model(&models.Solicitud{}).
		Where("folio LIKE ?", fmt.Sprintf("SI-%%-%d", year)).
		Pluck("folio", &folios).Error; err != nil {
		return 0, fmt.Errorf("error consultando folios: %w", err)
	}

	max := 0
	for _, f := range folios {
		m := folioPattern.FindStringSubmatch(f)
		if m == nil || m[2] != strconv.Itoa(year) {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err == nil && seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// CreateSolicitud creates the whole claim group in one transaction:
// expediente, causante and representante upserts, solicitud with its
// generated folio, beneficiarios and the initial validación scaffold.
// Any failure rolls the entire group back.
func CreateSolicitud(db *gorm.DB, input CreateSolicitudInput, funcionarioID uint) (*CreateSolicitudResult, error) {
	if input.FalRUN == "" {
		return nil, models.NewValidationError("fal_run es requerido")
	}
	if input.RepRUN == "" {
		return nil, models.NewValidationError("rep_run es requerido")
	}

	var result CreateSolicitudResult
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		expediente := models.Expediente{
			ExpedienteNumero: fmt.Sprintf("EXP-%d-%s", now.Year(), now.Format("150405")),
			Estado:           models.ExpedienteEstadoEnProceso,
			Observaciones:    "Expediente de saldo insoluto creado automáticamente",
			FuncionarioID:    funcionarioID,
		}
		if err := tx.Create(&expediente).Error; err != nil {
			return fmt.Errorf("error creando expediente: %w", err)
		}

		representante := models.Representante{
			ExpedienteID: expediente.ID,
			RUT:          NormalizeRUT(input.RepRUN),
			Calidad:      input.RepCalidad,
			Nombre:       input.RepNombre,
			ApellidoP:    input.RepApellidoP,
			ApellidoM:    input.RepApellidoM,
			Telefono:     input.RepTelefono,
			Direccion:    input.RepDireccion,
			Comuna:       input.RepComuna,
			Region:       input.RepRegion,
			Email:        input.RepEmail,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "rep_rut"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"expediente_id", "rep_calidad", "rep_nombre", "rep_apellido_p",
				"rep_apellido_m", "rep_telefono", "rep_direccion", "rep_comuna",
				"rep_region", "rep_email", "updated_at",
			}),
		}).Create(&representante).Error; err != nil {
			return fmt.Errorf("error guardando representante: %w", err)
		}

		causante := models.Causante{
			ExpedienteID:    expediente.ID,
			RUN:             NormalizeRUT(input.FalRUN),
			Nacionalidad:    input.FalNacionalidad,
			Nombre:          input.FalNombre,
			ApellidoP:       input.FalApellidoP,
			ApellidoM:       input.FalApellidoM,
			FechaDefuncion:  input.FalFechaDefuncion,
			ComunaDefuncion: input.FalComunaDefuncion,
			MotivoSolicitud: input.MotivoSolicitud,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fal_run"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"expediente_id", "fal_nacionalidad", "fal_nombre", "fal_apellido_p",
				"fal_apellido_m", "fal_fecha_defuncion", "fal_comuna_defuncion",
				"motivo_solicitud", "updated_at",
			}),
		}).Create(&causante).Error; err != nil {
			return fmt.Errorf("error guardando causante: %w", err)
		}

		seq, err := NextFolioSequence(tx, now.Year())
		if err != nil {
			return err
		}
		folio := fmt.Sprintf("SI-%03d-%d", seq, now.Year())

		repRUT := representante.RUT
		causanteRUT := causante.RUN
		solicitud := models.Solicitud{
			ExpedienteID:        expediente.ID,
			Folio:               folio,
			Estado:              models.SolicitudEstadoBorrador,
			Sucursal:            input.Sucursal,
			Observacion:         input.MotivoSolicitud,
			RepresentanteRUT:    &repRUT,
			CausanteRUT:         &causanteRUT,
			FechaDefuncion:      input.FalFechaDefuncion,
			ComunaFallecimiento: input.FalComunaDefuncion,
		}
		if err := tx.Create(&solicitud).Error; err != nil {
			return fmt.Errorf("error creando solicitud: %w", err)
		}

		for _, b := range input.Beneficiarios {
			if b.Nombre == "" || b.RUN == "" {
				continue
			}
			beneficiario := models.Beneficiario{
				ExpedienteID:    expediente.ID,
				SolicitudID:     solicitud.ID,
				BenNombre:       b.Nombre,
				BenRUN:          NormalizeRUT(b.RUN),
				BenParentesco:   b.Parentesco,
				EsRepresentante: b.EsRepresentante,
			}
			if err := tx.Create(&beneficiario).Error; err != nil {
				return fmt.Errorf("error creando beneficiario: %w", err)
			}
		}

		validacion := models.Validacion{
			ExpedienteID: expediente.ID,
			SolicitudID:  solicitud.ID,
			ValSucursal:  input.Sucursal,
			ValEstado:    "pendiente",
		}
		if err := tx.Create(&validacion).Error; err != nil {
			return fmt.Errorf("error creando validación: %w", err)
		}

		result = CreateSolicitudResult{
			ExpedienteID:     expediente.ID,
			ExpedienteNumero: expediente.ExpedienteNumero,
			SolicitudID:      solicitud.ID,
			Folio:            folio,
			Estado:           solicitud.Estado,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadinessResult reports why the readiness check did or did not
// advance the solicitud to pendiente
type ReadinessResult struct {
	Ready                 bool   `json:"ready"`
	Transitioned          bool   `json:"transitioned"`
	Reason                string `json:"reason,omitempty"`
	TotalBeneficiarios    int64  `json:"total_beneficiarios"`
	BeneficiariosFirmados int64  `json:"beneficiarios_firmados"`
}

// CheckReadiness is the single fan-in point for "claim is ready for
// supervisory review". It advances the solicitud to pendiente iff the
// funcionario has signed, every beneficiario of the expediente has a
// matching signature record and an active cálculo exists. Idempotent
// and safe to call redundantly from every signature and calculation
// call site; it never regresses pendiente or completado.
func CheckReadiness(db *gorm.DB, expedienteID, solicitudID uint) (*ReadinessResult, error) {
	result := &ReadinessResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		var solicitud models.Solicitud
		if err := tx.First(&solicitud, solicitudID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
			}
			return fmt.Errorf("error consultando solicitud: %w", err)
		}

		if !solicitud.FirmadoFuncionario {
			result.Reason = "funcionario aún no ha firmado"
			return nil
		}

		total, firmados, err := CountFirmasBeneficiarios(tx, expedienteID)
		if err != nil {
			return err
		}
		result.TotalBeneficiarios = total
		result.BeneficiariosFirmados = firmados
		if total > 0 && firmados < total {
			result.Reason = fmt.Sprintf("faltan firmas de beneficiarios (%d/%d)", firmados, total)
			return nil
		}

		var calculo models.CalculoSaldoInsoluto
		err = tx.Where("expediente_id = ? AND estado IN ?", expedienteID,
			[]string{models.CalculoEstadoPendiente, models.CalculoEstadoAprobado}).
			Order("fecha_calculo DESC, id DESC").
			First(&calculo).Error
		if err == gorm.ErrRecordNotFound {
			result.Reason = "no existe cálculo de saldo insoluto activo"
			return nil
		}
		if err != nil {
			return fmt.Errorf("error consultando cálculo: %w", err)
		}

		result.Ready = true

		res := tx.Model(&models.Solicitud{}).
			Where("id = ? AND estado NOT IN ?", solicitudID,
				[]string{models.SolicitudEstadoPendiente, models.SolicitudEstadoCompletado}).
			Update("estado", models.SolicitudEstadoPendiente)
		if res.Error != nil {
			return fmt.Errorf("error actualizando estado: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			result.Transitioned = true
			log.Printf("Solicitud %d actualizada de '%s' a 'pendiente'", solicitudID, solicitud.Estado)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResubmitSolicitud moves a corrected solicitud back to review
// (rechazado/enRevision -> pendiente) and resets every rechazado
// aprobación item to pendiente clearing its observación. Aprobado
// items are untouched so the supervisor re-reviews only what changed.
// Returns how many items were reset.
func ResubmitSolicitud(db *gorm.DB, solicitudID uint) (int64, error) {
	var reset int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var solicitud models.Solicitud
		if err := tx.First(&solicitud, solicitudID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
			}
			return fmt.Errorf("error consultando solicitud: %w", err)
		}
		if solicitud.Estado != models.SolicitudEstadoEnRevision {
			return models.NewStateError("solo una solicitud en estado '%s' puede reenviarse (estado actual: '%s')",
				models.SolicitudEstadoEnRevision, solicitud.Estado)
		}

		if err := tx.Model(&models.Solicitud{}).Where("id = ?", solicitudID).
			Update("estado", models.SolicitudEstadoPendiente).Error; err != nil {
			return fmt.Errorf("error actualizando estado: %w", err)
		}

		res := tx.Model(&models.AprobacionItem{}).
			Where("solicitud_id = ? AND estado = ?", solicitudID, models.ItemEstadoRechazado).
			Updates(map[string]interface{}{
				"estado":      models.ItemEstadoPendiente,
				"observacion": nil,
			})
		if res.Error != nil {
			return fmt.Errorf("error reiniciando items rechazados: %w", res.Error)
		}
		reset = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reset, nil
}

// SendToReview moves a plain rechazado solicitud into the correction
// window (rechazado -> rechazado/enRevision). Items are not touched.
func SendToReview(db *gorm.DB, solicitudID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var solicitud models.Solicitud
		if err := tx.First(&solicitud, solicitudID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
			}
			return fmt.Errorf("error consultando solicitud: %w", err)
		}
		if solicitud.Estado != models.SolicitudEstadoRechazado {
			return models.NewStateError("solo una solicitud en estado '%s' puede enviarse a revisión (estado actual: '%s')",
				models.SolicitudEstadoRechazado, solicitud.Estado)
		}
		return tx.Model(&models.Solicitud{}).Where("id = ?", solicitudID).
			Update("estado", models.SolicitudEstadoEnRevision).Error
	})
}

// RequireNotPendiente rejects correction operations while the solicitud
// is under supervisory review
func RequireNotPendiente(db *gorm.DB, solicitudID uint) (*models.Solicitud, error) {
	var solicitud models.Solicitud
	if err := db.First(&solicitud, solicitudID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
		}
		return nil, fmt.Errorf("error consultando solicitud: %w", err)
	}
	if solicitud.Estado == models.SolicitudEstadoPendiente {
		return nil, models.NewStateError("operación no permitida mientras la solicitud está pendiente de revisión")
	}
	return &solicitud, nil
}

// ExpedienteCompleto aggregates everything a reviewer needs in one read
type ExpedienteCompleto struct {
	Expediente    models.Expediente               `json:"expediente"`
	Causante      *models.Causante                `json:"causante,omitempty"`
	Representante *models.Representante           `json:"representante,omitempty"`
	Solicitudes   []models.Solicitud              `json:"solicitudes"`
	Beneficiarios []models.Beneficiario           `json:"beneficiarios"`
	Documentos    []models.DocumentoSaldoInsoluto `json:"documentos"`
	Calculo       *models.CalculoSaldoInsoluto    `json:"calculo,omitempty"`
}

// GetExpedienteCompleto loads the expediente with all its children
func GetExpedienteCompleto(db *gorm.DB, expedienteID uint) (*ExpedienteCompleto, error) {
	var expediente models.Expediente
	if err := db.First(&expediente, expedienteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("expediente %d no encontrado", expedienteID)
		}
		return nil, fmt.Errorf("error consultando expediente: %w", err)
	}

	out := &ExpedienteCompleto{Expediente: expediente}

	var causante models.Causante
	if err := db.Where("expediente_id = ?", expedienteID).First(&causante).Error; err == nil {
		out.Causante = &causante
	}
	var representante models.Representante
	if err := db.Where("expediente_id = ?", expedienteID).First(&representante).Error; err == nil {
		out.Representante = &representante
	}
	if err := db.Where("expediente_id = ?", expedienteID).Order("id").Find(&out.Solicitudes).Error; err != nil {
		return nil, fmt.Errorf("error consultando solicitudes: %w", err)
	}
	if err := db.Where("expediente_id = ?", expedienteID).Order("id").Find(&out.Beneficiarios).Error; err != nil {
		return nil, fmt.Errorf("error consultando beneficiarios: %w", err)
	}
	if err := db.Select("id", "expediente_id", "solicitud_id", "doc_tipo_id", "doc_nombre_archivo",
		"doc_mime_type", "doc_tamano_bytes", "doc_sha256", "doc_estado", "doc_observaciones", "doc_fecha_subida").
		Where("expediente_id = ?", expedienteID).
		Order("doc_fecha_subida DESC").Find(&out.Documentos).Error; err != nil {
		return nil, fmt.Errorf("error consultando documentos: %w", err)
	}
	if calculo, err := GetCalculoActivo(db, expedienteID); err == nil && calculo != nil {
		out.Calculo = calculo
	}
	return out, nil
}

// BuscarPorRUTCausante finds every expediente whose causante matches
// the given RUT. The RUT only gets the loose format check here.
func BuscarPorRUTCausante(db *gorm.DB, rut string) ([]ExpedienteCompleto, error) {
	if err := CheckRUTFormat(rut); err != nil {
		return nil, models.NewValidationError("%s", err.Error())
	}

	var causantes []models.Causante
	if err := db.Where("fal_run = ?", NormalizeRUT(rut)).Find(&causantes).Error; err != nil {
		return nil, fmt.Errorf("error buscando causante: %w", err)
	}

	resultados := make([]ExpedienteCompleto, 0, len(causantes))
	for _, c := range causantes {
		completo, err := GetExpedienteCompleto(db, c.ExpedienteID)
		if err != nil {
			continue
		}
		resultados = append(resultados, *completo)
	}
	return resultados, nil
}

// SolicitudResumen is one row of the review worklists
type SolicitudResumen struct {
	SolicitudID      uint      `json:"solicitud_id"`
	ExpedienteID     uint      `json:"expediente_id"`
	ExpedienteNumero string    `json:"expediente_numero"`
	Folio            string    `json:"folio"`
	Estado           string    `json:"estado"`
	Sucursal         string    `json:"sucursal"`
	CausanteNombre   string    `json:"causante_nombre"`
	CausanteRUT      string    `json:"causante_rut"`
	FechaCreacion    time.Time `json:"fecha_creacion"`
}

// SolicitudesPendientes lists solicitudes for the supervisor worklist.
// estado defaults to pendiente; sucursal filters when non-empty.
func SolicitudesPendientes(db *gorm.DB, estado, sucursal string) ([]SolicitudResumen, error) {
	if estado == "" {
		estado = models.SolicitudEstadoPendiente
	}
	query := db.Table("solicitudes s").
		Select("s.id AS solicitud_id, s.expediente_id, e.expediente_numero, s.folio, s.estado, s.sucursal, "+
			"COALESCE(c.fal_nombre || ' ' || c.fal_apellido_p, '') AS causante_nombre, "+
			"COALESCE(c.fal_run, '') AS causante_rut, s.created_at AS fecha_creacion").
		Joins("JOIN expedientes e ON e.id = s.expediente_id").
		Joins("LEFT JOIN causantes c ON c.expediente_id = e.id").
		Where("s.estado = ?", estado)
	if sucursal != "" {
		query = query.Where("s.sucursal = ?", sucursal)
	}

	var rows []SolicitudResumen
	if err := query.Order("s.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error consultando solicitudes pendientes: %w", err)
	}
	return rows, nil
}

// SolicitudesRechazadas lists the funcionario's own solicitudes that
// were sent back for correction
func SolicitudesRechazadas(db *gorm.DB, funcionarioID uint) ([]SolicitudResumen, error) {
	var rows []SolicitudResumen
	err := db.Table("solicitudes s").
		Select("s.id AS solicitud_id, s.expediente_id, e.expediente_numero, s.folio, s.estado, s.sucursal, "+
			"COALESCE(c.fal_nombre || ' ' || c.fal_apellido_p, '') AS causante_nombre, "+
			"COALESCE(c.fal_run, '') AS causante_rut, s.created_at AS fecha_creacion").
		Joins("JOIN expedientes e ON e.id = s.expediente_id").
		Joins("LEFT JOIN causantes c ON c.expediente_id = e.id").
		Where("e.funcionario_id = ? AND s.estado IN ?", funcionarioID,
			[]string{models.SolicitudEstadoRechazado, models.SolicitudEstadoEnRevision}).
		Order("s.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error consultando solicitudes rechazadas: %w", err)
	}
	return rows, nil
}
