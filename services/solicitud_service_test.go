package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"saldo_insoluto_app_go/models"
)

func setupSolicitudTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Funcionario{},
		&models.Expediente{},
		&models.Solicitud{},
		&models.Causante{},
		&models.Representante{},
		&models.Beneficiario{},
		&models.UsuarioFirma{},
		&models.Validacion{},
		&models.CalculoSaldoInsoluto{},
		&models.DetalleCalculoSaldo{},
		&models.AprobacionItem{},
		&models.DocumentoSaldoInsoluto{},
	))
	return db
}

// renombrarExpediente sidesteps the second-resolution expediente_numero
// collision when a test creates two solicitudes within the same second
func renombrarExpediente(t *testing.T, db *gorm.DB, expedienteID uint) {
	t.Helper()
	require.NoError(t, db.Model(&models.Expediente{}).Where("id = ?", expedienteID).
		Update("expediente_numero", fmt.Sprintf("EXP-test-%d", expedienteID)).Error)
}

func crearFuncionarioTest(t *testing.T, db *gorm.DB, rut, email string) *models.Funcionario {
	t.Helper()
	funcionario := &models.Funcionario{
		RUT:          rut,
		Nombres:      "Ana María",
		ApellidoP:    "Rojas",
		Email:        email,
		PasswordHash: "x",
		Rol:          models.RolEjecutivoPlataforma,
		Sucursal:     "providencia",
		Activo:       true,
	}
	require.NoError(t, db.Create(funcionario).Error)
	return funcionario
}

func intakeBase(benRUNs ...string) CreateSolicitudInput {
	fecha := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	input := CreateSolicitudInput{
		RepRUN:             "12.345.678-5",
		RepCalidad:         "Cónyuge",
		RepNombre:          "Carmen",
		RepApellidoP:       "Soto",
		RepApellidoM:       "Vera",
		RepTelefono:        "+56911112222",
		RepDireccion:       "Av. Providencia 1234",
		RepComuna:          "Providencia",
		RepRegion:          "Metropolitana",
		RepEmail:           "carmen@example.cl",
		FalRUN:             "7.775.777-5",
		FalNacionalidad:    "chilena",
		FalNombre:          "Pedro",
		FalApellidoP:       "Soto",
		FalApellidoM:       "Díaz",
		FalFechaDefuncion:  &fecha,
		FalComunaDefuncion: "Ñuñoa",
		MotivoSolicitud:    "Pensión devengada y no cobrada",
		Sucursal:           "providencia",
	}
	for i, run := range benRUNs {
		input.Beneficiarios = append(input.Beneficiarios, BeneficiarioInput{
			Nombre:     fmt.Sprintf("Beneficiario %d", i+1),
			RUN:        run,
			Parentesco: "hijo",
		})
	}
	return input
}

func TestNextFolioSequence(t *testing.T) {
	db := setupSolicitudTestDB(t)

	seq, err := NextFolioSequence(db, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	for i, folio := range []string{"SI-001-2026", "SI-007-2026", "SI-003-2025", "OTRO-099-2026"} {
		require.NoError(t, db.Create(&models.Solicitud{
			ExpedienteID: uint(i + 1),
			Folio:        folio,
			Estado:       models.SolicitudEstadoBorrador,
		}).Error)
	}

	seq, err = NextFolioSequence(db, 2026)
	require.NoError(t, err)
	assert.Equal(t, 8, seq, "continúa desde el máximo del año, ignorando folios de otro formato")

	seq, err = NextFolioSequence(db, 2025)
	require.NoError(t, err)
	assert.Equal(t, 4, seq, "la numeración es independiente por año")
}

func TestCreateSolicitud(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K", "10.000.004-0"), funcionario.ID)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("SI-001-%d", time.Now().Year()), result.Folio)
	assert.Equal(t, models.SolicitudEstadoBorrador, result.Estado)
	assert.NotZero(t, result.ExpedienteID)
	assert.Contains(t, result.ExpedienteNumero, fmt.Sprintf("EXP-%d-", time.Now().Year()))

	var causante models.Causante
	require.NoError(t, db.Where("expediente_id = ?", result.ExpedienteID).First(&causante).Error)
	assert.Equal(t, "77757775", causante.RUN)

	var representante models.Representante
	require.NoError(t, db.Where("expediente_id = ?", result.ExpedienteID).First(&representante).Error)
	assert.Equal(t, "123456785", representante.RUT)

	var beneficiarios []models.Beneficiario
	require.NoError(t, db.Where("expediente_id = ?", result.ExpedienteID).Find(&beneficiarios).Error)
	require.Len(t, beneficiarios, 2)
	assert.Equal(t, "20000003K", beneficiarios[0].BenRUN)

	var validacion models.Validacion
	require.NoError(t, db.Where("solicitud_id = ?", result.SolicitudID).First(&validacion).Error)
	assert.Equal(t, "pendiente", validacion.ValEstado)
	assert.Equal(t, "providencia", validacion.ValSucursal)

	// second intake the same year continues the sequence
	renombrarExpediente(t, db, result.ExpedienteID)
	segundo, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SI-002-%d", time.Now().Year()), segundo.Folio)
}

func TestCreateSolicitudRequiereRUTs(t *testing.T) {
	db := setupSolicitudTestDB(t)

	input := intakeBase()
	input.FalRUN = ""
	_, err := CreateSolicitud(db, input, 1)
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	input = intakeBase()
	input.RepRUN = ""
	_, err = CreateSolicitud(db, input, 1)
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateSolicitudUpsertRepresentante(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	primero, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	renombrarExpediente(t, db, primero.ExpedienteID)
	segundo := intakeBase()
	segundo.RepTelefono = "+56933334444"
	segundoResult, err := CreateSolicitud(db, segundo, funcionario.ID)
	require.NoError(t, err)
	require.NotEqual(t, primero.ExpedienteID, segundoResult.ExpedienteID)

	var count int64
	require.NoError(t, db.Model(&models.Representante{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "el representante se reutiliza por RUT")

	var representante models.Representante
	require.NoError(t, db.First(&representante).Error)
	assert.Equal(t, "+56933334444", representante.Telefono)
	assert.Equal(t, segundoResult.ExpedienteID, representante.ExpedienteID,
		"el upsert re-asigna el representante al expediente nuevo")
}

func TestCheckReadinessFlujoCompleto(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K", "10.000.004-0"), funcionario.ID)
	require.NoError(t, err)

	// nothing signed yet
	readiness, err := CheckReadiness(db, result.ExpedienteID, result.SolicitudID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Contains(t, readiness.Reason, "funcionario")

	// funcionario signs
	readiness, err = FirmarSolicitudFuncionarioDirecto(db, result.SolicitudID, funcionario.ID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, int64(2), readiness.TotalBeneficiarios)
	assert.Equal(t, int64(0), readiness.BeneficiariosFirmados)

	// first beneficiary signs; lowercase verifier still matches
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003k"}).Error)
	readiness, err = CheckReadiness(db, result.ExpedienteID, result.SolicitudID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, int64(1), readiness.BeneficiariosFirmados)

	// second beneficiary signs
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "100000040"}).Error)
	readiness, err = CheckReadiness(db, result.ExpedienteID, result.SolicitudID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Contains(t, readiness.Reason, "cálculo")

	// calculation closes the gate
	calcResult, err := GuardarCalculo(db, GuardarCalculoInput{
		ExpedienteID: result.ExpedienteID,
		SolicitudID:  result.SolicitudID,
		Beneficios:   []BeneficioInput{{Codigo: "PB", Nombre: "Pensión básica", Monto: 150000}},
		Total:        150000,
	}, funcionario.ID)
	require.NoError(t, err)
	assert.True(t, calcResult.EstadoActualizado)

	var solicitud models.Solicitud
	require.NoError(t, db.First(&solicitud, result.SolicitudID).Error)
	assert.Equal(t, models.SolicitudEstadoPendiente, solicitud.Estado)

	// idempotent: a redundant check neither fails nor re-transitions
	readiness, err = CheckReadiness(db, result.ExpedienteID, result.SolicitudID)
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
	assert.False(t, readiness.Transitioned)
}

func TestCheckReadinessSinBeneficiarios(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	_, err = FirmarSolicitudFuncionarioDirecto(db, result.SolicitudID, funcionario.ID)
	require.NoError(t, err)
	_, err = GuardarCalculo(db, GuardarCalculoInput{
		ExpedienteID: result.ExpedienteID,
		SolicitudID:  result.SolicitudID,
		Beneficios:   []BeneficioInput{{Codigo: "PB", Monto: 90000}},
		Total:        90000,
	}, funcionario.ID)
	require.NoError(t, err)

	readiness, err := CheckReadiness(db, result.ExpedienteID, result.SolicitudID)
	require.NoError(t, err)
	assert.True(t, readiness.Ready, "sin beneficiarios la condición de firmas se cumple trivialmente")
}

func TestCheckReadinessNoRegresaCompletado(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)
	_, err = FirmarSolicitudFuncionarioDirecto(db, result.SolicitudID, funcionario.ID)
	require.NoError(t, err)
	_, err = GuardarCalculo(db, GuardarCalculoInput{
		ExpedienteID: result.ExpedienteID,
		SolicitudID:  result.SolicitudID,
		Beneficios:   []BeneficioInput{{Codigo: "PB", Monto: 90000}},
		Total:        90000,
	}, funcionario.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Solicitud{}).Where("id = ?", result.SolicitudID).
		Update("estado", models.SolicitudEstadoCompletado).Error)

	readiness, err := CheckReadiness(db, result.ExpedienteID, result.SolicitudID)
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
	assert.False(t, readiness.Transitioned)

	var solicitud models.Solicitud
	require.NoError(t, db.First(&solicitud, result.SolicitudID).Error)
	assert.Equal(t, models.SolicitudEstadoCompletado, solicitud.Estado)
}

func TestSendToReviewYResubmit(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	// enviar only applies to rechazado
	err = SendToReview(db, result.SolicitudID)
	var stateErr *models.StateError
	assert.ErrorAs(t, err, &stateErr)

	require.NoError(t, db.Model(&models.Solicitud{}).Where("id = ?", result.SolicitudID).
		Update("estado", models.SolicitudEstadoRechazado).Error)
	require.NoError(t, SendToReview(db, result.SolicitudID))

	var solicitud models.Solicitud
	require.NoError(t, db.First(&solicitud, result.SolicitudID).Error)
	assert.Equal(t, models.SolicitudEstadoEnRevision, solicitud.Estado)

	obs := "falta certificado"
	require.NoError(t, db.Create(&models.AprobacionItem{
		ExpedienteID: result.ExpedienteID,
		SolicitudID:  result.SolicitudID,
		ItemTipo:     models.ItemTipoCausante,
		Estado:       models.ItemEstadoAprobado,
	}).Error)
	require.NoError(t, db.Create(&models.AprobacionItem{
		ExpedienteID: result.ExpedienteID,
		SolicitudID:  result.SolicitudID,
		ItemTipo:     models.ItemTipoDocumentos,
		Estado:       models.ItemEstadoRechazado,
		Observacion:  &obs,
	}).Error)

	reset, err := ResubmitSolicitud(db, result.SolicitudID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset, "solo los items rechazados se reinician")

	require.NoError(t, db.First(&solicitud, result.SolicitudID).Error)
	assert.Equal(t, models.SolicitudEstadoPendiente, solicitud.Estado)

	var items []models.AprobacionItem
	require.NoError(t, db.Where("solicitud_id = ?", result.SolicitudID).
		Order("item_tipo").Find(&items).Error)
	require.Len(t, items, 2)
	for _, item := range items {
		switch item.ItemTipo {
		case models.ItemTipoCausante:
			assert.Equal(t, models.ItemEstadoAprobado, item.Estado, "lo aprobado se conserva")
		case models.ItemTipoDocumentos:
			assert.Equal(t, models.ItemEstadoPendiente, item.Estado)
			assert.Nil(t, item.Observacion)
		}
	}

	// reenviar requires the correction window
	_, err = ResubmitSolicitud(db, result.SolicitudID)
	assert.ErrorAs(t, err, &stateErr)
}

func TestBuscarPorRUTCausante(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	resultados, err := BuscarPorRUTCausante(db, "7.775.777-5")
	require.NoError(t, err)
	require.Len(t, resultados, 1)
	assert.Equal(t, result.ExpedienteID, resultados[0].Expediente.ID)

	// loose format check only: a wrong verifier digit still searches
	resultados, err = BuscarPorRUTCausante(db, "7775777-9")
	require.NoError(t, err)
	assert.Empty(t, resultados)

	_, err = BuscarPorRUTCausante(db, "no-es-rut")
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSolicitudesPendientesYRechazadas(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")
	otro := crearFuncionarioTest(t, db, "123456785", "otro@ips.cl")

	mia, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)
	renombrarExpediente(t, db, mia.ExpedienteID)
	ajena := intakeBase()
	ajena.FalRUN = "20.000.003-K"
	deOtro, err := CreateSolicitud(db, ajena, otro.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Solicitud{}).Where("id = ?", mia.SolicitudID).
		Update("estado", models.SolicitudEstadoPendiente).Error)
	require.NoError(t, db.Model(&models.Solicitud{}).Where("id = ?", deOtro.SolicitudID).
		Update("estado", models.SolicitudEstadoRechazado).Error)

	pendientes, err := SolicitudesPendientes(db, "", "")
	require.NoError(t, err)
	require.Len(t, pendientes, 1)
	assert.Equal(t, mia.SolicitudID, pendientes[0].SolicitudID)
	assert.Equal(t, mia.Folio, pendientes[0].Folio)
	assert.NotEmpty(t, pendientes[0].CausanteNombre)

	pendientes, err = SolicitudesPendientes(db, "", "santo_domingo")
	require.NoError(t, err)
	assert.Empty(t, pendientes, "el filtro de sucursal aplica cuando viene")

	rechazadas, err := SolicitudesRechazadas(db, otro.ID)
	require.NoError(t, err)
	require.Len(t, rechazadas, 1)
	assert.Equal(t, deOtro.SolicitudID, rechazadas[0].SolicitudID)

	rechazadas, err = SolicitudesRechazadas(db, funcionario.ID)
	require.NoError(t, err)
	assert.Empty(t, rechazadas, "cada funcionario ve solo sus devoluciones")
}

func TestGetExpedienteCompleto(t *testing.T) {
	db := setupSolicitudTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K"), funcionario.ID)
	require.NoError(t, err)

	completo, err := GetExpedienteCompleto(db, result.ExpedienteID)
	require.NoError(t, err)
	assert.Equal(t, result.ExpedienteID, completo.Expediente.ID)
	require.NotNil(t, completo.Causante)
	require.NotNil(t, completo.Representante)
	assert.Len(t, completo.Solicitudes, 1)
	assert.Len(t, completo.Beneficiarios, 1)
	assert.Nil(t, completo.Calculo)

	_, err = GetExpedienteCompleto(db, 9999)
	var notFoundErr *models.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}
