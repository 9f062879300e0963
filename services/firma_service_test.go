package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"saldo_insoluto_app_go/models"
)

func setupFirmaTestDB(t *testing.T) *gorm.DB {
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
	))
	return db
}

func TestCanonicalFirmaJSON(t *testing.T) {
	casos := []struct {
		nombre   string
		payload  interface{}
		esperado string
	}{
		{"claves ordenadas con separadores", map[string]interface{}{"b": 2, "a": 1},
			`{"a": 1, "b": 2}`},
		{"listas y escalares", map[string]interface{}{
			"lista": []interface{}{1, "dos", true, nil},
			"x":     2.5,
		}, `{"lista": [1, "dos", true, null], "x": 2.5}`},
		{"no ascii escapado", map[string]interface{}{"observación": "firmado en Ñuñoa"},
			`{"observaci\u00f3n": "firmado en \u00d1u\u00f1oa"}`},
		{"caracteres de control", map[string]interface{}{"texto": "línea\nnueva\ttab \"q\" \\ fin"},
			`{"texto": "l\u00ednea\nnueva\ttab \"q\" \\ fin"}`},
		{"plano astral en par sustituto", map[string]interface{}{"emoji": "ok 👍"},
			`{"emoji": "ok \ud83d\udc4d"}`},
		{"float entero sin punto decimal", map[string]interface{}{"solicitud_id": float64(12)},
			`{"solicitud_id": 12}`},
	}
	for _, caso := range casos {
		t.Run(caso.nombre, func(t *testing.T) {
			canonical, err := canonicalFirmaJSON(caso.payload)
			require.NoError(t, err)
			assert.Equal(t, caso.esperado, canonical)
		})
	}

	var validationErr *models.ValidationError
	_, err := canonicalFirmaJSON(map[string]interface{}{"canal": make(chan int)})
	assert.ErrorAs(t, err, &validationErr)
}

// digests cross-checked against the external signing application's
// serializer over the same payloads
func TestHMACFirmaVectores(t *testing.T) {
	firma, err := HMACFirma(map[string]interface{}{"a": 1, "b": 2}, "clave-secreta", "sal")
	require.NoError(t, err)
	assert.Equal(t, "4b112a7a162df69590adf42b13e2bcbb0648cba784b982f7a655fc2a2e57d4ef", firma)

	firma, err = HMACFirma(map[string]interface{}{
		"rut":          "12.345.678-5",
		"solicitud_id": 12,
		"observación":  "firmado en Ñuñoa",
	}, "clave-secreta", "sal")
	require.NoError(t, err)
	assert.Equal(t, "5ff9d32cf3e877fec25cbce8fbaea12951a497d872a2950e97e0deec5ece1985", firma)
}

func TestHMACFirma(t *testing.T) {
	payload := map[string]interface{}{
		"solicitud_id": 12,
		"rut":          "12345678-5",
	}

	firma, err := HMACFirma(payload, "clave-secreta", "sal")
	require.NoError(t, err)
	assert.Len(t, firma, 64, "HMAC-SHA256 en hex")

	// deterministic over identical content
	otra, err := HMACFirma(map[string]interface{}{
		"rut":          "12345678-5",
		"solicitud_id": 12,
	}, "clave-secreta", "sal")
	require.NoError(t, err)
	assert.Equal(t, firma, otra, "el JSON canónico ordena las claves")

	distintaSal, err := HMACFirma(payload, "clave-secreta", "otra-sal")
	require.NoError(t, err)
	assert.NotEqual(t, firma, distintaSal)

	distintaClave, err := HMACFirma(payload, "otra-clave", "sal")
	require.NoError(t, err)
	assert.NotEqual(t, firma, distintaClave)
}

func TestFirmarRepresentante(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	payload := map[string]interface{}{"rut": "12345678-5"}
	require.NoError(t, FirmarRepresentante(db, result.SolicitudID, payload, "clave", "sal"))

	var validacion models.Validacion
	require.NoError(t, db.Where("solicitud_id = ?", result.SolicitudID).First(&validacion).Error)
	require.NotNil(t, validacion.ValFirmaRepresentante)

	var blob map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*validacion.ValFirmaRepresentante), &blob))
	assert.Len(t, blob["firma"], 64)
	assert.NotEmpty(t, blob["timestamp"])

	var notFoundErr *models.NotFoundError
	err = FirmarRepresentante(db, 9999, payload, "clave", "sal")
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestFirmarSolicitudFuncionario(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	solicitud, err := FirmarSolicitudFuncionario(db, result.SolicitudID, funcionario.ID,
		map[string]interface{}{"dispositivo": "tablet"})
	require.NoError(t, err)

	assert.True(t, solicitud.FirmadoFuncionario)
	assert.Equal(t, models.SolicitudEstadoFirmadoFuncionario, solicitud.Estado)
	require.NotNil(t, solicitud.FuncionarioIDFirma)
	assert.Equal(t, funcionario.ID, *solicitud.FuncionarioIDFirma)
	assert.NotNil(t, solicitud.FechaFirmaFuncionario)

	var validacion models.Validacion
	require.NoError(t, db.Where("solicitud_id = ?", result.SolicitudID).First(&validacion).Error)
	assert.Equal(t, models.SolicitudEstadoFirmadoFuncionario, validacion.ValEstado)
	assert.NotNil(t, validacion.ValFirmaFuncionario)
	assert.NotNil(t, validacion.ValFechaFirmaFuncionario)
}

func TestFirmarSolicitudFuncionarioInactivo(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")
	require.NoError(t, db.Model(funcionario).Update("activo", false).Error)

	result, err := CreateSolicitud(db, intakeBase(), funcionario.ID)
	require.NoError(t, err)

	var notFoundErr *models.NotFoundError
	_, err = FirmarSolicitudFuncionario(db, result.SolicitudID, funcionario.ID, nil)
	assert.ErrorAs(t, err, &notFoundErr)

	_, err = FirmarSolicitudFuncionarioDirecto(db, result.SolicitudID, funcionario.ID)
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestIsSigned(t *testing.T) {
	db := setupFirmaTestDB(t)

	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003k"}).Error)

	signed, err := IsSigned(db, "20.000.003-K")
	require.NoError(t, err)
	assert.True(t, signed)

	signed, err = IsSigned(db, "12345678-5")
	require.NoError(t, err)
	assert.False(t, signed)
}

func TestCountFirmasBeneficiariosOrdenDeInsercion(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	// the signature record predates the beneficiary row
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003K"}).Error)

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K", "10.000.004-0"), funcionario.ID)
	require.NoError(t, err)

	total, firmados, err := CountFirmasBeneficiarios(db, result.ExpedienteID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), firmados, "la firma previa igual se reconoce")
}

func TestFirmarBeneficiario(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K"), funcionario.ID)
	require.NoError(t, err)

	var beneficiario models.Beneficiario
	require.NoError(t, db.Where("expediente_id = ?", result.ExpedienteID).First(&beneficiario).Error)

	ben, readiness, err := FirmarBeneficiario(db, beneficiario.ID, result.ExpedienteID)
	require.NoError(t, err)
	assert.Equal(t, beneficiario.ID, ben.ID)
	require.NotNil(t, readiness)
	assert.False(t, readiness.Ready)

	// already signed
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003K"}).Error)
	var stateErr *models.StateError
	_, _, err = FirmarBeneficiario(db, beneficiario.ID, result.ExpedienteID)
	assert.ErrorAs(t, err, &stateErr)

	// wrong expediente
	var notFoundErr *models.NotFoundError
	_, _, err = FirmarBeneficiario(db, beneficiario.ID, result.ExpedienteID+1)
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestGetFirmasBeneficiarios(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K", "10.000.004-0"), funcionario.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003K", Nombre: "Beneficiario 1"}).Error)

	progreso, err := GetFirmasBeneficiarios(db, result.ExpedienteID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), progreso.TotalBeneficiarios)
	assert.Equal(t, int64(1), progreso.BeneficiariosFirmados)
	assert.Equal(t, int64(1), progreso.BeneficiariosPendientes)
	require.Len(t, progreso.Firmas, 1)
	assert.Equal(t, "20000003K", progreso.Firmas[0].BenRUN)
}

func TestGetFirmasBeneficiariosFirmasRepetidas(t *testing.T) {
	db := setupFirmaTestDB(t)
	funcionario := crearFuncionarioTest(t, db, "111111111", "ana@ips.cl")

	result, err := CreateSolicitud(db, intakeBase("20.000.003-K", "10.000.004-0"), funcionario.ID)
	require.NoError(t, err)

	// the signing application can leave more than one record per identity
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003K"}).Error)
	require.NoError(t, db.Create(&models.UsuarioFirma{RUT: "20000003k"}).Error)

	progreso, err := GetFirmasBeneficiarios(db, result.ExpedienteID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), progreso.TotalBeneficiarios)
	assert.Equal(t, int64(1), progreso.BeneficiariosFirmados, "los registros repetidos cuentan una sola vez")
	assert.Equal(t, int64(1), progreso.BeneficiariosPendientes)
	assert.Len(t, progreso.Firmas, 2, "el listado sí conserva cada registro")
}
