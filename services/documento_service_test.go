package services

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"saldo_insoluto_app_go/models"
)

func setupDocumentoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Expediente{},
		&models.Solicitud{},
		&models.DocumentoSaldoInsoluto{},
	))
	return db
}

func crearSolicitudDocumentos(t *testing.T, db *gorm.DB, estado string) *models.Solicitud {
	t.Helper()
	expediente := &models.Expediente{
		ExpedienteNumero: "EXP-2026-" + estado,
		Estado:           models.ExpedienteEstadoEnProceso,
		FuncionarioID:    1,
	}
	require.NoError(t, db.Create(expediente).Error)

	solicitud := &models.Solicitud{
		ExpedienteID: expediente.ID,
		Folio:        "SI-001-2026-" + estado,
		Estado:       estado,
	}
	require.NoError(t, db.Create(solicitud).Error)
	return solicitud
}

func uploadBase(solicitudID uint, nombre string, contenido []byte) SubirDocumentoInput {
	return SubirDocumentoInput{
		SolicitudID:   solicitudID,
		DocTipoID:     2,
		NombreArchivo: nombre,
		Contenido:     contenido,
	}
}

func TestSubirDocumento(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)

	contenido := []byte("%PDF-1.4 contenido de prueba")
	documento, err := SubirDocumento(db, uploadBase(solicitud.ID, "certificado.pdf", contenido), false)
	require.NoError(t, err)

	assert.Equal(t, "certificado.pdf", documento.DocNombreArchivo)
	assert.Equal(t, "application/pdf", documento.DocMimeType)
	assert.Equal(t, int64(len(contenido)), documento.DocTamanoBytes)
	assert.Len(t, documento.DocSHA256, 64)
	assert.Equal(t, models.DocumentoEstadoSubido, documento.DocEstado)
	assert.Contains(t, documento.DocRutaStorage, "/api/download-documento/")
	assert.Equal(t, solicitud.ExpedienteID, documento.ExpedienteID)
}

func TestSubirDocumentoLimiteDeTamano(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)

	// exactly at the ceiling passes
	exacto := make([]byte, MaxDocumentoSize)
	_, err := SubirDocumento(db, uploadBase(solicitud.ID, "grande.pdf", exacto), false)
	require.NoError(t, err)

	// one byte over fails
	var validationErr *models.ValidationError
	excedido := make([]byte, MaxDocumentoSize+1)
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "enorme.pdf", excedido), false)
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubirDocumentoExtensiones(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)
	contenido := []byte("x")

	var validationErr *models.ValidationError
	for _, nombre := range []string{"script.exe", "nota.txt", "archivo", "doble.pdf.sh"} {
		_, err := SubirDocumento(db, uploadBase(solicitud.ID, nombre, contenido), false)
		assert.ErrorAs(t, err, &validationErr, nombre)
	}

	for _, nombre := range []string{"a.pdf", "b.PNG", "c.jpeg", "d.docx", "e.xlsx"} {
		_, err := SubirDocumento(db, uploadBase(solicitud.ID, nombre, contenido), false)
		assert.NoError(t, err, nombre)
	}
}

func TestSubirDocumentoBloqueadoEnPendiente(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoPendiente)

	var stateErr *models.StateError
	_, err := SubirDocumento(db, uploadBase(solicitud.ID, "tarde.pdf", []byte("x")), false)
	assert.ErrorAs(t, err, &stateErr)
}

func TestSubirDocumentoHashDuplicado(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)
	contenido := []byte("mismo contenido")

	_, err := SubirDocumento(db, uploadBase(solicitud.ID, "original.pdf", contenido), false)
	require.NoError(t, err)

	// by default duplicates are allowed, the hash is informational
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "copia.pdf", contenido), false)
	require.NoError(t, err)

	// with enforcement on, the same bytes are rejected
	var conflictErr *models.ConflictError
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "otra_copia.pdf", contenido), true)
	assert.ErrorAs(t, err, &conflictErr)

	// different bytes pass even with enforcement
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "distinto.pdf", []byte("otro contenido")), true)
	assert.NoError(t, err)
}

func TestEliminarDocumento(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)

	documento, err := SubirDocumento(db, uploadBase(solicitud.ID, "borrar.pdf", []byte("x")), false)
	require.NoError(t, err)

	// only the correction window allows deletion
	var stateErr *models.StateError
	err = EliminarDocumento(db, documento.ID)
	assert.ErrorAs(t, err, &stateErr)

	require.NoError(t, db.Model(&models.Solicitud{}).Where("id = ?", solicitud.ID).
		Update("estado", models.SolicitudEstadoEnRevision).Error)
	require.NoError(t, EliminarDocumento(db, documento.ID))

	var count int64
	require.NoError(t, db.Model(&models.DocumentoSaldoInsoluto{}).
		Where("id = ?", documento.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	var notFoundErr *models.NotFoundError
	err = EliminarDocumento(db, documento.ID)
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestDescargarDocumento(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)

	contenido := []byte("contenido binario")
	subido, err := SubirDocumento(db, uploadBase(solicitud.ID, "descarga.pdf", contenido), false)
	require.NoError(t, err)

	documento, err := DescargarDocumento(db, subido.ID)
	require.NoError(t, err)
	assert.Equal(t, contenido, documento.DocArchivoBlob)

	var notFoundErr *models.NotFoundError
	_, err = DescargarDocumento(db, 9999)
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestListarDocumentosSinPayload(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)

	_, err := SubirDocumento(db, uploadBase(solicitud.ID, "uno.pdf", []byte("contenido uno")), false)
	require.NoError(t, err)
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "dos.png", []byte("contenido dos")), false)
	require.NoError(t, err)

	documentos, err := ListarDocumentos(db, solicitud.ID)
	require.NoError(t, err)
	require.Len(t, documentos, 2)
	for _, doc := range documentos {
		assert.Empty(t, doc.DocArchivoBlob, "el listado no arrastra los binarios")
		assert.NotEmpty(t, doc.DocNombreArchivo)
		assert.NotEmpty(t, doc.DocSHA256)
	}
}

func TestDescargarExpedienteZip(t *testing.T) {
	db := setupDocumentoTestDB(t)
	solicitud := crearSolicitudDocumentos(t, db, models.SolicitudEstadoBorrador)

	var notFoundErr *models.NotFoundError
	_, _, err := DescargarExpedienteZip(db, solicitud.ExpedienteID)
	assert.ErrorAs(t, err, &notFoundErr)

	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "informe.pdf", []byte("primero")), false)
	require.NoError(t, err)
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "informe.pdf", []byte("segundo")), false)
	require.NoError(t, err)
	_, err = SubirDocumento(db, uploadBase(solicitud.ID, "foto.png", []byte("imagen")), false)
	require.NoError(t, err)

	contenido, filename, err := DescargarExpedienteZip(db, solicitud.ExpedienteID)
	require.NoError(t, err)
	assert.Contains(t, filename, "expediente_")
	assert.Contains(t, filename, ".zip")

	reader, err := zip.NewReader(bytes.NewReader(contenido), int64(len(contenido)))
	require.NoError(t, err)
	require.Len(t, reader.File, 3)

	nombres := make([]string, 0, 3)
	for _, f := range reader.File {
		nombres = append(nombres, f.Name)
	}
	assert.ElementsMatch(t, []string{"informe.pdf", "informe_1.pdf", "foto.png"}, nombres,
		"los nombres repetidos se desambiguan con sufijo")

	var informes []string
	for _, f := range reader.File {
		if f.Name == "informe.pdf" || f.Name == "informe_1.pdf" {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			informes = append(informes, string(data))
		}
	}
	assert.ElementsMatch(t, []string{"primero", "segundo"}, informes,
		"ambas versiones del documento quedan en el archivo")
}
