package services

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"saldo_insoluto_app_go/models"
)

// MaxDocumentoSize is the upload ceiling (10 MiB, inclusive)
const MaxDocumentoSize = 10 * 1024 * 1024

var allowedDocExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// MimeTypeForFilename maps a filename to its MIME type by extension
func MimeTypeForFilename(filename string) string {
	if mime, ok := allowedDocExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsAllowedDocExtension checks the upload extension whitelist
func IsAllowedDocExtension(filename string) bool {
	_, ok := allowedDocExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SubirDocumentoInput carries one multipart upload
type SubirDocumentoInput struct {
	SolicitudID   uint
	DocTipoID     int
	NombreArchivo string
	Contenido     []byte
	Observaciones string
}

// SubirDocumento validates and stores an uploaded document. Uploads are
// blocked while the solicitud is pendiente. The SHA-256 is always
// computed and stored; duplicate hashes are only rejected when
// enforceUniqueHash is on.
func SubirDocumento(db *gorm.DB, input SubirDocumentoInput, enforceUniqueHash bool) (*models.DocumentoSaldoInsoluto, error) {
	if input.NombreArchivo == "" || len(input.Contenido) == 0 {
		return nil, models.NewValidationError("archivo es requerido")
	}
	if !IsAllowedDocExtension(input.NombreArchivo) {
		return nil, models.NewValidationError("extensión de archivo no permitida")
	}
	if len(input.Contenido) > MaxDocumentoSize {
		return nil, models.NewValidationError("el archivo excede el tamaño máximo de 10MB")
	}

	solicitud, err := RequireNotPendiente(db, input.SolicitudID)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(input.Contenido)
	hashHex := hex.EncodeToString(hash[:])

	if enforceUniqueHash {
		var count int64
		if err := db.Model(&models.DocumentoSaldoInsoluto{}).
			Where("expediente_id = ? AND doc_sha256 = ?", solicitud.ExpedienteID, hashHex).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("error verificando duplicados: %w", err)
		}
		if count > 0 {
			return nil, models.NewConflictError("ya existe un documento idéntico en el expediente")
		}
	}

	tipoID := input.DocTipoID
	if tipoID == 0 {
		tipoID = 1
	}
	documento := models.DocumentoSaldoInsoluto{
		ExpedienteID:     solicitud.ExpedienteID,
		SolicitudID:      input.SolicitudID,
		DocTipoID:        tipoID,
		DocNombreArchivo: filepath.Base(input.NombreArchivo),
		DocArchivoBlob:   input.Contenido,
		DocMimeType:      MimeTypeForFilename(input.NombreArchivo),
		DocTamanoBytes:   int64(len(input.Contenido)),
		DocSHA256:        hashHex,
		DocObservaciones: input.Observaciones,
		DocEstado:        models.DocumentoEstadoSubido,
		DocFechaSubida:   time.Now(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&documento).Error; err != nil {
			return fmt.Errorf("error guardando documento: %w", err)
		}
		ruta := fmt.Sprintf("/api/download-documento/%d", documento.ID)
		if err := tx.Model(&models.DocumentoSaldoInsoluto{}).Where("id = ?", documento.ID).
			Update("doc_ruta_storage", ruta).Error; err != nil {
			return fmt.Errorf("error actualizando ruta: %w", err)
		}
		documento.DocRutaStorage = ruta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &documento, nil
}

// DescargarDocumento loads one document with its payload for streaming
func DescargarDocumento(db *gorm.DB, documentoID uint) (*models.DocumentoSaldoInsoluto, error) {
	var documento models.DocumentoSaldoInsoluto
	if err := db.First(&documento, documentoID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("documento %d no encontrado", documentoID)
		}
		return nil, fmt.Errorf("error consultando documento: %w", err)
	}
	return &documento, nil
}

// ListarDocumentos returns the solicitud's documents without payloads
func ListarDocumentos(db *gorm.DB, solicitudID uint) ([]models.DocumentoSaldoInsoluto, error) {
	var documentos []models.DocumentoSaldoInsoluto
	err := db.Select("id", "expediente_id", "solicitud_id", "doc_tipo_id", "doc_nombre_archivo",
		"doc_mime_type", "doc_tamano_bytes", "doc_sha256", "doc_ruta_storage",
		"doc_observaciones", "doc_estado", "doc_fecha_subida").
		Where("solicitud_id = ?", solicitudID).
		Order("doc_fecha_subida DESC").
		Find(&documentos).Error
	if err != nil {
		return nil, fmt.Errorf("error consultando documentos: %w", err)
	}
	return documentos, nil
}

// EliminarDocumento removes a document. Only allowed while the owning
// solicitud is in the post-rejection correction window.
func EliminarDocumento(db *gorm.DB, documentoID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var documento models.DocumentoSaldoInsoluto
		if err := tx.Select("id", "solicitud_id").First(&documento, documentoID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("documento %d no encontrado", documentoID)
			}
			return fmt.Errorf("error consultando documento: %w", err)
		}

		var solicitud models.Solicitud
		if err := tx.First(&solicitud, documento.SolicitudID).Error; err != nil {
			return fmt.Errorf("error consultando solicitud: %w", err)
		}
		if solicitud.Estado != models.SolicitudEstadoEnRevision {
			return models.NewStateError("solo se pueden eliminar documentos de una solicitud en estado '%s'",
				models.SolicitudEstadoEnRevision)
		}

		return tx.Delete(&models.DocumentoSaldoInsoluto{}, documentoID).Error
	})
}

// DescargarExpedienteZip bundles every document of the expediente into
// a single ZIP archive
func DescargarExpedienteZip(db *gorm.DB, expedienteID uint) ([]byte, string, error) {
	var documentos []models.DocumentoSaldoInsoluto
	err := db.Where("expediente_id = ?", expedienteID).
		Order("doc_fecha_subida ASC").
		Find(&documentos).Error
	if err != nil {
		return nil, "", fmt.Errorf("error consultando documentos: %w", err)
	}
	if len(documentos) == 0 {
		return nil, "", models.NewNotFoundError("el expediente %d no tiene documentos", expedienteID)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int)
	for _, doc := range documentos {
		name := doc.DocNombreArchivo
		if n := used[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		used[doc.DocNombreArchivo]++

		w, err := zw.Create(name)
		if err != nil {
			return nil, "", fmt.Errorf("error creando entrada zip: %w", err)
		}
		if _, err := w.Write(doc.DocArchivoBlob); err != nil {
			return nil, "", fmt.Errorf("error escribiendo entrada zip: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("error cerrando zip: %w", err)
	}

	filename := fmt.Sprintf("expediente_%d_%s.zip", expedienteID, time.Now().Format("20060102"))
	return buf.Bytes(), filename, nil
}
