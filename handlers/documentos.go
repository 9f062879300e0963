package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

// SubirDocumentoHandler receives one multipart upload for a solicitud
func SubirDocumentoHandler(c echo.Context) error {
	solicitudID, err := strconv.ParseUint(c.FormValue("solicitud_id"), 10, 32)
	if err != nil {
		return respondError(c, models.NewValidationError("solicitud_id es requerido"))
	}
	docTipoID, _ := strconv.Atoi(c.FormValue("doc_tipo_id"))

	fileHeader, err := c.FormFile("archivo")
	if err != nil {
		return respondError(c, models.NewValidationError("archivo es requerido"))
	}
	if fileHeader.Size > services.MaxDocumentoSize {
		return respondError(c, models.NewValidationError("el archivo excede el tamaño máximo de 10MB"))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return respondError(c, models.NewDependencyError("error leyendo archivo", err))
	}
	defer src.Close()

	contenido, err := io.ReadAll(io.LimitReader(src, services.MaxDocumentoSize+1))
	if err != nil {
		return respondError(c, models.NewDependencyError("error leyendo archivo", err))
	}

	documento, err := services.SubirDocumento(db.DB, services.SubirDocumentoInput{
		SolicitudID:   uint(solicitudID),
		DocTipoID:     docTipoID,
		NombreArchivo: fileHeader.Filename,
		Contenido:     contenido,
		Observaciones: c.FormValue("observaciones"),
	}, documentHashEnforced(c))
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusCreated, map[string]interface{}{
		"id":             documento.ID,
		"nombre_archivo": documento.DocNombreArchivo,
		"mime_type":      documento.DocMimeType,
		"tamano_bytes":   documento.DocTamanoBytes,
		"sha256":         documento.DocSHA256,
		"ruta":           documento.DocRutaStorage,
	})
}

func documentHashEnforced(c echo.Context) bool {
	cfg := getConfig(c)
	return cfg != nil && cfg.EnforceUniqueDocumentHash
}

// DescargarDocumentoHandler streams one document back to the browser
func DescargarDocumentoHandler(c echo.Context) error {
	documentoID, err := paramUint(c, "documentoID")
	if err != nil {
		return respondError(c, err)
	}
	documento, err := services.DescargarDocumento(db.DB, documentoID)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, documento.DocNombreArchivo))
	return c.Blob(http.StatusOK, documento.DocMimeType, documento.DocArchivoBlob)
}

// ListarDocumentosHandler returns the solicitud's documents without
// payloads
func ListarDocumentosHandler(c echo.Context) error {
	solicitudID, err := paramUint(c, "solicitudID")
	if err != nil {
		return respondError(c, err)
	}
	documentos, err := services.ListarDocumentos(db.DB, solicitudID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, documentos)
}

// EliminarDocumentoHandler removes a document during the correction
// window
func EliminarDocumentoHandler(c echo.Context) error {
	documentoID, err := paramUint(c, "documentoID")
	if err != nil {
		return respondError(c, err)
	}
	if err := services.EliminarDocumento(db.DB, documentoID); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]interface{}{"eliminado": true})
}

// DescargarExpedienteCompletoHandler bundles every document of the
// expediente into one ZIP download
func DescargarExpedienteCompletoHandler(c echo.Context) error {
	expedienteID, err := paramUint(c, "expedienteID")
	if err != nil {
		return respondError(c, err)
	}
	contenido, filename, err := services.DescargarExpedienteZip(db.DB, expedienteID)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "application/zip", contenido)
}
