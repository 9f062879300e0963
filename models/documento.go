package models

import (
	"time"
)

// Documento storage states
const (
	DocumentoEstadoPendiente = "pendiente"
	DocumentoEstadoSubido    = "subido"
)

// DocumentoSaldoInsoluto holds an uploaded supporting document. The
// binary payload lives in the row itself; DocSHA256 is computed at
// upload but not enforced as unique unless the config flag says so.
type DocumentoSaldoInsoluto struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ExpedienteID uint `gorm:"not null;index" json:"expediente_id"`
	SolicitudID  uint `gorm:"not null;index" json:"solicitud_id"`

	DocTipoID        int       `gorm:"column:doc_tipo_id;not null;default:1" json:"doc_tipo_id"`
	DocNombreArchivo string    `gorm:"column:doc_nombre_archivo;not null" json:"doc_nombre_archivo"`
	DocArchivoBlob   []byte    `gorm:"column:doc_archivo_blob" json:"-"`
	DocMimeType      string    `gorm:"column:doc_mime_type" json:"doc_mime_type"`
	DocTamanoBytes   int64     `gorm:"column:doc_tamano_bytes" json:"doc_tamano_bytes"`
	DocSHA256        string    `gorm:"column:doc_sha256;index" json:"doc_sha256"`
	DocRutaStorage   string    `gorm:"column:doc_ruta_storage" json:"doc_ruta_storage"`
	DocObservaciones string    `gorm:"column:doc_observaciones;type:text" json:"doc_observaciones"`
	DocEstado        string    `gorm:"column:doc_estado;not null;default:pendiente" json:"doc_estado"`
	DocFechaSubida   time.Time `gorm:"column:doc_fecha_subida" json:"doc_fecha_subida"`
}

// TableName specifies the table name for DocumentoSaldoInsoluto model
func (DocumentoSaldoInsoluto) TableName() string {
	return "documentos_saldo_insoluto"
}
