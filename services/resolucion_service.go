package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"saldo_insoluto_app_go/models"
)

// placeholderRegex matches {{CAMPO}} markers in the resolution template
var placeholderRegex = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

var sanitizer = bluemonday.StrictPolicy()

// RenderPlaceholders replaces every {{CAMPO}} marker with its value.
// Unknown markers are left in place so missing data is visible in the
// rendered document instead of silently blank.
func RenderPlaceholders(content string, values map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(content, func(match string) string {
		key := match[2 : len(match)-2]
		if value, ok := values[key]; ok {
			return value
		}
		return match
	})
}

// ResolucionData is everything the resolution template needs
type ResolucionData struct {
	NumeroCorrelativo   string
	FechaAprobacion     string
	NombreCausante      string
	RUTCausante         string
	FechaFallecimiento  string
	NombreRepresentante string
	RUTRepresentante    string
	ValorSaldoInsoluto  string
	FuncionarioJefatura string
}

func (d ResolucionData) placeholders() map[string]string {
	return map[string]string{
		"NUMERO_CORRELATIVO":   sanitizer.Sanitize(d.NumeroCorrelativo),
		"FECHA_APROBACION":     sanitizer.Sanitize(d.FechaAprobacion),
		"NOMBRE_CAUSANTE":      sanitizer.Sanitize(d.NombreCausante),
		"RUT_CAUSANTE":         sanitizer.Sanitize(d.RUTCausante),
		"FECHA_FALLECIMIENTO":  sanitizer.Sanitize(d.FechaFallecimiento),
		"NOMBRE_REPRESENTANTE": sanitizer.Sanitize(d.NombreRepresentante),
		"RUT_REPRESENTANTE":    sanitizer.Sanitize(d.RUTRepresentante),
		"NOMBRE_FALLECIDA":     sanitizer.Sanitize(d.NombreCausante),
		"VALOR_SALDO_INSOLUTO": sanitizer.Sanitize(d.ValorSaldoInsoluto),
		"FUNCIONARIO_JEFATURA": sanitizer.Sanitize(d.FuncionarioJefatura),
		"FIRMA_FUNCIONARIO":    sanitizer.Sanitize(d.FuncionarioJefatura),
	}
}

// CollectResolucionData gathers the expediente, causante, representante
// and approved cálculo for the resolution. Fails with a StateError when
// no aprobado cálculo exists.
func CollectResolucionData(db *gorm.DB, expedienteID, jefaturaID uint) (*ResolucionData, error) {
	var expediente models.Expediente
	if err := db.First(&expediente, expedienteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("expediente %d no encontrado", expedienteID)
		}
		return nil, fmt.Errorf("error consultando expediente: %w", err)
	}

	var causante models.Causante
	if err := db.Where("expediente_id = ?", expedienteID).First(&causante).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("causante del expediente %d no encontrado", expedienteID)
		}
		return nil, fmt.Errorf("error consultando causante: %w", err)
	}

	var calculo models.CalculoSaldoInsoluto
	err := db.Where("expediente_id = ? AND estado = ?", expedienteID, models.CalculoEstadoAprobado).
		Order("fecha_calculo DESC").
		First(&calculo).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.NewStateError("no existe un cálculo aprobado para este expediente")
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando cálculo: %w", err)
	}

	var jefatura models.Funcionario
	if err := db.First(&jefatura, jefaturaID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("funcionario de jefatura no encontrado")
		}
		return nil, fmt.Errorf("error consultando funcionario: %w", err)
	}

	data := &ResolucionData{
		FechaAprobacion:     FormatFecha(calculo.FechaCalculo),
		NombreCausante:      causante.NombreCompleto(),
		RUTCausante:         FormatRUT(causante.RUN),
		ValorSaldoInsoluto:  FormatMoneda(calculo.TotalCalculado),
		FuncionarioJefatura: jefatura.NombreCompleto(),
	}
	if causante.FechaDefuncion != nil {
		data.FechaFallecimiento = FormatFecha(*causante.FechaDefuncion)
	}

	var solicitud models.Solicitud
	if err := db.Where("expediente_id = ?", expedienteID).Order("id DESC").
		First(&solicitud).Error; err == nil && solicitud.Folio != "" {
		data.NumeroCorrelativo = solicitud.Folio
	} else {
		data.NumeroCorrelativo = fmt.Sprintf("RES-%03d-%d", expedienteID, time.Now().Year())
	}

	var representante models.Representante
	if err := db.Where("expediente_id = ?", expedienteID).First(&representante).Error; err == nil {
		data.NombreRepresentante = representante.NombreCompleto()
		if representante.RUT != "" {
			data.RUTRepresentante = FormatRUT(representante.RUT)
		}
	}
	return data, nil
}

// GenerarResolucion renders the resolution template for the expediente
// and returns the PDF bytes with the download filename. A copy is
// archived through the storage provider when one is configured.
func GenerarResolucion(db *gorm.DB, expedienteID, jefaturaID uint, templatePath string) ([]byte, string, error) {
	data, err := CollectResolucionData(db, expedienteID, jefaturaID)
	if err != nil {
		return nil, "", err
	}

	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, "", models.NewDependencyError(
			fmt.Sprintf("error leyendo template %s", filepath.Base(templatePath)), err)
	}

	html := RenderPlaceholders(string(tmpl), data.placeholders())
	pdf, err := GeneratePDF(html, DefaultPDFOptions())
	if err != nil {
		return nil, "", models.NewDependencyError("error generando PDF", err)
	}

	filename := fmt.Sprintf("resolucion_%d_%s.pdf", expedienteID, time.Now().Format("20060102"))

	if Storage != nil {
		key := GenerateResolucionKey(expedienteID, filename)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := Storage.UploadReader(ctx, bytes.NewReader(pdf), key, "application/pdf", int64(len(pdf))); err != nil {
			log.Printf("[WARNING] No se pudo archivar la resolución %s: %v", filename, err)
		}
	}

	return pdf, filename, nil
}
