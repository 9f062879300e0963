package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"gorm.io/gorm"

	"saldo_insoluto_app_go/models"
)

// HMACFirma computes the legacy signing digest:
// HMAC-SHA256(key=clave, message=canonicalJSON(payload)+salt) as hex.
// The canonical form is the byte stream the external signing
// application produces: sorted keys, ", " between items, ": " after
// each key and non-ASCII escaped as \uXXXX. Go's compact json.Marshal
// output does NOT match it, so both sides must go through
// canonicalFirmaJSON or the digests diverge.
func HMACFirma(payload map[string]interface{}, clave, salt string) (string, error) {
	canonical, err := canonicalFirmaJSON(payload)
	if err != nil {
		return "", fmt.Errorf("error serializando payload: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(clave))
	mac.Write([]byte(canonical))
	mac.Write([]byte(salt))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// canonicalFirmaJSON renders a firma payload in the signing scheme's
// canonical form. Integral floats are written without a decimal point
// because the external app parses JSON numbers into integers.
func canonicalFirmaJSON(value interface{}) (string, error) {
	var sb strings.Builder
	if err := writeCanonicalValue(&sb, value); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeCanonicalValue(sb *strings.Builder, value interface{}) error {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case string:
		writeCanonicalString(sb, v)
	case int:
		sb.WriteString(strconv.Itoa(v))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case uint:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			sb.WriteString(strconv.FormatInt(int64(v), 10))
		} else {
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	case json.Number:
		sb.WriteString(v.String())
	case []interface{}:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := writeCanonicalValue(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeCanonicalString(sb, key)
			sb.WriteString(": ")
			if err := writeCanonicalValue(sb, v[key]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return models.NewValidationError("tipo no serializable en firma: %T", value)
	}
	return nil
}

func writeCanonicalString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 || r > 0x7e {
				if r > 0xffff {
					r1, r2 := utf16.EncodeRune(r)
					fmt.Fprintf(sb, `\u%04x\u%04x`, r1, r2)
				} else {
					fmt.Fprintf(sb, `\u%04x`, r)
				}
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}

func guardarFirmaValidacion(db *gorm.DB, solicitudID uint, columna string, payload map[string]interface{}, clave, salt string) error {
	firma, err := HMACFirma(payload, clave, salt)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(map[string]interface{}{
		"firma":        firma,
		"timestamp":    time.Now().Format(time.RFC3339),
		"solicitud_id": solicitudID,
	})
	if err != nil {
		return fmt.Errorf("error serializando firma: %w", err)
	}

	res := db.Model(&models.Validacion{}).
		Where("solicitud_id = ?", solicitudID).
		Update(columna, string(blob))
	if res.Error != nil {
		return fmt.Errorf("error guardando firma: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("validación para solicitud %d no encontrada", solicitudID)
	}
	return nil
}

// FirmarRepresentante stores the representative's HMAC firma blob on
// the solicitud's validación row
func FirmarRepresentante(db *gorm.DB, solicitudID uint, payload map[string]interface{}, clave, salt string) error {
	return guardarFirmaValidacion(db, solicitudID, "val_firma_representante", payload, clave, salt)
}

// FirmarFuncionarioLegacy stores the funcionario's HMAC firma blob on
// the validación row without touching the solicitud state
func FirmarFuncionarioLegacy(db *gorm.DB, solicitudID uint, payload map[string]interface{}, clave, salt string) error {
	return guardarFirmaValidacion(db, solicitudID, "val_firma_funcionario", payload, clave, salt)
}

// FirmarSolicitudFuncionario records the funcionario signature on the
// solicitud itself: flag, timestamp, signer id and the
// firmado_funcionario state. The validación row is updated for
// compatibility with the external signing flow.
func FirmarSolicitudFuncionario(db *gorm.DB, solicitudID, funcionarioID uint, firmaData map[string]interface{}) (*models.Solicitud, error) {
	var solicitud models.Solicitud
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&solicitud, solicitudID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
			}
			return fmt.Errorf("error consultando solicitud: %w", err)
		}

		var funcionario models.Funcionario
		if err := tx.Where("id = ? AND activo = ?", funcionarioID, true).First(&funcionario).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.NewNotFoundError("funcionario no encontrado o inactivo")
			}
			return fmt.Errorf("error consultando funcionario: %w", err)
		}

		now := time.Now()
		if err := tx.Model(&models.Solicitud{}).Where("id = ?", solicitudID).
			Updates(map[string]interface{}{
				"firmado_funcionario":     true,
				"fecha_firma_funcionario": now,
				"funcionario_id_firma":    funcionarioID,
				"estado":                  models.SolicitudEstadoFirmadoFuncionario,
			}).Error; err != nil {
			return fmt.Errorf("error firmando solicitud: %w", err)
		}

		blob, err := json.Marshal(firmaData)
		if err != nil {
			return fmt.Errorf("error serializando firma: %w", err)
		}
		if err := tx.Model(&models.Validacion{}).Where("solicitud_id = ?", solicitudID).
			Updates(map[string]interface{}{
				"val_firma_funcionario":       string(blob),
				"val_estado":                  models.SolicitudEstadoFirmadoFuncionario,
				"val_fecha_firma_funcionario": now,
			}).Error; err != nil {
			return fmt.Errorf("error actualizando validación: %w", err)
		}

		solicitud.FirmadoFuncionario = true
		solicitud.FechaFirmaFuncionario = &now
		solicitud.FuncionarioIDFirma = &funcionarioID
		solicitud.Estado = models.SolicitudEstadoFirmadoFuncionario
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &solicitud, nil
}

// FirmarSolicitudFuncionarioDirecto only flips the firmado_funcionario
// flag and runs the readiness check, leaving the state untouched unless
// the check itself advances it
func FirmarSolicitudFuncionarioDirecto(db *gorm.DB, solicitudID, funcionarioID uint) (*ReadinessResult, error) {
	var funcionario models.Funcionario
	if err := db.Where("id = ? AND activo = ?", funcionarioID, true).First(&funcionario).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("funcionario no encontrado o inactivo")
		}
		return nil, fmt.Errorf("error consultando funcionario: %w", err)
	}

	var solicitud models.Solicitud
	if err := db.First(&solicitud, solicitudID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.NewNotFoundError("solicitud %d no encontrada", solicitudID)
		}
		return nil, fmt.Errorf("error consultando solicitud: %w", err)
	}

	if err := db.Model(&models.Solicitud{}).Where("id = ?", solicitudID).
		Update("firmado_funcionario", true).Error; err != nil {
		return nil, fmt.Errorf("error firmando solicitud: %w", err)
	}

	return CheckReadiness(db, solicitud.ExpedienteID, solicitudID)
}

// IsSigned reports whether a signature record exists for the identity,
// case-insensitive. Signature rows are written by the external signing
// application; this backend only reads them.
func IsSigned(db *gorm.DB, rut string) (bool, error) {
	var count int64
	err := db.Model(&models.UsuarioFirma{}).
		Where("UPPER(rut) = ?", NormalizeRUT(rut)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("error consultando firma: %w", err)
	}
	return count > 0, nil
}

// CountFirmasBeneficiarios returns the total beneficiarios of the
// expediente and how many of them have a matching signature record
func CountFirmasBeneficiarios(db *gorm.DB, expedienteID uint) (total, firmados int64, err error) {
	if err = db.Model(&models.Beneficiario{}).
		Where("expediente_id = ?", expedienteID).
		Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("error contando beneficiarios: %w", err)
	}

	if err = db.Model(&models.Beneficiario{}).
		Joins("JOIN usuarios_firma uf ON UPPER(uf.rut) = UPPER(beneficiarios.ben_run)").
		Where("beneficiarios.expediente_id = ?", expedienteID).
		Distinct("beneficiarios.id").
		Count(&firmados).Error; err != nil {
		return 0, 0, fmt.Errorf("error contando firmas: %w", err)
	}
	return total, firmados, nil
}

// FirmarBeneficiario handles the in-app beneficiary signing request.
// The beneficiary must belong to the expediente and must not be signed
// yet. The signature row itself is created out of band; here we only
// re-run the readiness check against the latest solicitud.
func FirmarBeneficiario(db *gorm.DB, beneficiarioID, expedienteID uint) (*models.Beneficiario, *ReadinessResult, error) {
	var beneficiario models.Beneficiario
	err := db.Where("id = ? AND expediente_id = ?", beneficiarioID, expedienteID).
		First(&beneficiario).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, models.NewNotFoundError("beneficiario no encontrado o no pertenece al expediente")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error consultando beneficiario: %w", err)
	}

	signed, err := IsSigned(db, beneficiario.BenRUN)
	if err != nil {
		return nil, nil, err
	}
	if signed {
		return nil, nil, models.NewStateError("el beneficiario ya tiene una firma activa")
	}

	var solicitud models.Solicitud
	err = db.Where("expediente_id = ?", expedienteID).Order("id DESC").First(&solicitud).Error
	if err == gorm.ErrRecordNotFound {
		return &beneficiario, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error consultando solicitud: %w", err)
	}

	readiness, err := CheckReadiness(db, expedienteID, solicitud.ID)
	if err != nil {
		return nil, nil, err
	}
	return &beneficiario, readiness, nil
}

// FirmaBeneficiario is one signed beneficiary row
type FirmaBeneficiario struct {
	FirmaID        uint   `json:"firma_id"`
	RUT            string `json:"rut"`
	BeneficiarioID uint   `json:"beneficiario_id"`
	BenNombre      string `json:"ben_nombre"`
	BenRUN         string `json:"ben_run"`
}

// FirmasBeneficiariosResult summarizes the signature progress of an
// expediente
type FirmasBeneficiariosResult struct {
	ExpedienteID            uint                `json:"expediente_id"`
	TotalBeneficiarios      int64               `json:"total_beneficiarios"`
	BeneficiariosFirmados   int64               `json:"beneficiarios_firmados"`
	BeneficiariosPendientes int64               `json:"beneficiarios_pendientes"`
	Firmas                  []FirmaBeneficiario `json:"firmas"`
}

// GetFirmasBeneficiarios lists the signature records joined with the
// expediente's beneficiarios plus the progress totals
func GetFirmasBeneficiarios(db *gorm.DB, expedienteID uint) (*FirmasBeneficiariosResult, error) {
	var firmas []FirmaBeneficiario
	err := db.Table("usuarios_firma uf").
		Select("uf.id AS firma_id, uf.rut, b.id AS beneficiario_id, b.ben_nombre, b.ben_run").
		Joins("JOIN beneficiarios b ON UPPER(uf.rut) = UPPER(b.ben_run)").
		Where("b.expediente_id = ?", expedienteID).
		Order("uf.id DESC").
		Scan(&firmas).Error
	if err != nil {
		return nil, fmt.Errorf("error consultando firmas: %w", err)
	}

	// the raw listing can hold several firma rows per beneficiario, so
	// the progress totals count distinct beneficiarios instead
	total, firmados, err := CountFirmasBeneficiarios(db, expedienteID)
	if err != nil {
		return nil, err
	}

	return &FirmasBeneficiariosResult{
		ExpedienteID:            expedienteID,
		TotalBeneficiarios:      total,
		BeneficiariosFirmados:   firmados,
		BeneficiariosPendientes: total - firmados,
		Firmas:                  firmas,
	}, nil
}
