package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"saldo_insoluto_app_go/models"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login authenticates a funcionario by RUT and password
func Login(db *gorm.DB, rut, password string) (*models.Funcionario, error) {
	if rut == "" || password == "" {
		return nil, models.NewValidationError("RUT y contraseña requeridos")
	}

	var funcionario models.Funcionario
	err := db.Where("rut = ? AND activo = ?", NormalizeRUT(rut), true).First(&funcionario).Error
	if err == gorm.ErrRecordNotFound || (err == nil && !CheckPassword(password, funcionario.PasswordHash)) {
		LogSecurityEvent("LOGIN_FAILED", NormalizeRUT(rut), "invalid credentials")
		return nil, models.NewValidationError("RUT o contraseña incorrectos")
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando funcionario: %w", err)
	}
	return &funcionario, nil
}

// CreateSession creates a new session for a funcionario
func CreateSession(db *gorm.DB, funcionarioID uint, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:            uuid.New().String(),
		FuncionarioID: funcionarioID,
		Token:         token,
		ExpiresAt:     time.Now().Add(DefaultSessionDuration),
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession validates a session token and returns the session if valid
func ValidateSession(db *gorm.DB, token string) (*models.Session, error) {
	var session models.Session

	err := db.Preload("Funcionario").
		Where("token = ?", token).
		First(&session).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if session.IsExpired() {
		// Delete expired session
		db.Delete(&session)
		return nil, fmt.Errorf("session expired")
	}

	return &session, nil
}

// DeleteSession deletes a session (logout)
func DeleteSession(db *gorm.DB, token string) error {
	result := db.Where("token = ?", token).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired sessions", result.RowsAffected)
	}
	return nil
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(eventType, subject, details string) {
	log.Printf("[SECURITY] %s | Subject: %s | Details: %s", eventType, subject, details)
}

// CrearFuncionarioInput is the account creation payload
type CrearFuncionarioInput struct {
	RUT             string `json:"rut"`
	Nombres         string `json:"nombres"`
	ApellidoP       string `json:"apellido_p"`
	ApellidoM       string `json:"apellido_m"`
	Email           string `json:"email"`
	Rol             string `json:"rol"`
	Sucursal        string `json:"sucursal"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// ValidatePasswordStrength enforces the account password policy:
// at least 8 chars with upper, lower, digit and symbol
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("la contraseña debe tener al menos 8 caracteres")
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case strings.ContainsRune("!@#$%^&*()_+-=[]{}|;:,.<>?", c):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return models.NewValidationError("la contraseña debe tener mayúsculas, minúsculas, números y símbolos")
	}
	return nil
}

// CrearFuncionario validates and creates a platform account. The RUT
// gets the full checksum validation here, unlike the lookup endpoints.
func CrearFuncionario(db *gorm.DB, input CrearFuncionarioInput) (*models.Funcionario, error) {
	required := map[string]string{
		"nombres":    input.Nombres,
		"apellido_p": input.ApellidoP,
		"rut":        input.RUT,
		"email":      input.Email,
		"rol":        input.Rol,
		"password":   input.Password,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return nil, models.NewValidationError("campo requerido: %s", field)
		}
	}
	if input.PasswordConfirm == "" {
		return nil, models.NewValidationError("campo requerido: password_confirm")
	}

	sucursal := input.Sucursal
	if sucursal == "" {
		sucursal = models.DefaultSucursal
	} else if !models.IsValidSucursal(sucursal) {
		return nil, models.NewValidationError("sucursal no válida")
	}

	if input.Password != input.PasswordConfirm {
		return nil, models.NewValidationError("las contraseñas no coinciden")
	}
	if err := ValidateRUT(input.RUT); err != nil {
		return nil, models.NewValidationError("RUT inválido")
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, models.NewValidationError("formato de email inválido")
	}
	if !models.IsValidRol(input.Rol) {
		return nil, models.NewValidationError("rol inválido. Debe ser: %s o %s",
			models.RolEjecutivoPlataforma, models.RolJefatura)
	}
	if err := ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	rut := NormalizeRUT(input.RUT)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := db.Model(&models.Funcionario{}).Where("rut = ?", rut).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("error verificando RUT: %w", err)
	}
	if count > 0 {
		return nil, models.NewConflictError("ya existe un funcionario con este RUT")
	}
	if err := db.Model(&models.Funcionario{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("error verificando email: %w", err)
	}
	if count > 0 {
		return nil, models.NewConflictError("ya existe un funcionario con este email")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	funcionario := models.Funcionario{
		RUT:          rut,
		Nombres:      strings.TrimSpace(input.Nombres),
		ApellidoP:    strings.TrimSpace(input.ApellidoP),
		Email:        email,
		PasswordHash: hash,
		Rol:          input.Rol,
		Sucursal:     sucursal,
		Activo:       true,
	}
	if m := strings.TrimSpace(input.ApellidoM); m != "" {
		funcionario.ApellidoM = &m
	}

	if err := db.Create(&funcionario).Error; err != nil {
		return nil, fmt.Errorf("error creando funcionario: %w", err)
	}
	return &funcionario, nil
}

// ValidarClaveFuncionario re-checks a funcionario's password, used by
// the signing flow before accepting a functionary signature
func ValidarClaveFuncionario(db *gorm.DB, funcionarioID uint, password string) (*models.Funcionario, error) {
	if password == "" {
		return nil, models.NewValidationError("contraseña es requerida")
	}

	var funcionario models.Funcionario
	err := db.Where("id = ? AND activo = ?", funcionarioID, true).First(&funcionario).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.NewNotFoundError("funcionario no encontrado o inactivo")
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando funcionario: %w", err)
	}

	if !CheckPassword(password, funcionario.PasswordHash) {
		LogSecurityEvent("CLAVE_VALIDATION_FAILED", funcionario.RUT, "invalid password for signing")
		return nil, models.NewValidationError("contraseña incorrecta")
	}
	return &funcionario, nil
}
