package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/resend/resend-go/v2"

	"saldo_insoluto_app_go/config"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("Email sent successfully via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// SendEmailAsync sends an email in a goroutine so handlers never block
// on the email provider
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}
	go func() {
		if err := SendEmail(cfg, emailCopy); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}()
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode - not actually sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// BuildItemRechazadoEmail notifies the owning funcionario that a
// supervisor rejected one of the solicitud's review categories
func BuildItemRechazadoEmail(toEmail, funcionarioNombre, folio, itemTipo, observacion string) *Email {
	text := fmt.Sprintf(
		"Estimado/a %s:\n\nLa jefatura rechazó el ítem '%s' de la solicitud %s.\n\nObservación: %s\n\nLa solicitud quedó en revisión; corrija lo observado y reenvíela.\n",
		funcionarioNombre, itemTipo, folio, observacion)
	html := fmt.Sprintf(
		"<p>Estimado/a %s:</p><p>La jefatura rechazó el ítem <strong>%s</strong> de la solicitud <strong>%s</strong>.</p><p>Observación: %s</p><p>La solicitud quedó en revisión; corrija lo observado y reenvíela.</p>",
		funcionarioNombre, itemTipo, folio, observacion)
	return &Email{
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("Solicitud %s: ítem %s rechazado", folio, itemTipo),
		HTMLBody: html,
		TextBody: text,
	}
}

// BuildSolicitudCompletadaEmail notifies the owning funcionario that
// the solicitud was approved in full
func BuildSolicitudCompletadaEmail(toEmail, funcionarioNombre, folio string) *Email {
	text := fmt.Sprintf(
		"Estimado/a %s:\n\nLa solicitud %s fue aprobada por jefatura y quedó completada.\nYa puede generar la resolución.\n",
		funcionarioNombre, folio)
	html := fmt.Sprintf(
		"<p>Estimado/a %s:</p><p>La solicitud <strong>%s</strong> fue aprobada por jefatura y quedó completada.</p><p>Ya puede generar la resolución.</p>",
		funcionarioNombre, folio)
	return &Email{
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("Solicitud %s completada", folio),
		HTMLBody: html,
		TextBody: text,
	}
}
