package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"unicode"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/models"
)

type EmailService struct {
	host    string
	port    string
	user    string
	pass    string
	from    string
	inbox   string
	siteURL string
	devMode bool
	log     *logger.Logger
}

func NewEmailService(host, port, user, pass, from, inbox, siteURL string, log *logger.Logger) *EmailService {
	devMode := host == "" || user == ""
	log = log.With("service", "EmailService")
	if devMode {
		log.Warn("email service running in dev mode, messages are logged instead of sent")
	}
	return &EmailService{
		host:    host,
		port:    port,
		user:    user,
		pass:    pass,
		from:    from,
		inbox:   inbox,
		siteURL: siteURL,
		devMode: devMode,
		log:     log,
	}
}

// StudioInbox is where booking and contact notifications go.
func (s *EmailService) StudioInbox() string { return s.inbox }

const emailLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Georgia, 'Times New Roman', serif; margin: 0; padding: 0; background-color: #fdf8f5;">
  <div style="max-width: 520px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.06); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #e8b4b8 0%%, #c98b8f 100%%); padding: 28px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px;">Bloom Wedding Photography</h1>
    </div>
    <div style="padding: 28px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #3f2f30;">%s</h2>
      <table style="width: 100%%; font-size: 14px; color: #5c4a4b; border-collapse: collapse;">%s</table>
      <p style="color: #a08c8d; font-size: 12px; margin: 24px 0 0;">Sent from <a href="%s" style="color: #c98b8f;">%s</a></p>
    </div>
  </div>
</body>
</html>`

func emailRow(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(`<tr><td style="padding: 6px 12px 6px 0; font-weight: bold; vertical-align: top;">%s</td><td style="padding: 6px 0;">%s</td></tr>`,
		html.EscapeString(label), strings.ReplaceAll(html.EscapeString(value), "\n", "<br>"))
}

func (s *EmailService) render(title string, rows ...string) string {
	return fmt.Sprintf(emailLayout, html.EscapeString(title), strings.Join(rows, ""), s.siteURL, s.siteURL)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// BookingNotification renders the studio notification for a new booking.
func (s *EmailService) BookingNotification(b *models.Booking) (subject, body string) {
	date := ""
	if b.EventDate != nil {
		date = b.EventDate.Format("Monday, January 2, 2006")
	}
	guests := ""
	if b.Guests != nil {
		guests = fmt.Sprintf("%d", *b.Guests)
	}

	subject = fmt.Sprintf("New booking request from %s", headerSafe(b.Name))
	body = s.render("New booking request",
		emailRow("Name", b.Name),
		emailRow("Email", b.Email),
		emailRow("Phone", deref(b.Phone)),
		emailRow("Event date", date),
		emailRow("Event type", deref(b.EventType)),
		emailRow("Guests", guests),
		emailRow("Message", deref(b.Message)),
	)
	return subject, body
}

// ContactNotification renders the studio notification for a contact message.
func (s *EmailService) ContactNotification(m *models.ContactMessage) (subject, body string) {
	subject = fmt.Sprintf("New message from %s", headerSafe(m.Name))
	body = s.render("New contact message",
		emailRow("Name", m.Name),
		emailRow("Email", m.Email),
		emailRow("Message", m.Message),
	)
	return subject, body
}

// headerSafe drops control characters so a value cannot end its header line.
func headerSafe(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
}

func (s *EmailService) SendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		s.log.Info("dev email", "to", to, "subject", subject)
		s.log.Debug("dev email body", "body", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", headerSafe(to)),
		fmt.Sprintf("Subject: %s", headerSafe(subject)),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.log.Info("email sent", "to", to, "subject", subject)
	return nil
}
