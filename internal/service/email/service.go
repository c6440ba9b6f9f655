// internal/service/email/service.go
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
	Secure   bool // implicit TLS (465) instead of STARTTLS (587)
}

// Sender delivers HTML mail over SMTP.
type Sender struct {
	cfg Config
}

// NewSender creates a new SMTP email sender.
func NewSender(cfg Config) *Sender {
	if cfg.FromName == "" {
		cfg.FromName = "Roll Call"
	}
	return &Sender{cfg: cfg}
}

// Configured reports whether an SMTP host is set
func (e *Sender) Configured() bool {
	return e.cfg.Host != ""
}

// Send sends an email with a subject and an HTML body wrapped in the layout.
func (e *Sender) Send(to, subject, bodyHTML string) error {
	if !e.Configured() {
		return fmt.Errorf("smtp is not configured")
	}

	msg := BuildMessage(e.from(), to, subject, bodyHTML)
	serverAddr := e.cfg.Host + ":" + e.cfg.Port
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)

	if !e.cfg.Secure {
		if err := smtp.SendMail(serverAddr, auth, e.cfg.Username, []string{to}, msg); err != nil {
			return fmt.Errorf("send mail failed: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: e.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}
	return e.sendMail(client, to, msg)
}

func (e *Sender) from() string {
	return fmt.Sprintf("%s <%s>", e.cfg.FromName, e.cfg.Username)
}

func (e *Sender) sendMail(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.cfg.Username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// BuildMessage renders the raw RFC 5322 message
func BuildMessage(from, to, subject, bodyHTML string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(layout(bodyHTML))
	return []byte(b.String())
}

// layout wraps content in the branded mail frame.
func layout(content string) string {
	header := `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<title>Roll Call</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f6f8fa; padding: 30px; }
		.container { max-width: 600px; margin: auto; background: #fff; border-radius: 10px; overflow: hidden; }
		.header { background: #ff7a00; color: white; text-align: center; padding: 20px; font-size: 22px; font-weight: bold; }
		.body { padding: 25px; color: #333; line-height: 1.6; }
		.footer { background: #f1f1f1; color: #555; text-align: center; padding: 15px; font-size: 13px; }
		a.button { display: inline-block; background: #ff7a00; color: white; padding: 10px 20px; border-radius: 5px; text-decoration: none; }
	</style>
</head>
<body>
<div class="container">
	<div class="header">Roll Call</div>
	<div class="body">
`
	footer := `
	</div>
	<div class="footer">Keep the streak alive.</div>
</div>
</body>
</html>
`
	return header + strings.TrimSpace(content) + footer
}
