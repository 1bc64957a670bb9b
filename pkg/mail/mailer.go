package mail

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Mailer sends transactional email over SMTP. It implements the mailer
// interfaces the registration and admin auth services depend on.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

// Config holds configuration for the SMTP mailer
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // sender address, falls back to Username
	FromName string // display name on the From header
}

// NewMailer creates a new SMTP mailer
func NewMailer(config Config) *Mailer {
	from := config.From
	if from == "" {
		from = config.Username
	}
	fromName := config.FromName
	if fromName == "" {
		fromName = "Odisha Society of Oncology"
	}
	return &Mailer{
		host:     config.Host,
		port:     config.Port,
		username: config.Username,
		password: config.Password,
		from:     from,
		fromName: fromName,
	}
}

// SendMemberOTP delivers the registration verification code
func (m *Mailer) SendMemberOTP(to, name, otp string) error {
	subject := "Verify Your Email - Membership Registration"
	body := fmt.Sprintf(`
    <div style="font-family: Arial, Helvetica, sans-serif; line-height:1.4; color:#111">
      <h3 style="margin-bottom:0.25rem">Verify Your Email</h3>
      <p style="margin-top:0; margin-bottom:1rem">Dear %s,<br>Use the following One Time Password to verify your email address. It will expire in 10 minutes.</p>
      <div style="font-size:22px; font-weight:700; letter-spacing:2px; background:#f5f5f5; display:inline-block; padding:10px 14px; border-radius:6px;">
        %s
      </div>
      <p style="margin-top:1rem; color:#666; font-size:13px">If you did not request this, ignore this email.</p>
    </div>`, htmlEscape(name), htmlEscape(otp))

	return m.send(to, subject, body)
}

// SendReviewPending notifies the applicant their registration awaits
// admin review
func (m *Mailer) SendReviewPending(to, name string) error {
	subject := "Registration Received - Under Review"
	body := fmt.Sprintf(`
    <div style="font-family: Arial, Helvetica, sans-serif; line-height:1.4; color:#111">
      <h3 style="margin-bottom:0.25rem">Registration Under Review</h3>
      <p style="margin-top:0">Dear %s,</p>
      <p>Your email has been verified and your membership application has been submitted for review. You will receive your login credentials once an administrator approves your application.</p>
      <p style="margin-top:1rem; color:#666; font-size:13px">This is an automated message, please do not reply.</p>
    </div>`, htmlEscape(name))

	return m.send(to, subject, body)
}

// SendApprovalCredentials delivers the membership id and temporary
// password after approval
func (m *Mailer) SendApprovalCredentials(to, name, uniqueID, tempPassword string) error {
	subject := "Membership Approved - Your Login Credentials"
	body := fmt.Sprintf(`
    <div style="font-family: Arial, Helvetica, sans-serif; line-height:1.4; color:#111">
      <h3 style="margin-bottom:0.25rem">Welcome, %s!</h3>
      <p style="margin-top:0">Your membership application has been approved. Use the credentials below to log in.</p>
      <table style="border-collapse:collapse; margin:1rem 0">
        <tr><td style="padding:6px 12px; background:#f5f5f5; font-weight:700">Membership ID</td><td style="padding:6px 12px; background:#f5f5f5">%s</td></tr>
        <tr><td style="padding:6px 12px; font-weight:700">Temporary Password</td><td style="padding:6px 12px">%s</td></tr>
      </table>
      <p>Please change your password after your first login.</p>
      <p style="margin-top:1rem; color:#666; font-size:13px">Keep these credentials confidential.</p>
    </div>`, htmlEscape(name), htmlEscape(uniqueID), htmlEscape(tempPassword))

	return m.send(to, subject, body)
}

// SendRejection notifies the applicant their application was declined
func (m *Mailer) SendRejection(to, name, notes string) error {
	subject := "Membership Application Update"
	reason := ""
	if strings.TrimSpace(notes) != "" {
		reason = fmt.Sprintf(`<p style="background:#f5f5f5; padding:10px 14px; border-radius:6px;">%s</p>`, htmlEscape(notes))
	}
	body := fmt.Sprintf(`
    <div style="font-family: Arial, Helvetica, sans-serif; line-height:1.4; color:#111">
      <h3 style="margin-bottom:0.25rem">Application Not Approved</h3>
      <p style="margin-top:0">Dear %s,</p>
      <p>We regret to inform you that your membership application was not approved.</p>
      %s
      <p>You may submit a new application with updated details at any time.</p>
    </div>`, htmlEscape(name), reason)

	return m.send(to, subject, body)
}

// SendPasswordChanged confirms a password change
func (m *Mailer) SendPasswordChanged(to, name string) error {
	subject := "Your Password Was Changed"
	body := fmt.Sprintf(`
    <div style="font-family: Arial, Helvetica, sans-serif; line-height:1.4; color:#111">
      <h3 style="margin-bottom:0.25rem">Password Changed</h3>
      <p style="margin-top:0">Dear %s,</p>
      <p>Your account password was changed on %s.</p>
      <p style="margin-top:1rem; color:#666; font-size:13px">If this was not you, contact the society office immediately.</p>
    </div>`, htmlEscape(name), time.Now().Format("02 Jan 2006 at 15:04 MST"))

	return m.send(to, subject, body)
}

// SendAdminOTP delivers the admin login second factor
func (m *Mailer) SendAdminOTP(to, otp string) error {
	subject := "Your Admin Login OTP"
	body := fmt.Sprintf(`
    <div style="font-family: Arial, Helvetica, sans-serif; line-height:1.4; color:#111">
      <h3 style="margin-bottom:0.25rem">Your OTP for Admin Login</h3>
      <p style="margin-top:0; margin-bottom:1rem">Use the following One Time Password to complete admin login. It will expire in 5 minutes.</p>
      <div style="font-size:22px; font-weight:700; letter-spacing:2px; background:#f5f5f5; display:inline-block; padding:10px 14px; border-radius:6px;">
        %s
      </div>
      <p style="margin-top:1rem; color:#666; font-size:13px">If you did not request this, ignore this email.</p>
    </div>`, htmlEscape(otp))

	return m.send(to, subject, body)
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	if m.host == "" {
		return fmt.Errorf("SMTP host is not configured")
	}

	msg := buildMessage(m.fromName, m.from, to, subject, htmlBody)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	return nil
}

// buildMessage assembles an RFC 5322 message with an HTML body
func buildMessage(fromName, from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
