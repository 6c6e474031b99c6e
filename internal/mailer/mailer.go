// Package mailer delivers the verification emails for the auth flow.
//
// Sends never panic and never return a bare error: every delivery
// reports a Result the caller inspects. Registration and verification
// tolerate a failed send (it is logged and the operation proceeds);
// resend surfaces it, since delivering the code is resend's entire
// contract.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/hospms/apiserver/config"
	"github.com/hospms/apiserver/types"
)

// Result reports the outcome of one delivery attempt.
type Result struct {
	Success bool
	Err     error
}

// Mailer delivers account emails.
type Mailer interface {
	SendOTP(email, code, fullName string) Result
	SendVerificationSuccess(email, fullName string, role types.Role) Result
}

// SMTPMailer sends mail through a fixed SMTP transport. The transport
// settings are read once at construction and never mutated.
type SMTPMailer struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
}

// NewSMTPMailer constructs a mailer from SMTP config.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:        from,
		frontendURL: cfg.FrontendURL,
	}
}

// SendOTP delivers a verification code. The code expires ten minutes
// after issue; the copy says so.
func (m *SMTPMailer) SendOTP(email, code, fullName string) Result {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Thank you for registering with the Hospital Management System. "+
			"Please use the following code to verify your email address:\n\n"+
			"    %s\n\n"+
			"This code will expire in 10 minutes.\n"+
			"If you didn't request this verification, please ignore this email.\n",
		fullName, code)

	return m.send(email, "Email Verification - Hospital Management System", body)
}

// SendVerificationSuccess confirms a completed verification and names
// the role the account was granted.
func (m *SMTPMailer) SendVerificationSuccess(email, fullName string, role types.Role) Result {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your email has been verified successfully.\n\n"+
			"Your role: %s\n\n"+
			"You can now log in at %s/login and access all features available "+
			"to your role.\n",
		fullName, role, m.frontendURL)

	return m.send(email, "Email Verified Successfully - Hospital Management System", body)
}

func (m *SMTPMailer) send(to, subject, body string) Result {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, "Hospital Management System")
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return Result{Err: fmt.Errorf("send mail to %s: %w", to, err)}
	}
	return Result{Success: true}
}
