package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/config"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/referral"
)

// EmailSender delivers referral emails over SMTP. Callers treat sends as
// fire-and-forget; errors here are for their logs only.
type EmailSender struct {
	cfg config.SMTPConfig
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) SendReferralWelcome(email referral.WelcomeEmail) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	subject := fmt.Sprintf("%s has treated you to %s at Luke Robert Hair", email.ReferrerName, email.DiscountFormatted)
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"%s has shared their referral code with you, so your first visit comes with %s.\n\n"+
			"Your code: %s\n\n"+
			"Just mention it when you book. We look forward to seeing you in the chair!\n\n"+
			"Luke Robert Hair",
		email.RefereeName, email.ReferrerName, email.DiscountFormatted, email.Code,
	)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", email.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{email.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send referral email: %w", err)
	}
	return nil
}
