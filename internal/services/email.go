package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

func (s *EmailService) SendVerificationEmail(to, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	subject := "Verify your MediPrep account"
	body := emailShell("Verify Your Email", fmt.Sprintf(`
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        Welcome to MediPrep! Click the button below to verify your email address and start preparing for your exam.
      </p>
      <a href="%s" style="display: inline-block; background: #0d9488; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Verify Email
      </a>
      <p style="color: #94a3b8; font-size: 12px; margin: 24px 0 0; line-height: 1.5;">
        If the button doesn't work, copy and paste this link:<br>
        <a href="%s" style="color: #0d9488;">%s</a>
      </p>
      <p style="color: #94a3b8; font-size: 12px; margin: 16px 0 0;">
        This link expires in 24 hours.
      </p>`, verifyURL, verifyURL, verifyURL))

	return s.sendHTML(to, subject, body)
}

func (s *EmailService) SendPasswordResetEmail(to, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	subject := "Reset your MediPrep password"
	body := emailShell("Reset Your Password", fmt.Sprintf(`
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        We received a request to reset your password. Click the button below to create a new one.
      </p>
      <a href="%s" style="display: inline-block; background: #0d9488; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Reset Password
      </a>
      <p style="color: #94a3b8; font-size: 12px; margin: 24px 0 0;">
        If you didn't request this, you can safely ignore this email. This link expires in 1 hour.
      </p>`, resetURL))

	return s.sendHTML(to, subject, body)
}

// SendStudyReminderEmail nudges a user who has been inactive, folding in the
// days remaining until their exam when one is set.
func (s *EmailService) SendStudyReminderEmail(to, fullName string, lastActivityAt *time.Time, examDate *time.Time) error {
	firstName := firstNameOf(fullName)

	inactivityLine := "It has been a while since your last practice session."
	if lastActivityAt != nil {
		days := int(time.Since(*lastActivityAt).Hours() / 24)
		if days > 0 {
			inactivityLine = fmt.Sprintf("It has been %d days since your last practice session.", days)
		}
	}

	countdownLine := ""
	if examDate != nil {
		daysLeft := int(time.Until(*examDate).Hours() / 24)
		if daysLeft > 0 {
			countdownLine = fmt.Sprintf(`
      <p style="color: #dc2626; font-size: 14px; font-weight: 600; margin: 0 0 16px;">
        %d days until your exam.
      </p>`, daysLeft)
		}
	}

	subject := "Your review queue is waiting"
	body := emailShell("Keep Your Streak Alive", fmt.Sprintf(`
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 16px;">
        Hi %s, %s Spaced repetition only works when the reviews happen — your due topics are piling up.
      </p>%s
      <a href="%s/reviews" style="display: inline-block; background: #0d9488; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Review Due Topics
      </a>`, firstName, inactivityLine, countdownLine, s.frontendURL))

	return s.sendHTML(to, subject, body)
}

// SendWeeklyProgressEmail summarizes the last seven days of studying.
func (s *EmailService) SendWeeklyProgressEmail(to, fullName string, attempts, assessments, tasksDone int, studyHours float64) error {
	firstName := firstNameOf(fullName)

	subject := "Your week in review"
	body := emailShell("Weekly Progress", fmt.Sprintf(`
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        Hi %s, here is what you got done this week:
      </p>
      <table style="width: 100%%; border-collapse: collapse; margin: 0 0 24px;">
        <tr><td style="padding: 8px 0; color: #1e293b; font-size: 14px;">Questions answered</td><td style="padding: 8px 0; color: #0d9488; font-size: 14px; font-weight: 600; text-align: right;">%d</td></tr>
        <tr><td style="padding: 8px 0; color: #1e293b; font-size: 14px;">Assessments taken</td><td style="padding: 8px 0; color: #0d9488; font-size: 14px; font-weight: 600; text-align: right;">%d</td></tr>
        <tr><td style="padding: 8px 0; color: #1e293b; font-size: 14px;">Study tasks completed</td><td style="padding: 8px 0; color: #0d9488; font-size: 14px; font-weight: 600; text-align: right;">%d</td></tr>
        <tr><td style="padding: 8px 0; color: #1e293b; font-size: 14px;">Hours of practice</td><td style="padding: 8px 0; color: #0d9488; font-size: 14px; font-weight: 600; text-align: right;">%.1f</td></tr>
      </table>
      <a href="%s/dashboard" style="display: inline-block; background: #0d9488; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Open Dashboard
      </a>`, firstName, attempts, assessments, tasksDone, studyHours, s.frontendURL))

	return s.sendHTML(to, subject, body)
}

func emailShell(heading, inner string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #0d9488 0%%, #0f766e 100%%); padding: 32px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px; font-weight: 700;">MediPrep</h1>
      <p style="color: rgba(255,255,255,0.85); margin: 8px 0 0; font-size: 14px;">Adaptive Exam Preparation</p>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">%s</h2>%s
    </div>
  </div>
</body>
</html>`, heading, inner)
}

func firstNameOf(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		log.Printf("📧 Body:\n%s", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
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

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}
