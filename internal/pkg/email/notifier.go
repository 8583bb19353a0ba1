// Package email delivers waitlist notifications over SMTP. Delivery is
// best-effort: a failed send is logged and never propagated into the
// enrollment or promotion transaction that triggered it.
package email

import (
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/okaya/courseregistry/internal/app/models"
)

// Notifier is the notification collaborator of the enrollment core.
type Notifier interface {
	// NotifyPromoted tells a student they were enrolled from the waitlist.
	NotifyPromoted(student *models.User, section *models.Section) error
	// NotifyConflictSkipped tells a student a seat opened up but a schedule
	// conflict with another of their sections prevented enrollment.
	NotifyConflictSkipped(student *models.User, section, conflicting *models.Section) error
	// NotifyPositionChanged tells a student their waitlist position moved.
	NotifyPositionChanged(student *models.User, section *models.Section, position, total int) error
}

// SMTPConfig holds configuration for the SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// SMTPNotifier implements Notifier over net/smtp. With empty credentials it
// degrades to logging each message, which keeps development setups working
// without a mail server.
type SMTPNotifier struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPNotifier creates a new SMTP-backed notifier
func NewSMTPNotifier(config SMTPConfig, logger zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		config: config,
		logger: logger,
	}
}

func (n *SMTPNotifier) NotifyPromoted(student *models.User, section *models.Section) error {
	subject := fmt.Sprintf("Enrolled from Waitlist: %s", courseCode(section))
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Great news! A seat became available and you have been automatically enrolled in:\n\n"+
			"Course: %s\nSection: %s (Sec %d)\nSchedule: %s\nRoom: %s\n\n"+
			"Best regards,\nCourse Registration",
		student.FullName(), courseCode(section), section.Semester, section.ID,
		section.Schedule, section.RoomNumber)
	return n.send(student.Email, subject, body)
}

func (n *SMTPNotifier) NotifyConflictSkipped(student *models.User, section, conflicting *models.Section) error {
	subject := fmt.Sprintf("Waitlist Update: Schedule Conflict - %s", courseCode(section))
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A seat became available in %s (%s), but we could not enroll you due to a "+
			"schedule conflict with %s (%s).\n\n"+
			"You have been removed from the waitlist. If you would like to enroll, "+
			"please drop the conflicting course first.\n\n"+
			"Best regards,\nCourse Registration",
		student.FullName(), courseCode(section), section.Semester,
		courseCode(conflicting), conflicting.Schedule)
	return n.send(student.Email, subject, body)
}

func (n *SMTPNotifier) NotifyPositionChanged(student *models.User, section *models.Section, position, total int) error {
	subject := fmt.Sprintf("Waitlist Position Update: %s", courseCode(section))
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your position in the waitlist for %s (%s) has been updated.\n\n"+
			"Current Position: #%d\nTotal in Waitlist: %d\n\n"+
			"You will be automatically enrolled when a seat becomes available.\n\n"+
			"Best regards,\nCourse Registration",
		student.FullName(), courseCode(section), section.Semester, position, total)
	return n.send(student.Email, subject, body)
}

func (n *SMTPNotifier) send(toEmail, subject, body string) error {
	if n.config.Username == "" || n.config.Password == "" {
		n.logger.Info().
			Str("toEmail", toEmail).
			Str("subject", subject).
			Msg("SMTP credentials not configured - notification logged instead of sent")
		return nil
	}

	addr := n.config.Host + ":" + strconv.Itoa(n.config.Port)
	auth := smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.config.FromName, n.config.FromEmail, toEmail, subject, body))

	if err := smtp.SendMail(addr, auth, n.config.FromEmail, []string{toEmail}, msg); err != nil {
		n.logger.Error().Err(err).Str("toEmail", toEmail).Str("subject", subject).Msg("Failed to send notification email")
		return err
	}

	return nil
}

func courseCode(section *models.Section) string {
	if section.Course != nil {
		return section.Course.Code
	}
	return fmt.Sprintf("section %d", section.ID)
}
