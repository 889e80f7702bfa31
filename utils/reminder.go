package utils

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailSender delivers a reminder digest to one recipient.
type EmailSender interface {
	Send(to, subject, html string) error
}

// SendGridSender delivers mail through the SendGrid API.
type SendGridSender struct {
	apiKey    string
	fromName  string
	fromEmail string
}

func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{
		apiKey:    apiKey,
		fromName:  "TaskFlow",
		fromEmail: "donotreply@taskflow.app",
	}
}

func (s *SendGridSender) Send(to, subject, html string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, stripTags(html), html)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

func stripTags(html string) string {
	replacer := strings.NewReplacer("<h2>", "", "</h2>", "\n", "<ul>", "", "</ul>", "", "<li>", "- ", "</li>", "\n")
	return replacer.Replace(html)
}

type reminderTask struct {
	Title    string
	DueDate  string
	Priority string
}

// buildDigest renders the reminder body for one user's pending tasks.
func buildDigest(tasks []reminderTask) string {
	var sb strings.Builder
	sb.WriteString("<h2>You have pending tasks:</h2><ul>")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "<li>%s - Due: %s - Priority: %s</li>", t.Title, t.DueDate, t.Priority)
	}
	sb.WriteString("</ul>")
	return sb.String()
}

// ReminderService periodically scans for users with pending tasks and mails
// each a digest. A plain interval poll: failures are logged and skipped,
// never retried.
type ReminderService struct {
	db       *pgxpool.Pool
	sender   EmailSender
	interval time.Duration
}

func NewReminderService(db *pgxpool.Pool, sender EmailSender, interval time.Duration) *ReminderService {
	return &ReminderService{db: db, sender: sender, interval: interval}
}

// Run scans immediately, then on every tick until ctx is done.
func (s *ReminderService) Run(ctx context.Context) {
	log.Printf("task reminder service started (runs every %v)", s.interval)

	if err := s.ScanOnce(ctx); err != nil {
		log.Println("reminder scan error:", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				log.Println("reminder scan error:", err)
			}
		}
	}
}

// ScanOnce emails every user that currently has pending tasks.
func (s *ReminderService) ScanOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stmt := `SELECT u.email, t.title, to_char(t.due_date, 'YYYY-MM-DD'), t.priority
		FROM users u
		JOIN tasks t ON t.user_id = u.id
		WHERE t.status = 'Pending'
		ORDER BY u.email, t.created_at DESC`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return fmt.Errorf("error querying pending tasks: %w", err)
	}
	defer rows.Close()

	pending := map[string][]reminderTask{}
	var emails []string
	for rows.Next() {
		var email string
		var t reminderTask
		if err := rows.Scan(&email, &t.Title, &t.DueDate, &t.Priority); err != nil {
			return fmt.Errorf("error scanning reminder row: %w", err)
		}
		if _, seen := pending[email]; !seen {
			emails = append(emails, email)
		}
		pending[email] = append(pending[email], t)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, email := range emails {
		tasks := pending[email]
		if err := s.sender.Send(email, "Pending Tasks Reminder", buildDigest(tasks)); err != nil {
			log.Printf("error sending reminder to %s: %v", email, err)
			continue
		}
		log.Printf("sent pending task reminder to %s (%d tasks)", email, len(tasks))
	}
	return nil
}
