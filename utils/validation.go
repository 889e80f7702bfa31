package utils

import (
	"fmt"
	netmail "net/mail"
	"regexp"
	"strings"

	"taskflow/models"
)

// ValidationError marks a rejected input and names the offending field so
// the API layer can map it to a 400 without guessing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func ValidateEmail(email string) error {
	if _, err := netmail.ParseAddress(email); err != nil {
		return invalid("email", "A valid email is required")
	}
	return nil
}

func ValidatePassword(password string) error {
	// Ensure password length is at least 8 characters
	if len(password) < 8 {
		return invalid("password", "Password must be at least 8 characters long")
	}

	uppercase := regexp.MustCompile(`[A-Z]`)
	lowercase := regexp.MustCompile(`[a-z]`)
	digit := regexp.MustCompile(`\d`)
	specialChar := regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)

	if !uppercase.MatchString(password) {
		return invalid("password", "Password must contain at least one uppercase letter")
	}
	if !lowercase.MatchString(password) {
		return invalid("password", "Password must contain at least one lowercase letter")
	}
	if !digit.MatchString(password) {
		return invalid("password", "Password must contain at least one digit")
	}
	if !specialChar.MatchString(password) {
		return invalid("password", "Password must contain at least one special character")
	}

	return nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "Name is required")
	}
	return nil
}

func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return invalid("title", "Title is required")
	}
	if len(trimmed) > 200 {
		return invalid("title", "Title must be 200 characters or less")
	}
	return nil
}

func ValidatePriority(priority string) error {
	if !models.ValidPriority(priority) {
		return invalid("priority", "Priority must be Low, Medium, or High")
	}
	return nil
}

func ValidateStatus(status string) error {
	if !models.ValidStatus(status) {
		return invalid("status", "Status must be Pending or Completed")
	}
	return nil
}

func ValidateDueDate(dueDate string) error {
	if dueDate == "" {
		return invalid("due_date", "Due date is required")
	}
	if !dueDatePattern.MatchString(dueDate) {
		return invalid("due_date", fmt.Sprintf("Due date must be in YYYY-MM-DD format, got %q", dueDate))
	}
	return nil
}

// ValidateNewTask checks every field required at creation time. The first
// failure wins; nothing is written before all fields pass.
func ValidateNewTask(t models.NewTask) error {
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidatePriority(t.Priority); err != nil {
		return err
	}
	if err := ValidateDueDate(t.DueDate); err != nil {
		return err
	}
	return nil
}

// ValidateTaskPatch checks only the fields present in a partial update.
func ValidateTaskPatch(p models.TaskPatch) error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	if p.Status != nil {
		if err := ValidateStatus(*p.Status); err != nil {
			return err
		}
	}
	if p.DueDate != nil {
		if err := ValidateDueDate(*p.DueDate); err != nil {
			return err
		}
	}
	return nil
}
