package domain

import "time"

// Status represents the lifecycle state of a reminder
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Medication is one line of the medication list shown in the notification
type Medication struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Reminder is a scheduled medication alert for one recipient.
// ReminderDate and ReminderTime are display strings; ScheduledAt is the
// only field used to decide when the reminder is due.
type Reminder struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Seq          int64        `json:"-" gorm:"autoIncrement;not null;index"`
	OrderID      string       `json:"orderId" gorm:"not null"`
	UserID       string       `json:"userId" gorm:"index;not null"` // recipient email
	CustomerName string       `json:"customerName,omitempty"`
	ReminderDate string       `json:"reminderDate" gorm:"not null"`
	ReminderTime string       `json:"reminderTime" gorm:"not null"`
	ScheduledAt  time.Time    `json:"scheduledAt" gorm:"index;not null"`
	Notes        string       `json:"notes,omitempty"`
	Medications  []Medication `json:"reminderMedications,omitempty" gorm:"serializer:json"`

	Status        Status     `json:"status" gorm:"type:varchar(16);index;default:active"`
	Sent          bool       `json:"sent" gorm:"default:false"`
	Attempts      int        `json:"attempts" gorm:"default:0"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	LastError     *string    `json:"lastError"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Eligible reports whether the reminder may still be picked up by a tick.
func (r *Reminder) Eligible(maxAttempts int) bool {
	return r.Status == StatusActive && !r.Sent && r.Attempts < maxAttempts
}

// DueQuery selects reminders whose ScheduledAt lies in [From, To].
type DueQuery struct {
	From        time.Time
	To          time.Time
	MaxAttempts int
}

// AttemptOutcome is the result of one delivery attempt, written back by the scheduler
type AttemptOutcome struct {
	Success bool
	Error   string
	At      time.Time
}

// Failed builds a failed outcome
func Failed(at time.Time, reason string) AttemptOutcome {
	return AttemptOutcome{Success: false, Error: reason, At: at}
}

// Succeeded builds a successful outcome
func Succeeded(at time.Time) AttemptOutcome {
	return AttemptOutcome{Success: true, At: at}
}

// CreateReminderInput carries the content fields set by the creating collaborator
type CreateReminderInput struct {
	OrderID      string
	UserID       string
	CustomerName string
	ReminderDate string
	ReminderTime string
	Notes        string
	Medications  []Medication
}
