package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medreminder-backend/internal/reminder/domain"

	"github.com/google/uuid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reminders (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT    NOT NULL UNIQUE,
	order_id        TEXT    NOT NULL,
	user_id         TEXT    NOT NULL,
	customer_name   TEXT    NOT NULL DEFAULT '',
	reminder_date   TEXT    NOT NULL,
	reminder_time   TEXT    NOT NULL,
	scheduled_at    INTEGER NOT NULL,
	notes           TEXT    NOT NULL DEFAULT '',
	medications     TEXT    NOT NULL DEFAULT '[]',
	status          TEXT    NOT NULL DEFAULT 'active',
	sent            INTEGER NOT NULL DEFAULT 0,
	attempts        INTEGER NOT NULL DEFAULT 0,
	last_attempt_at INTEGER,
	sent_at         INTEGER,
	last_error      TEXT,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, sent, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id);
`

const reminderColumns = `seq, id, order_id, user_id, customer_name, reminder_date, reminder_time,
	scheduled_at, notes, medications, status, sent, attempts, last_attempt_at, sent_at,
	last_error, created_at, updated_at`

// sqliteReminderRepository stores reminders in a SQLite database.
// All instants are stored as unix milliseconds so range queries compare integers.
type sqliteReminderRepository struct {
	db *sql.DB
}

// NewSQLiteReminderRepository ensures the schema exists and returns a repository over db
func NewSQLiteReminderRepository(ctx context.Context, db *sql.DB) (ReminderRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create reminders table: %w", err)
	}
	return &sqliteReminderRepository{db: db}, nil
}

func (r *sqliteReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	if reminder.Status == "" {
		reminder.Status = domain.StatusActive
	}

	meds, err := json.Marshal(reminder.Medications)
	if err != nil {
		return fmt.Errorf("failed to encode medications: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (id, order_id, user_id, customer_name, reminder_date, reminder_time,
			scheduled_at, notes, medications, status, sent, attempts, last_attempt_at, sent_at,
			last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, reminder.ID, reminder.OrderID, reminder.UserID, reminder.CustomerName,
		reminder.ReminderDate, reminder.ReminderTime, toMillis(reminder.ScheduledAt),
		reminder.Notes, string(meds), string(reminder.Status), reminder.Sent, reminder.Attempts,
		nullMillis(reminder.LastAttemptAt), nullMillis(reminder.SentAt), nullString(reminder.LastError),
		toMillis(reminder.CreatedAt), toMillis(reminder.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		reminder.Seq = seq
	}
	return nil
}

func (r *sqliteReminderRepository) FindByID(ctx context.Context, id string) (*domain.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	reminder, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

func (r *sqliteReminderRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE user_id = ? ORDER BY created_at DESC, seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *sqliteReminderRepository) FindDue(ctx context.Context, q domain.DueQuery) ([]*domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE status = ? AND sent = 0 AND attempts < ?
		  AND scheduled_at >= ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, seq ASC
	`, string(domain.StatusActive), q.MaxAttempts, toMillis(q.From), toMillis(q.To))
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *sqliteReminderRepository) RecordAttemptOutcome(ctx context.Context, id string, outcome domain.AttemptOutcome) (*domain.Reminder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	at := toMillis(outcome.At)
	now := toMillis(time.Now())
	var res sql.Result
	if outcome.Success {
		res, err = tx.ExecContext(ctx, `
			UPDATE reminders
			SET attempts = attempts + 1, last_attempt_at = ?, status = ?,
			    sent = 1, sent_at = ?, last_error = NULL, updated_at = ?
			WHERE id = ?
		`, at, string(domain.StatusCompleted), at, now, id)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE reminders
			SET attempts = attempts + 1, last_attempt_at = ?, status = ?,
			    last_error = ?, updated_at = ?
			WHERE id = ?
		`, at, string(domain.StatusCompleted), outcome.Error, now, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}

	saved, err := scanReminder(tx.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload reminder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit attempt: %w", err)
	}
	return saved, nil
}

func (r *sqliteReminderRepository) SweepStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET status = ?, updated_at = ?
		WHERE status = ? AND scheduled_at < ?
	`, string(domain.StatusCompleted), toMillis(time.Now()), string(domain.StatusActive), toMillis(staleBefore))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep reminders: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *sqliteReminderRepository) Cancel(ctx context.Context, id string) (*domain.Reminder, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.StatusCancelled), toMillis(time.Now()), id, string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reminder: %w", err)
	}

	reminder, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: reminder is %s", domain.ErrInvalidTransition, reminder.Status)
	}
	return reminder, nil
}

func (r *sqliteReminderRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var (
		rem                             domain.Reminder
		status, meds                    string
		scheduledAt, createdAt, updated int64
		lastAttemptAt, sentAt           sql.NullInt64
		lastError                       sql.NullString
	)
	if err := row.Scan(&rem.Seq, &rem.ID, &rem.OrderID, &rem.UserID, &rem.CustomerName,
		&rem.ReminderDate, &rem.ReminderTime, &scheduledAt, &rem.Notes, &meds, &status,
		&rem.Sent, &rem.Attempts, &lastAttemptAt, &sentAt, &lastError, &createdAt, &updated); err != nil {
		return nil, err
	}

	rem.Status = domain.Status(status)
	rem.ScheduledAt = fromMillis(scheduledAt)
	rem.CreatedAt = fromMillis(createdAt)
	rem.UpdatedAt = fromMillis(updated)
	if lastAttemptAt.Valid {
		t := fromMillis(lastAttemptAt.Int64)
		rem.LastAttemptAt = &t
	}
	if sentAt.Valid {
		t := fromMillis(sentAt.Int64)
		rem.SentAt = &t
	}
	if lastError.Valid {
		s := lastError.String
		rem.LastError = &s
	}
	if meds != "" {
		if err := json.Unmarshal([]byte(meds), &rem.Medications); err != nil {
			return nil, fmt.Errorf("failed to decode medications: %w", err)
		}
	}
	return &rem, nil
}

func scanReminders(rows *sql.Rows) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
