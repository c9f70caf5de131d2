// Package notify models post-commit notifications as a transactional
// outbox: the billing transaction writes message rows, dispatch happens
// afterwards and is never allowed to fail the financial operation.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Audience selects how a message is routed.
type Audience string

const (
	AudienceRole Audience = "ROLE"
	AudienceUser Audience = "USER"
)

// Message statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// Message is one outbox row.
type Message struct {
	ID        string    `json:"id" db:"id"`
	Audience  Audience  `json:"audience" db:"audience"`
	Role      string    `json:"role,omitempty" db:"role"`
	CentroID  int64     `json:"centro_id,omitempty" db:"centro_id"`
	UserID    int64     `json:"user_id,omitempty" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Link      string    `json:"link" db:"link"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ForRole builds a role-addressed message scoped to a centro.
func ForRole(role string, centroID int64, title, body, link string) Message {
	return Message{
		ID:       uuid.NewString(),
		Audience: AudienceRole,
		Role:     role,
		CentroID: centroID,
		Title:    title,
		Body:     body,
		Link:     link,
		Status:   StatusPending,
	}
}

// ForUser builds a user-addressed message.
func ForUser(userID int64, title, body, link string) Message {
	return Message{
		ID:       uuid.NewString(),
		Audience: AudienceUser,
		UserID:   userID,
		Title:    title,
		Body:     body,
		Link:     link,
		Status:   StatusPending,
	}
}
