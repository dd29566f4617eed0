package contacts

import "time"

// Status is the contact lifecycle state.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusPaused  Status = "paused"
)

// Contact is a durable identity keyed by a unique channel address.
type Contact struct {
	ID            string    `json:"id"`
	PhoneNumber   string    `json:"phone_number"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Tags          []string  `json:"tags"`
	Status        Status    `json:"status"`
	AIEnabled     bool      `json:"ai_enabled"`
	MessageCount  int       `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at,omitzero"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateRequest struct {
	PhoneNumber string   `json:"phone_number"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Notes       string   `json:"notes"`
	Tags        []string `json:"tags"`
	Status      Status   `json:"status"`
	AIEnabled   *bool    `json:"ai_enabled"`
}

type UpdateRequest struct {
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	Notes     *string   `json:"notes"`
	Tags      *[]string `json:"tags"`
	Status    *Status   `json:"status"`
	AIEnabled *bool     `json:"ai_enabled"`
}

// ListRequest filters and pages the contact listing (newest first).
type ListRequest struct {
	Skip   int
	Limit  int
	Status Status
}
