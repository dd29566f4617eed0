package summaries

import "time"

// Summary is one periodic condensation of a contact's conversation.
// Summaries are append-only; a contact accumulates a history of them.
type Summary struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Summary   string    `json:"summary"`
	KeyTopics []string  `json:"key_topics"`
	Sentiment string    `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	ContactID string
	Summary   string
	KeyTopics []string
	Sentiment string
}
