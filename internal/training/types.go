package training

import "time"

// Datum is one reference snippet in the retrieval corpus.
type Datum struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Active    bool      `json:"active"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Active   *bool    `json:"active"`
}

// Scored pairs a datum with its relevance score for a query.
type Scored struct {
	Datum Datum
	Score int
}
