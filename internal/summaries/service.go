// Package summaries stores durable conversation condensations.
package summaries

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/coachbotai/coachbot/internal/db"
)

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "summaries")),
	}
}

const summaryColumns = `id, contact_id, summary, key_topics, sentiment, created_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (Summary, error) {
	pgContactID, err := dbpkg.ParseUUID(req.ContactID)
	if err != nil {
		return Summary{}, err
	}
	sentiment := strings.TrimSpace(req.Sentiment)
	if sentiment == "" {
		sentiment = "neutral"
	}
	topics := req.KeyTopics
	if topics == nil {
		topics = []string{}
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversation_summaries (contact_id, summary, key_topics, sentiment)
		VALUES ($1, $2, $3, $4)
		RETURNING `+summaryColumns,
		pgContactID, req.Summary, topics, sentiment)
	return scanSummary(row)
}

// ListByContact returns a contact's summaries, newest first.
func (s *Service) ListByContact(ctx context.Context, contactID string) ([]Summary, error) {
	pgContactID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+summaryColumns+` FROM conversation_summaries
		WHERE contact_id = $1
		ORDER BY created_at DESC`, pgContactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Summary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, summary)
	}
	return items, rows.Err()
}

func scanSummary(row pgx.Row) (Summary, error) {
	var (
		id        pgtype.UUID
		contactID pgtype.UUID
		summary   string
		keyTopics []string
		sentiment string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &contactID, &summary, &keyTopics, &sentiment, &createdAt); err != nil {
		return Summary{}, err
	}
	if keyTopics == nil {
		keyTopics = []string{}
	}
	return Summary{
		ID:        dbpkg.UUIDToString(id),
		ContactID: dbpkg.UUIDToString(contactID),
		Summary:   summary,
		KeyTopics: keyTopics,
		Sentiment: sentiment,
		CreatedAt: dbpkg.TimeFromPg(createdAt),
	}, nil
}
