// Package training stores the reference corpus and retrieves the snippets
// most relevant to an incoming message.
package training

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/coachbotai/coachbot/internal/db"
)

var ErrNotFound = errors.New("training datum not found")

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
		logger: log.With(slog.String("service", "training")),
	}
}

const datumColumns = `id, title, content, category, tags, active, word_count, created_at, updated_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (Datum, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return Datum{}, errors.New("title and content are required")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "general"
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO training_data (title, content, category, tags, active, word_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+datumColumns,
		req.Title, req.Content, category, req.Tags, active, len(strings.Fields(req.Content)))
	return scanDatum(row)
}

// ListActive returns the retrieval corpus: active items, newest first.
func (s *Service) ListActive(ctx context.Context, skip, limit int) ([]Datum, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+datumColumns+` FROM training_data
		WHERE active
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Datum, 0)
	for rows.Next() {
		datum, err := scanDatum(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, datum)
	}
	return items, rows.Err()
}

func (s *Service) Delete(ctx context.Context, datumID string) error {
	pgID, err := dbpkg.ParseUUID(datumID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM training_data WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Relevant fetches the active corpus and scores it against the query.
// Retrieval is best-effort: a store failure logs and returns nothing rather
// than blocking reply generation.
func (s *Service) Relevant(ctx context.Context, query string, k int) []Scored {
	corpus, err := s.ListActive(ctx, 0, 50)
	if err != nil {
		s.logger.Warn("training corpus unavailable", slog.Any("error", err))
		return nil
	}
	return TopRelevant(corpus, query, k)
}

func scanDatum(row pgx.Row) (Datum, error) {
	var (
		id        pgtype.UUID
		title     string
		content   string
		category  string
		tags      []string
		active    bool
		wordCount int
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &title, &content, &category, &tags, &active,
		&wordCount, &createdAt, &updatedAt); err != nil {
		return Datum{}, err
	}
	if tags == nil {
		tags = []string{}
	}
	return Datum{
		ID:        dbpkg.UUIDToString(id),
		Title:     title,
		Content:   content,
		Category:  category,
		Tags:      tags,
		Active:    active,
		WordCount: wordCount,
		CreatedAt: dbpkg.TimeFromPg(createdAt),
		UpdatedAt: dbpkg.TimeFromPg(updatedAt),
	}, nil
}
