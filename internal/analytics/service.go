// Package analytics computes read-only dashboard aggregates over the
// contact and message stores.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/coachbotai/coachbot/internal/db"
)

// TopContact is one row of the most-active-contacts ranking.
type TopContact struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	PhoneNumber  string `json:"phone_number"`
	MessageCount int    `json:"message_count"`
}

// DailyStat is one day's message volume.
type DailyStat struct {
	Date     string `json:"date"`
	Messages int    `json:"messages"`
}

// Overview is the full dashboard payload.
type Overview struct {
	TotalContacts    int          `json:"total_contacts"`
	ActiveContacts   int          `json:"active_contacts"`
	TotalMessages    int          `json:"total_messages"`
	OutgoingMessages int          `json:"outgoing_messages"`
	IncomingMessages int          `json:"incoming_messages"`
	ResponseRate     float64      `json:"response_rate"`
	TopContacts      []TopContact `json:"top_contacts"`
	DailyStats       []DailyStat  `json:"daily_stats"`
}

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
		logger: log.With(slog.String("service", "analytics")),
	}
}

// Overview aggregates counts, the response rate, the ten most active
// contacts, and the last seven days of message volume.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM contacts),
			(SELECT count(*) FROM contacts WHERE status = 'active'),
			(SELECT count(*) FROM messages),
			(SELECT count(*) FROM messages WHERE direction = 'outgoing'),
			(SELECT count(*) FROM messages WHERE direction = 'incoming')`).
		Scan(&out.TotalContacts, &out.ActiveContacts, &out.TotalMessages,
			&out.OutgoingMessages, &out.IncomingMessages)
	if err != nil {
		return Overview{}, fmt.Errorf("aggregate counts: %w", err)
	}
	out.ResponseRate = responseRate(out.OutgoingMessages, out.IncomingMessages)

	out.TopContacts, err = s.topContacts(ctx, 10)
	if err != nil {
		return Overview{}, err
	}
	out.DailyStats, err = s.dailyStats(ctx, 7)
	if err != nil {
		return Overview{}, err
	}
	return out, nil
}

// responseRate is the share of incoming messages that got a reply, as a
// percentage capped at 100.
func responseRate(outgoing, incoming int) float64 {
	if incoming == 0 {
		return 0
	}
	rate := float64(outgoing) / float64(incoming) * 100
	if rate > 100 {
		rate = 100
	}
	return rate
}

func (s *Service) topContacts(ctx context.Context, limit int) ([]TopContact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone_number, message_count
		FROM contacts
		ORDER BY message_count DESC, created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top contacts: %w", err)
	}
	defer rows.Close()

	items := make([]TopContact, 0, limit)
	for rows.Next() {
		var (
			id    pgtype.UUID
			name  pgtype.Text
			phone string
			count int
		)
		if err := rows.Scan(&id, &name, &phone, &count); err != nil {
			return nil, err
		}
		items = append(items, TopContact{
			ID:           dbpkg.UUIDToString(id),
			Name:         dbpkg.TextToString(name),
			PhoneNumber:  phone,
			MessageCount: count,
		})
	}
	return items, rows.Err()
}

func (s *Service) dailyStats(ctx context.Context, days int) ([]DailyStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', created_at)::date AS day, count(*)
		FROM messages
		WHERE created_at >= now() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day ASC`, fmt.Sprint(days))
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	items := make([]DailyStat, 0, days)
	for rows.Next() {
		var (
			day   time.Time
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		items = append(items, DailyStat{Date: day.Format("2006-01-02"), Messages: count})
	}
	return items, rows.Err()
}
