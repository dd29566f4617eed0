// Package messages persists the per-contact conversation log and serves the
// bounded history window used for context assembly.
package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/coachbotai/coachbot/internal/db"
)

var ErrNotFound = errors.New("message not found")

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
		logger: log.With(slog.String("service", "messages")),
	}
}

const messageColumns = `id, contact_id, content, message_type, direction,
	gateway_message_id, metadata, processed, ai_response_id, created_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (Message, error) {
	pgContactID, err := dbpkg.ParseUUID(req.ContactID)
	if err != nil {
		return Message{}, fmt.Errorf("invalid contact id: %w", err)
	}
	if req.Direction != DirectionIncoming && req.Direction != DirectionOutgoing {
		return Message{}, fmt.Errorf("invalid direction: %q", req.Direction)
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = TypeText
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return Message{}, fmt.Errorf("marshal message metadata: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (contact_id, content, message_type, direction, gateway_message_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+messageColumns,
		pgContactID, req.Content, string(messageType), string(req.Direction),
		dbpkg.ToPgText(req.GatewayMessageID), payload)
	return scanMessage(row)
}

// History returns up to limit messages for a contact in chronological
// (oldest-first) order. The store reads newest-first and the slice is reversed
// before returning, per the context-assembly contract.
func (s *Service) History(ctx context.Context, contactID string, limit int) ([]Message, error) {
	pgContactID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE contact_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, pgContactID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(items)
	return items, nil
}

// LinkResponse marks an incoming message processed and records the outgoing
// reply generated for it.
func (s *Service) LinkResponse(ctx context.Context, messageID, responseID string) error {
	pgMessageID, err := dbpkg.ParseUUID(messageID)
	if err != nil {
		return err
	}
	pgResponseID, err := dbpkg.ParseUUID(responseID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET processed = TRUE, ai_response_id = $2 WHERE id = $1`,
		pgMessageID, pgResponseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		id           pgtype.UUID
		contactID    pgtype.UUID
		content      string
		messageType  string
		direction    string
		gatewayID    pgtype.Text
		metadata     []byte
		processed    bool
		aiResponseID pgtype.UUID
		createdAt    pgtype.Timestamptz
	)
	if err := row.Scan(&id, &contactID, &content, &messageType, &direction,
		&gatewayID, &metadata, &processed, &aiResponseID, &createdAt); err != nil {
		return Message{}, err
	}
	meta := map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return Message{}, fmt.Errorf("decode message metadata: %w", err)
		}
	}
	return Message{
		ID:               dbpkg.UUIDToString(id),
		ContactID:        dbpkg.UUIDToString(contactID),
		Content:          content,
		MessageType:      Type(messageType),
		Direction:        Direction(direction),
		GatewayMessageID: dbpkg.TextToString(gatewayID),
		Metadata:         meta,
		Processed:        processed,
		AIResponseID:     dbpkg.UUIDToString(aiResponseID),
		CreatedAt:        dbpkg.TimeFromPg(createdAt),
	}, nil
}

func reverse(items []Message) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
