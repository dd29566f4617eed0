// Package contacts owns the contact registry: durable identities keyed by
// channel address, resolved or created on first inbound message.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/coachbotai/coachbot/internal/db"
)

var (
	ErrNotFound       = errors.New("contact not found")
	ErrDuplicatePhone = errors.New("contact already exists for phone number")
	ErrInvalidPhone   = errors.New("invalid phone number format")
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidatePhone checks the stored international form (+, country code, digits).
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return nil
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
		logger: log.With(slog.String("service", "contacts")),
	}
}

const contactColumns = `id, phone_number, name, email, notes, tags, status, ai_enabled,
	message_count, last_message_at, created_at, updated_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (Contact, error) {
	if err := ValidatePhone(req.PhoneNumber); err != nil {
		return Contact{}, err
	}
	aiEnabled := true
	if req.AIEnabled != nil {
		aiEnabled = *req.AIEnabled
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (phone_number, name, email, notes, tags, status, ai_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+contactColumns,
		req.PhoneNumber,
		dbpkg.ToPgText(req.Name),
		dbpkg.ToPgText(req.Email),
		dbpkg.ToPgText(req.Notes),
		normalizeTags(req.Tags),
		string(normalizeStatus(req.Status)),
		aiEnabled,
	)
	contact, err := scanContact(row)
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return Contact{}, ErrDuplicatePhone
		}
		return Contact{}, err
	}
	return contact, nil
}

func (s *Service) GetByID(ctx context.Context, contactID string) (Contact, error) {
	pgID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return Contact{}, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, pgID)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

func (s *Service) GetByPhone(ctx context.Context, phone string) (Contact, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE phone_number = $1`, phone)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

// ResolveOrCreate returns the contact for a normalized channel address,
// creating it on first contact. When the stored record has no display name and
// the gateway supplied one, the name is filled in as a side effect. Concurrent
// first-contact races are resolved by the unique index on phone_number: the
// losing insert re-reads the winner's row.
func (s *Service) ResolveOrCreate(ctx context.Context, phone, displayName string) (Contact, error) {
	if err := ValidatePhone(phone); err != nil {
		return Contact{}, err
	}
	contact, err := s.GetByPhone(ctx, phone)
	switch {
	case err == nil:
		if contact.Name == "" && strings.TrimSpace(displayName) != "" {
			name := strings.TrimSpace(displayName)
			updated, err := s.Update(ctx, contact.ID, UpdateRequest{Name: &name})
			if err != nil {
				s.logger.Warn("display name enrichment failed",
					slog.String("contact_id", contact.ID), slog.Any("error", err))
				return contact, nil
			}
			return updated, nil
		}
		return contact, nil
	case errors.Is(err, ErrNotFound):
		created, err := s.Create(ctx, CreateRequest{
			PhoneNumber: phone,
			Name:        strings.TrimSpace(displayName),
			Status:      StatusActive,
		})
		if err == nil {
			s.logger.Info("contact created", slog.String("phone", phone))
			return created, nil
		}
		if errors.Is(err, ErrDuplicatePhone) {
			// Lost the first-contact race; the other writer's row is authoritative.
			return s.GetByPhone(ctx, phone)
		}
		return Contact{}, err
	default:
		return Contact{}, err
	}
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Contact, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`,
		string(req.Status), req.Skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

func (s *Service) Update(ctx context.Context, contactID string, req UpdateRequest) (Contact, error) {
	pgID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return Contact{}, err
	}
	var status *string
	if req.Status != nil {
		normalized := string(normalizeStatus(*req.Status))
		status = &normalized
	}
	var tags []string
	if req.Tags != nil {
		tags = normalizeTags(*req.Tags)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE contacts SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			notes = COALESCE($4, notes),
			tags = COALESCE($5, tags),
			status = COALESCE($6, status),
			ai_enabled = COALESCE($7, ai_enabled),
			updated_at = now()
		WHERE id = $1
		RETURNING `+contactColumns,
		pgID, req.Name, req.Email, req.Notes, tags, status, req.AIEnabled)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

func (s *Service) Delete(ctx context.Context, contactID string) error {
	pgID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordMessage bumps the running message counter and last-message timestamp.
// The two fields are independent idempotent-enough updates, not a transaction.
func (s *Service) RecordMessage(ctx context.Context, contactID string) error {
	pgID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE contacts SET
			message_count = message_count + 1,
			last_message_at = now(),
			updated_at = now()
		WHERE id = $1`, pgID)
	return err
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id            pgtype.UUID
		phone         string
		name          pgtype.Text
		email         pgtype.Text
		notes         pgtype.Text
		tags          []string
		status        string
		aiEnabled     bool
		messageCount  int
		lastMessageAt pgtype.Timestamptz
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	if err := row.Scan(&id, &phone, &name, &email, &notes, &tags, &status, &aiEnabled,
		&messageCount, &lastMessageAt, &createdAt, &updatedAt); err != nil {
		return Contact{}, err
	}
	return Contact{
		ID:            dbpkg.UUIDToString(id),
		PhoneNumber:   phone,
		Name:          dbpkg.TextToString(name),
		Email:         dbpkg.TextToString(email),
		Notes:         dbpkg.TextToString(notes),
		Tags:          normalizeTags(tags),
		Status:        Status(status),
		AIEnabled:     aiEnabled,
		MessageCount:  messageCount,
		LastMessageAt: dbpkg.TimeFromPg(lastMessageAt),
		CreatedAt:     dbpkg.TimeFromPg(createdAt),
		UpdatedAt:     dbpkg.TimeFromPg(updatedAt),
	}, nil
}

func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

func normalizeStatus(status Status) Status {
	switch Status(strings.ToLower(strings.TrimSpace(string(status)))) {
	case StatusActive, StatusBlocked, StatusPaused:
		return Status(strings.ToLower(strings.TrimSpace(string(status))))
	default:
		return StatusActive
	}
}
