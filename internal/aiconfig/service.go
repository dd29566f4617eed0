// Package aiconfig stores generation settings and resolves the effective
// parameters for a contact (contact-scoped over global over static defaults).
package aiconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/coachbotai/coachbot/internal/db"
)

var ErrNotFound = errors.New("ai config not found")

type Service struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	defaults Params
}

// NewService builds the config store. The defaults come from application
// configuration and replace the static fallback wherever no stored config
// applies; a zero value falls back to the static constants.
func NewService(log *slog.Logger, pool *pgxpool.Pool, defaults Params) *Service {
	if log == nil {
		log = slog.Default()
	}
	if defaults == (Params{}) {
		defaults = Defaults()
	}
	return &Service{
		pool:     pool,
		logger:   log.With(slog.String("service", "aiconfig")),
		defaults: defaults,
	}
}

// Defaults returns the service's configured fallback parameters.
func (s *Service) Defaults() Params {
	return s.defaults
}

const configColumns = `id, contact_id, response_delay_min, response_delay_max,
	temperature, max_tokens, system_prompt, enabled, created_at, updated_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (AIConfig, error) {
	delayMin := orDefaultInt(req.ResponseDelayMin, s.defaults.DelayMin)
	delayMax := orDefaultInt(req.ResponseDelayMax, s.defaults.DelayMax)
	temperature := s.defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := orDefaultInt(req.MaxTokens, s.defaults.MaxTokens)
	if err := validateRanges(delayMin, delayMax, temperature, maxTokens); err != nil {
		return AIConfig{}, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	contactID := pgtype.UUID{}
	if req.ContactID != "" {
		parsed, err := dbpkg.ParseUUID(req.ContactID)
		if err != nil {
			return AIConfig{}, err
		}
		contactID = parsed
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO ai_configs (contact_id, response_delay_min, response_delay_max,
			temperature, max_tokens, system_prompt, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+configColumns,
		contactID, delayMin, delayMax, temperature, maxTokens,
		dbpkg.ToPgText(req.SystemPrompt), enabled)
	return scanConfig(row)
}

func (s *Service) Update(ctx context.Context, configID string, req UpdateRequest) (AIConfig, error) {
	pgID, err := dbpkg.ParseUUID(configID)
	if err != nil {
		return AIConfig{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE ai_configs SET
			response_delay_min = COALESCE($2, response_delay_min),
			response_delay_max = COALESCE($3, response_delay_max),
			temperature = COALESCE($4, temperature),
			max_tokens = COALESCE($5, max_tokens),
			system_prompt = COALESCE($6, system_prompt),
			enabled = COALESCE($7, enabled),
			updated_at = now()
		WHERE id = $1
		RETURNING `+configColumns,
		pgID, req.ResponseDelayMin, req.ResponseDelayMax, req.Temperature,
		req.MaxTokens, req.SystemPrompt, req.Enabled)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AIConfig{}, ErrNotFound
	}
	if err != nil {
		return AIConfig{}, err
	}
	if err := validateRanges(cfg.ResponseDelayMin, cfg.ResponseDelayMax, cfg.Temperature, cfg.MaxTokens); err != nil {
		return AIConfig{}, err
	}
	return cfg, nil
}

// GetGlobal returns the single global config, or ErrNotFound.
func (s *Service) GetGlobal(ctx context.Context) (AIConfig, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+configColumns+` FROM ai_configs WHERE contact_id IS NULL`)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AIConfig{}, ErrNotFound
	}
	return cfg, err
}

// GetForContact returns the contact-scoped config, or ErrNotFound.
func (s *Service) GetForContact(ctx context.Context, contactID string) (AIConfig, error) {
	pgID, err := dbpkg.ParseUUID(contactID)
	if err != nil {
		return AIConfig{}, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+configColumns+` FROM ai_configs WHERE contact_id = $1`, pgID)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AIConfig{}, ErrNotFound
	}
	return cfg, err
}

// Resolve returns the effective parameters for a contact: contact-scoped
// config wins over global; absence of both falls back to the configured
// defaults.
func (s *Service) Resolve(ctx context.Context, contactID string) (Params, error) {
	if contactID != "" {
		cfg, err := s.GetForContact(ctx, contactID)
		if err == nil {
			return ParamsFrom(cfg), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Params{}, err
		}
	}
	cfg, err := s.GetGlobal(ctx)
	if err == nil {
		return ParamsFrom(cfg), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Params{}, err
	}
	return s.defaults, nil
}

func validateRanges(delayMin, delayMax int, temperature float64, maxTokens int) error {
	if delayMin < 0 || delayMin > 60 {
		return fmt.Errorf("response_delay_min must be in [0, 60], got %d", delayMin)
	}
	if delayMax < 0 || delayMax > 120 {
		return fmt.Errorf("response_delay_max must be in [0, 120], got %d", delayMax)
	}
	if delayMin > delayMax {
		return fmt.Errorf("response_delay_min %d exceeds response_delay_max %d", delayMin, delayMax)
	}
	if temperature < 0 || temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", temperature)
	}
	if maxTokens < 50 || maxTokens > 2000 {
		return fmt.Errorf("max_tokens must be in [50, 2000], got %d", maxTokens)
	}
	return nil
}

func orDefaultInt(value *int, fallback int) int {
	if value != nil {
		return *value
	}
	return fallback
}

func scanConfig(row pgx.Row) (AIConfig, error) {
	var (
		id           pgtype.UUID
		contactID    pgtype.UUID
		delayMin     int
		delayMax     int
		temperature  float64
		maxTokens    int
		systemPrompt pgtype.Text
		enabled      bool
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	if err := row.Scan(&id, &contactID, &delayMin, &delayMax, &temperature,
		&maxTokens, &systemPrompt, &enabled, &createdAt, &updatedAt); err != nil {
		return AIConfig{}, err
	}
	return AIConfig{
		ID:               dbpkg.UUIDToString(id),
		ContactID:        dbpkg.UUIDToString(contactID),
		ResponseDelayMin: delayMin,
		ResponseDelayMax: delayMax,
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		SystemPrompt:     dbpkg.TextToString(systemPrompt),
		Enabled:          enabled,
		CreatedAt:        dbpkg.TimeFromPg(createdAt),
		UpdatedAt:        dbpkg.TimeFromPg(updatedAt),
	}, nil
}
