package aiconfig

import "time"

// AIConfig tunes reply generation, either globally (no contact link) or for
// one contact. Contact-scoped config overrides global.
type AIConfig struct {
	ID               string    `json:"id"`
	ContactID        string    `json:"contact_id,omitempty"`
	ResponseDelayMin int       `json:"response_delay_min"`
	ResponseDelayMax int       `json:"response_delay_max"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	SystemPrompt     string    `json:"system_prompt,omitempty"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateRequest struct {
	ContactID        string   `json:"contact_id"`
	ResponseDelayMin *int     `json:"response_delay_min"`
	ResponseDelayMax *int     `json:"response_delay_max"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	SystemPrompt     string   `json:"system_prompt"`
	Enabled          *bool    `json:"enabled"`
}

type UpdateRequest struct {
	ResponseDelayMin *int     `json:"response_delay_min"`
	ResponseDelayMax *int     `json:"response_delay_max"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	SystemPrompt     *string  `json:"system_prompt"`
	Enabled          *bool    `json:"enabled"`
}

// Params are the effective generation parameters after precedence resolution:
// contact-scoped config, then global config, then the service's configured
// defaults.
type Params struct {
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	DelayMin     int     `json:"delay_min"`
	DelayMax     int     `json:"delay_max"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

// Static defaults applied when neither a contact-scoped nor a global config exists.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultDelayMin    = 2
	DefaultDelayMax    = 8
)

// Defaults returns the static fallback parameters.
func Defaults() Params {
	return Params{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		DelayMin:    DefaultDelayMin,
		DelayMax:    DefaultDelayMax,
	}
}

// ParamsFrom maps a stored config onto effective parameters.
func ParamsFrom(cfg AIConfig) Params {
	return Params{
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		DelayMin:     cfg.ResponseDelayMin,
		DelayMax:     cfg.ResponseDelayMax,
		SystemPrompt: cfg.SystemPrompt,
	}
}
