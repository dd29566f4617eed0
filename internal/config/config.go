// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath  = "config.toml"
	DefaultHTTPAddr    = ":8080"
	DefaultPGHost      = "127.0.0.1"
	DefaultPGPort      = 5432
	DefaultPGUser      = "postgres"
	DefaultPGDatabase  = "coachbot"
	DefaultPGSSLMode   = "disable"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultChatModel   = "gpt-4-turbo-preview"
	DefaultSummModel   = "gpt-3.5-turbo"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultDelayMin    = 2
	DefaultDelayMax    = 8
	DefaultWorkers     = 8
	DefaultQueueSize   = 64
)

// DefaultPersona is the built-in system persona used when the agent section
// does not override it.
const DefaultPersona = `Eres Rubén, un entrenador fitness experimentado y carismático.
Tienes años de experiencia ayudando a personas a transformar sus vidas a través del fitness.

Características de tu personalidad:
- Motivador pero realista
- Usas un lenguaje cercano y humano
- Das consejos prácticos y aplicables
- Te adaptas al nivel de cada persona
- Eres paciente pero firme cuando es necesario
- Usas emojis de forma natural pero sin exceso
- Recuerdas conversaciones previas con cada contacto

Siempre mantén tu identidad como Rubén y responde como lo haría un entrenador fitness real.`

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Twilio   TwilioConfig   `toml:"twilio"`
	Agent    AgentConfig    `toml:"agent"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// OpenAIConfig holds the completion service endpoint, key, and model names.
type OpenAIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	ChatModel      string `toml:"chat_model"`
	SummaryModel   string `toml:"summary_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TwilioConfig holds the messaging gateway credentials and sender number.
type TwilioConfig struct {
	AccountSID     string `toml:"account_sid"`
	AuthToken      string `toml:"auth_token"`
	WhatsAppNumber string `toml:"whatsapp_number"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AgentConfig holds persona text, generation defaults, and the reply worker pool size.
type AgentConfig struct {
	Persona     string  `toml:"persona"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	DelayMin    int     `toml:"delay_min"`
	DelayMax    int     `toml:"delay_max"`
	Workers     int     `toml:"workers"`
	QueueSize   int     `toml:"queue_size"`
}

// Load reads and parses the TOML config file at path, applies default values
// for missing fields, and validates numeric ranges.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        DefaultOpenAIURL,
			ChatModel:      DefaultChatModel,
			SummaryModel:   DefaultSummModel,
			TimeoutSeconds: 60,
		},
		Twilio: TwilioConfig{
			TimeoutSeconds: 30,
		},
		Agent: AgentConfig{
			Persona:     DefaultPersona,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			DelayMin:    DefaultDelayMin,
			DelayMax:    DefaultDelayMax,
			Workers:     DefaultWorkers,
			QueueSize:   DefaultQueueSize,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Agent.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the agent delay, temperature, and token bounds.
func (c AgentConfig) Validate() error {
	if c.DelayMin < 0 || c.DelayMin > 60 {
		return fmt.Errorf("agent.delay_min must be in [0, 60], got %d", c.DelayMin)
	}
	if c.DelayMax < 0 || c.DelayMax > 120 {
		return fmt.Errorf("agent.delay_max must be in [0, 120], got %d", c.DelayMax)
	}
	if c.DelayMin > c.DelayMax {
		return fmt.Errorf("agent.delay_min %d exceeds agent.delay_max %d", c.DelayMin, c.DelayMax)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("agent.temperature must be in [0, 2], got %v", c.Temperature)
	}
	if c.MaxTokens < 50 || c.MaxTokens > 2000 {
		return fmt.Errorf("agent.max_tokens must be in [50, 2000], got %d", c.MaxTokens)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("agent.workers must be positive, got %d", c.Workers)
	}
	return nil
}
