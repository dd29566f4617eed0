package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Fatalf("expected default addr %q, got %q", DefaultHTTPAddr, cfg.Server.Addr)
	}
	if cfg.Agent.DelayMin != DefaultDelayMin || cfg.Agent.DelayMax != DefaultDelayMax {
		t.Fatalf("expected default delays [%d, %d], got [%d, %d]",
			DefaultDelayMin, DefaultDelayMax, cfg.Agent.DelayMin, cfg.Agent.DelayMax)
	}
	if cfg.Agent.Persona == "" {
		t.Fatal("expected built-in persona")
	}
	if cfg.Postgres.Database != DefaultPGDatabase {
		t.Fatalf("expected default database %q, got %q", DefaultPGDatabase, cfg.Postgres.Database)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9090"

[agent]
delay_min = 1
delay_max = 3
temperature = 0.4
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected override addr, got %q", cfg.Server.Addr)
	}
	if cfg.Agent.DelayMin != 1 || cfg.Agent.DelayMax != 3 {
		t.Fatalf("expected delays [1, 3], got [%d, %d]", cfg.Agent.DelayMin, cfg.Agent.DelayMax)
	}
	if cfg.Agent.MaxTokens != DefaultMaxTokens {
		t.Fatalf("expected max_tokens default to survive partial section, got %d", cfg.Agent.MaxTokens)
	}
}

func TestAgentValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*AgentConfig)
		wantErr bool
	}{
		{name: "defaults ok", mutate: func(*AgentConfig) {}},
		{name: "min above max", mutate: func(a *AgentConfig) { a.DelayMin = 10; a.DelayMax = 5 }, wantErr: true},
		{name: "negative min", mutate: func(a *AgentConfig) { a.DelayMin = -1 }, wantErr: true},
		{name: "max over ceiling", mutate: func(a *AgentConfig) { a.DelayMax = 121 }, wantErr: true},
		{name: "max at ceiling", mutate: func(a *AgentConfig) { a.DelayMin = 120; a.DelayMax = 120 }},
		{name: "temperature out of range", mutate: func(a *AgentConfig) { a.Temperature = 2.5 }, wantErr: true},
		{name: "tokens too small", mutate: func(a *AgentConfig) { a.MaxTokens = 10 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := AgentConfig{
				Persona:     DefaultPersona,
				MaxTokens:   DefaultMaxTokens,
				Temperature: DefaultTemperature,
				DelayMin:    DefaultDelayMin,
				DelayMax:    DefaultDelayMax,
				Workers:     DefaultWorkers,
			}
			tc.mutate(&a)
			err := a.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
