package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a config that passes Validate with the memory
// history backend.
func validConfig() *Config {
	return &Config{
		ServerAddr:       ":8080",
		ModelName:        "gemini-2.5-flash",
		Temperature:      0.7,
		MaxTokens:        2048,
		MaxTurnDepth:     5,
		ModelCallsPerMin: 60,
		HeartbeatSeconds: 30,
		HistoryBackend:   HistoryMemory,
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid memory config", func(c *Config) {}, nil},
		{"missing model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"temperature too high", func(c *Config) { c.Temperature = 2.1 }, ErrInvalidTemperature},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"zero turn depth", func(c *Config) { c.MaxTurnDepth = 0 }, ErrInvalidMaxTurnDepth},
		{"huge turn depth", func(c *Config) { c.MaxTurnDepth = 50 }, ErrInvalidMaxTurnDepth},
		{"zero rate limit", func(c *Config) { c.ModelCallsPerMin = 0 }, ErrInvalidRateLimit},
		{"zero heartbeat", func(c *Config) { c.HeartbeatSeconds = 0 }, ErrInvalidHeartbeatInterval},
		{"bad server addr", func(c *Config) { c.ServerAddr = "8080" }, ErrInvalidServerAddr},
		{"unknown backend", func(c *Config) { c.HistoryBackend = "redis" }, ErrInvalidHistoryBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if err := validConfig().Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidatePostgresBackend(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg := validConfig()
	cfg.HistoryBackend = HistoryPostgres
	cfg.PostgresHost = "localhost"
	cfg.PostgresPort = 5432
	cfg.PostgresUser = "vibedrive"
	cfg.PostgresPassword = "long-enough-password"
	cfg.PostgresDBName = "vibedrive"
	cfg.PostgresSSLMode = "disable"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	cfg.PostgresPassword = "short"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgresPassword) {
		t.Errorf("Validate() error = %v, want ErrInvalidPostgresPassword", err)
	}

	cfg.PostgresPassword = "long-enough-password"
	cfg.PostgresSSLMode = "prefer"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgresSSLMode) {
		t.Errorf("Validate() error = %v, want ErrInvalidPostgresSSLMode", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() error = %v, want ErrConfigNil", err)
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super-secret-password"
	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	if strings.Contains(string(data), "super-secret-password") {
		t.Error("MarshalJSON() leaked postgres password")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in       string
		leakFree string // substring that must NOT appear
	}{
		{"short", "short"},
		{"exactly8!", "actly8"},
	}
	for _, tt := range tests {
		masked := maskSecret(tt.in)
		if strings.Contains(masked, tt.leakFree) {
			t.Errorf("maskSecret(%q) = %q leaks %q", tt.in, masked, tt.leakFree)
		}
	}
	if maskSecret("") != "" {
		t.Error("maskSecret(empty) should be empty")
	}
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresHost = "db.internal"
	cfg.PostgresPort = 5433
	cfg.PostgresUser = "vibe"
	cfg.PostgresPassword = "p w'd"
	cfg.PostgresDBName = "plans"
	cfg.PostgresSSLMode = "require"

	dsn := cfg.PostgresConnectionString()
	for _, want := range []string{"host=db.internal", "port=5433", "dbname=plans", "sslmode=require", `password='p w\'d'`} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

func TestHeartbeatInterval(t *testing.T) {
	cfg := validConfig()
	if got := cfg.HeartbeatInterval().Seconds(); got != 30 {
		t.Errorf("HeartbeatInterval() = %vs, want 30s", got)
	}
}
