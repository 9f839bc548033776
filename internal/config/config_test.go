package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":            "8080",
				"ENV":             "production",
				"DATABASE_URL":    "postgres://localhost/test",
				"DWELL":           "2s",
				"MATCH_THRESHOLD": "0.4",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.Dwell == 2*time.Second &&
					c.MatchThreshold == 0.4
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.Locator == "deepface" &&
					c.Extractor == "deepface" &&
					c.DeepFaceModel == "ArcFace" &&
					c.Dwell == 4*time.Second &&
					c.PollInterval == time.Second &&
					c.RenderInterval == 100*time.Millisecond &&
					c.SessionTimeout == 30*time.Second &&
					c.MatchThreshold == 0.6 &&
					c.ConfidenceScale == 1.0 &&
					c.CameraWidth == 320 &&
					c.CameraHeight == 240 &&
					c.MinEnrollmentImages == 4 &&
					c.Previews &&
					c.ResultTTL == 5*time.Minute &&
					c.SessionRateLimit == 30 &&
					!c.SharedRateLimit &&
					c.APIKey == "" &&
					c.WebhookPoll == 5*time.Second
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails when poll interval is zero",
			envVars: map[string]string{
				"DATABASE_URL":  "postgres://localhost/test",
				"POLL_INTERVAL": "0s",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails when duration is malformed",
			envVars: map[string]string{
				"DATABASE_URL":    "postgres://localhost/test",
				"SESSION_TIMEOUT": "thirty",
			},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Dwell:            4 * time.Second,
			PollInterval:     time.Second,
			RenderInterval:   100 * time.Millisecond,
			SessionTimeout:   30 * time.Second,
			MatchThreshold:   0.6,
			ConfidenceScale:  1,
			MaxSessions:      1,
			SessionRateLimit: 30,
			ResultTTL:        5 * time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero dwell is allowed", func(c *Config) { c.Dwell = 0 }, false},
		{"negative dwell", func(c *Config) { c.Dwell = -time.Second }, true},
		{"zero render interval", func(c *Config) { c.RenderInterval = 0 }, true},
		{"zero timeout", func(c *Config) { c.SessionTimeout = 0 }, true},
		{"zero threshold", func(c *Config) { c.MatchThreshold = 0 }, true},
		{"zero scale", func(c *Config) { c.ConfidenceScale = 0 }, true},
		{"no sessions", func(c *Config) { c.MaxSessions = 0 }, true},
		{"no rate limit", func(c *Config) { c.SessionRateLimit = 0 }, true},
		{"zero result ttl", func(c *Config) { c.ResultTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
