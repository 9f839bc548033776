package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Operator key for enrollment routes (disabled when empty)
	APIKey string `envconfig:"API_KEY"`

	// Session starts per client per minute. Shared keeps the windows in
	// PostgreSQL so every instance enforces the same limit.
	SessionRateLimit int  `envconfig:"SESSION_RATE_LIMIT" default:"30"`
	SharedRateLimit  bool `envconfig:"SHARED_RATE_LIMIT" default:"false"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Providers
	Locator       string `envconfig:"LOCATOR" default:"deepface"`
	Extractor     string `envconfig:"EXTRACTOR" default:"deepface"`
	DeepFaceURL   string `envconfig:"DEEPFACE_URL" default:"http://localhost:5000"`
	DeepFaceModel string `envconfig:"DEEPFACE_MODEL" default:"ArcFace"`
	AWSRegion     string `envconfig:"AWS_REGION" default:"us-east-1"`
	CascadePath   string `envconfig:"CASCADE_PATH" default:"haarcascade_frontalface_default.xml"`

	// Capture
	Camera       string `envconfig:"CAMERA" default:"gocv"`
	CameraDevice string `envconfig:"CAMERA_DEVICE" default:"0"`
	CameraURL    string `envconfig:"CAMERA_URL"`
	CameraWidth  int    `envconfig:"CAMERA_WIDTH" default:"320"`
	CameraHeight int    `envconfig:"CAMERA_HEIGHT" default:"240"`

	// Authentication loop
	Dwell               time.Duration `envconfig:"DWELL" default:"4s"`
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	RenderInterval      time.Duration `envconfig:"RENDER_INTERVAL" default:"100ms"`
	SessionTimeout      time.Duration `envconfig:"SESSION_TIMEOUT" default:"30s"`
	MatchThreshold      float64       `envconfig:"MATCH_THRESHOLD" default:"0.6"`
	ConfidenceScale     float64       `envconfig:"CONFIDENCE_SCALE" default:"1.0"`
	MaxSessions         int           `envconfig:"MAX_SESSIONS" default:"1"`
	GalleryTTL          time.Duration `envconfig:"GALLERY_TTL" default:"30s"`
	MinEnrollmentImages int           `envconfig:"MIN_ENROLLMENT_IMAGES" default:"4"`
	Previews            bool          `envconfig:"PREVIEWS" default:"true"`
	ResultTTL           time.Duration `envconfig:"RESULT_TTL" default:"5m"`

	// Login journal
	LoginLogPath string `envconfig:"LOGIN_LOG_PATH" default:"logins/logins.log"`

	// Webhook delivery of accepted logins (disabled when URL is empty)
	WebhookURL    string        `envconfig:"WEBHOOK_URL"`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET"`
	WebhookPoll   time.Duration `envconfig:"WEBHOOK_POLL" default:"5s"`
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that envconfig can parse but the loop cannot use
func (c *Config) Validate() error {
	switch {
	case c.Dwell < 0:
		return errors.New("DWELL must not be negative")
	case c.PollInterval <= 0:
		return errors.New("POLL_INTERVAL must be positive")
	case c.RenderInterval <= 0:
		return errors.New("RENDER_INTERVAL must be positive")
	case c.SessionTimeout <= 0:
		return errors.New("SESSION_TIMEOUT must be positive")
	case c.MatchThreshold <= 0:
		return errors.New("MATCH_THRESHOLD must be positive")
	case c.ConfidenceScale <= 0:
		return errors.New("CONFIDENCE_SCALE must be positive")
	case c.MaxSessions < 1:
		return errors.New("MAX_SESSIONS must be at least 1")
	case c.SessionRateLimit < 1:
		return errors.New("SESSION_RATE_LIMIT must be at least 1")
	case c.ResultTTL <= 0:
		return errors.New("RESULT_TTL must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
