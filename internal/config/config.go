package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	SinkGAS    = "gas"
	SinkSheets = "sheets"
)

// ErrMissingEndpoint is a configuration error; it is reported, never ignored.
var ErrMissingEndpoint = errors.New("GAS_URL is empty")

type Config struct {
	GASURL     string `env:"GAS_URL"`
	FormSecret string `env:"FORM_SECRET"`
	IntakeSink string `env:"INTAKE_SINK" envDefault:"gas"`

	SpreadsheetID            string `env:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	DriveFolderID            string `env:"GOOGLE_DRIVE_FOLDER_ID"`

	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`

	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	SessionSecret   string        `env:"SESSION_SECRET"`
	SessionTTL      time.Duration `env:"SESSION_TTL"      envDefault:"30m"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"0s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`

	EventTitle string `env:"EVENT_TITLE" envDefault:"Batik Inarom Mapandan 2026"`
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`
}

// FromEnv reads the process environment once. The returned config is usable
// for logging even when err reports a missing required value.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	c.normalize()
	return c, c.Validate()
}

func (c *Config) normalize() {
	c.GASURL = strings.TrimSpace(c.GASURL)
	c.IntakeSink = strings.ToLower(strings.TrimSpace(c.IntakeSink))
	if c.IntakeSink == "" {
		c.IntakeSink = SinkGAS
	}
	c.SpreadsheetID = strings.TrimSpace(c.SpreadsheetID)
	c.GoogleServiceAccountJSON = strings.TrimSpace(c.GoogleServiceAccountJSON)
	c.DriveFolderID = strings.TrimSpace(c.DriveFolderID)
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	if c.SessionSecret == "" {
		c.SessionSecret = c.FormSecret
	}
	if c.SessionSecret == "" {
		c.SessionSecret = randomKey()
	}
}

// Validate checks the values the selected intake sink cannot run without.
func (c Config) Validate() error {
	switch c.IntakeSink {
	case SinkGAS:
		if c.GASURL == "" {
			return ErrMissingEndpoint
		}
	case SinkSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID is empty")
		}
		if c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
		}
	default:
		return fmt.Errorf("unknown intake sink: %s", c.IntakeSink)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// Endpoint names the configured intake destination; empty means unconfigured.
func (c Config) Endpoint() string {
	if c.IntakeSink == SinkSheets {
		return c.SpreadsheetID
	}
	return c.GASURL
}

func randomKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "change-me"
	}
	return hex.EncodeToString(b)
}
