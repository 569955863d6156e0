package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

func (r Razorpay) Enabled() bool { return r.KeyID != "" && r.KeySecret != "" }

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTP) Enabled() bool { return s.Host != "" }

type Config struct {
	Port          string
	DSN           string
	SessionSecret string
	MediaDir      string
	PublicBaseURL string
	AMQPURL       string
	GinMode       string

	Razorpay Razorpay
	SMTP     SMTP

	TrialDays      int
	GraceDays      int
	ExpiryInterval time.Duration
}

// Grace is the read-only window after access ends.
func (c Config) Grace() time.Duration { return time.Duration(c.GraceDays) * 24 * time.Hour }

// LoadEnv reads .env from the working directory and its parents, so the
// binaries work when started from cmd/<name>.
func LoadEnv() {
	_ = godotenv.Overload(".env", "../.env", "../../.env")
}

// Load reads the process environment. DB_DSN is the only required value.
func Load() (Config, error) {
	c := Config{
		Port:          env("APP_PORT", "8080"),
		DSN:           os.Getenv("DB_DSN"),
		SessionSecret: env("SESSION_SECRET", "dev_fallback_secret"),
		MediaDir:      env("MEDIA_DIR", "./uploads"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		GinMode:       os.Getenv("GIN_MODE"),
		Razorpay: Razorpay{
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
			BaseURL:       env("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     env("MAIL_FROM", "no-reply@stitchdesk.local"),
		},
	}
	var err error
	if c.SMTP.Port, err = envInt("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if c.TrialDays, err = envInt("TRIAL_DAYS", 14); err != nil {
		return Config{}, err
	}
	if c.GraceDays, err = envInt("GRACE_DAYS", 30); err != nil {
		return Config{}, err
	}
	if c.ExpiryInterval, err = time.ParseDuration(env("EXPIRY_CHECK_INTERVAL", "1h")); err != nil {
		return Config{}, errors.New("EXPIRY_CHECK_INTERVAL: " + err.Error())
	}
	if c.DSN == "" {
		return Config{}, errors.New("DB_DSN is empty (check your .env)")
	}
	return c, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + ": must be an integer")
	}
	return n, nil
}
