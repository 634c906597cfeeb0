package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnvVar overrides the config file location
const PathEnvVar = "CONFIG_PATH"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Session  SessionConfig  `yaml:"session"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Places   PlacesConfig   `yaml:"places"`
	APNs     APNsConfig     `yaml:"apns"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	CORSOrigins    []string `yaml:"cors_origins"`
	AuthRateLimit  int      `yaml:"auth_rate_limit"` // requests per minute per IP on login/register
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds S3 photo storage configuration
type AWSConfig struct {
	Region     string        `yaml:"region"`
	S3Bucket   string        `yaml:"s3_bucket"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Endpoint   string        `yaml:"endpoint"` // S3-compatible endpoint, empty for AWS
	PathStyle  bool          `yaml:"path_style"`
	KeyPrefix  string        `yaml:"key_prefix"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// SessionConfig controls the session cookie
type SessionConfig struct {
	CookieName   string        `yaml:"cookie_name"`
	TTL          time.Duration `yaml:"ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

// OAuthConfig points at the hosted identity provider
type OAuthConfig struct {
	LoginURL       string        `yaml:"login_url"`
	SessionDataURL string        `yaml:"session_data_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

// PlacesConfig points at an optional places/geocoding provider
type PlacesConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// APNsConfig enables review push notifications to excursion authors
type APNsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	KeyPath    string `yaml:"key_path"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a configuration with every optional value filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8001,
			Host:           "0.0.0.0",
			CORSOrigins:    []string{"http://localhost:3000"},
			AuthRateLimit:  20,
			MaxUploadBytes: 20 << 20,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		AWS: AWSConfig{
			Region:     "eu-central-1",
			KeyPrefix:  "photos/",
			PresignTTL: 15 * time.Minute,
		},
		JWT: JWTConfig{
			Issuer: "ausflug-backend",
		},
		Session: SessionConfig{
			CookieName:   "session_token",
			TTL:          7 * 24 * time.Hour,
			CookieSecure: true,
		},
		OAuth: OAuthConfig{
			Timeout: 10 * time.Second,
		},
		Places: PlacesConfig{
			UserAgent: "ausflug-backend",
			Timeout:   5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env (if present), the YAML file at path and then environment
// overrides. CONFIG_PATH takes precedence over path.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if p := os.Getenv(PathEnvVar); p != "" {
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployments are fine
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	str("DATABASE_HOST", &c.Database.Host)
	str("DATABASE_USER", &c.Database.User)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("DATABASE_NAME", &c.Database.DBName)
	str("JWT_SECRET", &c.JWT.Secret)
	str("AWS_REGION", &c.AWS.Region)
	str("S3_BUCKET", &c.AWS.S3Bucket)
	str("AWS_ACCESS_KEY_ID", &c.AWS.AccessKey)
	str("AWS_SECRET_ACCESS_KEY", &c.AWS.SecretKey)
	str("S3_ENDPOINT", &c.AWS.Endpoint)
	str("OAUTH_LOGIN_URL", &c.OAuth.LoginURL)
	str("OAUTH_SESSION_DATA_URL", &c.OAuth.SessionDataURL)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := os.LookupEnv("DATABASE_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	return nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var problems []string
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	} else if len(c.JWT.Secret) < 32 {
		problems = append(problems, "jwt.secret must be at least 32 characters")
	}
	if c.Database.DBName == "" {
		problems = append(problems, "database.dbname is required")
	}
	if c.AWS.S3Bucket == "" {
		problems = append(problems, "aws.s3_bucket is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Session.TTL <= 0 {
		problems = append(problems, "session.ttl must be positive")
	}
	if c.Places.Enabled && c.Places.BaseURL == "" {
		problems = append(problems, "places.base_url is required when places are enabled")
	}
	if c.APNs.Enabled && (c.APNs.KeyPath == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		problems = append(problems, "apns.key_path, key_id, team_id and topic are required when apns is enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Enabled reports whether the delegated login path is configured
func (c *OAuthConfig) Enabled() bool {
	return c.LoginURL != "" && c.SessionDataURL != ""
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
