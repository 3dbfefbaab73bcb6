package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration.
type Config struct {
	Env              string        `envconfig:"ENV" default:"dev"`
	Port             string        `envconfig:"PORT" default:"8080"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	TokenTTL         time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	BcryptCost       int           `envconfig:"BCRYPT_COST"`
	CORSAllowOrigin  []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	ObjectStoreType  string        `envconfig:"OBJECT_STORE" default:"local"`
	LocalStoreDir    string        `envconfig:"LOCAL_STORE_DIR" default:"./data/uploads"`
	AWSRegion        string        `envconfig:"AWS_REGION"`
	S3Bucket         string        `envconfig:"S3_BUCKET"`
	S3Prefix         string        `envconfig:"S3_PREFIX"`
	SSEKMSKeyID      string        `envconfig:"SSE_KMS_KEY_ID"`
	RateLimitEnabled bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RedisURL         string        `envconfig:"REDIS_URL"`
	AllowAdminSignup bool          `envconfig:"ALLOW_ADMIN_SIGNUP" default:"false"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`

	// EphemeralSecret is set when Validate had to generate a signing secret.
	EphemeralSecret bool `ignored:"true"`
}

// Load reads configuration from environment variables with sensible defaults.
// Local env files are loaded first for dev convenience; values already in the
// process environment win.
func Load() (Config, error) {
	for _, f := range []string{".env", "cmd/.env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize canonicalizes enumerated values and fills zero values that have
// no envconfig default, so hand-built configs behave like loaded ones.
func (c *Config) Normalize() {
	c.Env = normalizeEnv(c.Env)
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	c.CORSAllowOrigin = trimAll(c.CORSAllowOrigin)
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if strings.TrimSpace(c.LocalStoreDir) == "" {
		c.LocalStoreDir = "./data/uploads"
	}
}

// IsDevLike reports whether insecure dev fallbacks are permitted.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

// Validate fails when the configuration cannot run safely. In dev-like
// environments a missing signing secret is replaced by a random one.
func (c *Config) Validate() error {
	if !knownEnv(c.Env) {
		return fmt.Errorf("config: ENV %q is not one of dev, local, staging, production", c.Env)
	}
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		if !c.IsDevLike() {
			errs = append(errs, errors.New("JWT_SECRET is required outside dev"))
		} else {
			secret, err := randomSecret()
			if err != nil {
				return fmt.Errorf("config: generate secret: %w", err)
			}
			c.JWTSecret = secret
			c.EphemeralSecret = true
		}
	}
	if strings.TrimSpace(c.DatabaseURL) == "" && !c.IsDevLike() {
		errs = append(errs, errors.New("DATABASE_URL is required outside dev"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.ObjectStoreType == "s3" && (c.S3Bucket == "" || c.AWSRegion == "") {
		errs = append(errs, errors.New("S3_BUCKET and AWS_REGION are required when OBJECT_STORE=s3"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// normalizeEnv maps known spellings to their canonical name. Anything else
// is returned lower-cased so Validate can reject it.
func normalizeEnv(raw string) string {
	env := strings.ToLower(strings.TrimSpace(raw))
	switch env {
	case "", "dev", "development":
		return "dev"
	case "production", "prod":
		return "production"
	default:
		return env
	}
}

func knownEnv(env string) bool {
	switch env {
	case "dev", "local", "staging", "production":
		return true
	}
	return false
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
