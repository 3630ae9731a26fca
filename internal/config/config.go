package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr      string
	PublicBaseURL string // origin used to build verification links

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CORSAllowedOrigins []string

	//Auth / Security
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	// Verification link = VerifyEmailBaseURL + token
	VerifyEmailBaseURL string

	// Storage: "mongo", "postgres" or "memory"
	DBDriver      string
	MongoURI      string
	MongoDatabase string
	DBAddr        string

	// Rate limiting; disabled when RedisAddr is empty
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RateLimitWindow time.Duration
	SignupLimit     int
	LoginLimit      int
	ResendLimit     int
	// per-IP in-process limit across all routes; 0 disables
	GlobalRateLimit int

	// Mail: "log", "smtp" or "rabbitmq"
	MailTransport  string
	RabbitURL      string
	RabbitExchange string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	SMTPFromName   string
	SMTPTLSPolicy  string

	// Avatars: "local" or "s3"
	AvatarStorage  string
	AvatarDir      string
	AvatarTmpDir   string
	AvatarBaseURL  string
	AvatarMaxBytes int64
	AvatarSize     int

	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3UsePathStyle    bool
	CDNBaseURL        string

	// Tracing; export is off when OTLPEndpoint is empty
	ServiceName      string
	OTLPEndpoint     string
	OTLPInsecure     bool
	TraceSampleRatio float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first without overriding variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":3000"),
		JWTIssuer:      getEnv("JWT_ISSUER", "contacts-service"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "mongo")),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "contacts"),
		MailTransport:  strings.ToLower(getEnv("MAIL_TRANSPORT", "log")),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "contacts.events"),
		AvatarStorage:  strings.ToLower(getEnv("AVATAR_STORAGE", "local")),
		AvatarDir:      getEnv("AVATAR_DIR", "public/avatars"),
		AvatarTmpDir:   getEnv("AVATAR_TMP_DIR", "tmp"),
		AvatarBaseURL:  strings.TrimRight(getEnv("AVATAR_BASE_URL", "/avatars"), "/"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		SMTPTLSPolicy:  getEnv("SMTP_TLS_POLICY", "opportunistic"),
	}
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost"+cfg.HTTPAddr), "/")
	cfg.VerifyEmailBaseURL = getEnv("VERIFY_EMAIL_BASE_URL", cfg.PublicBaseURL+"/api/users/verify/")

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case "mongo":
		cfg.MongoURI = os.Getenv("MONGODB_URI")
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("missing required env var: MONGODB_URI")
		}
	case "postgres":
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if !strings.HasPrefix(cfg.DBAddr, "postgres://") && !strings.HasPrefix(cfg.DBAddr, "postgresql://") {
			return nil, fmt.Errorf("DB_ADDR must be a postgres:// URL")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER: %q", cfg.DBDriver)
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SignupLimit, err = getInt("RATE_LIMIT_SIGNUP", 5); err != nil {
		return nil, err
	}
	if cfg.LoginLimit, err = getInt("RATE_LIMIT_LOGIN", 10); err != nil {
		return nil, err
	}
	if cfg.ResendLimit, err = getInt("RATE_LIMIT_RESEND", 3); err != nil {
		return nil, err
	}
	if cfg.GlobalRateLimit, err = getInt("RATE_LIMIT_GLOBAL", 300); err != nil {
		return nil, err
	}
	cfg.CORSAllowedOrigins = getList("CORS_ALLOWED_ORIGINS", []string{"*"})

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	cfg.SMTPFromName = getEnv("SMTP_FROM_NAME", "Contacts")
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.RabbitURL = os.Getenv("RABBIT_URL")

	switch cfg.MailTransport {
	case "log":
	case "smtp":
		if err := cfg.requireSMTP(); err != nil {
			return nil, err
		}
	case "rabbitmq":
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	default:
		return nil, fmt.Errorf("invalid MAIL_TRANSPORT: %q", cfg.MailTransport)
	}

	if cfg.AvatarMaxBytes, err = getInt64("AVATAR_MAX_BYTES", 5<<20); err != nil {
		return nil, err
	}
	if cfg.AvatarSize, err = getInt("AVATAR_SIZE", 250); err != nil {
		return nil, err
	}

	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3UsePathStyle = getEnv("S3_USE_PATH_STYLE", "false") == "true"
	cfg.CDNBaseURL = strings.TrimRight(os.Getenv("CDN_BASE_URL"), "/")

	if err := cfg.loadTracing("contacts-service"); err != nil {
		return nil, err
	}

	switch cfg.AvatarStorage {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("missing required env var: S3_BUCKET")
		}
		if cfg.CDNBaseURL == "" {
			return nil, fmt.Errorf("missing required env var: CDN_BASE_URL")
		}
		if (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
			return nil, fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
		}
	default:
		return nil, fmt.Errorf("invalid AVATAR_STORAGE: %q", cfg.AvatarStorage)
	}

	return cfg, nil
}

func (c *Config) loadTracing(defaultName string) error {
	c.ServiceName = getEnv("SERVICE_NAME", defaultName)
	c.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	c.OTLPInsecure = getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true"
	var err error
	c.TraceSampleRatio, err = getFloat("OTEL_TRACES_SAMPLER_ARG", 1)
	return err
}

func (c *Config) requireSMTP() error {
	if c.SMTPHost == "" {
		return fmt.Errorf("missing required env var: SMTP_HOST")
	}
	if c.SMTPFrom == "" {
		return fmt.Errorf("missing required env var: SMTP_FROM")
	}
	return nil
}

// LoadMailWorker loads the subset the mail worker needs: broker and SMTP.
func LoadMailWorker() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("MAILWORKER_HTTP_ADDR", ":8081"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "contacts.events"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:       os.Getenv("SMTP_FROM"),
		SMTPFromName:   getEnv("SMTP_FROM_NAME", "Contacts"),
		SMTPTLSPolicy:  getEnv("SMTP_TLS_POLICY", "opportunistic"),
	}
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}
	var err error
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if err := cfg.requireSMTP(); err != nil {
		return nil, err
	}
	if err := cfg.loadTracing("contacts-mailworker"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration for %s: %q: must be positive", key, v)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid ratio for %s: %q", key, v)
	}
	return f, nil
}

func getInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q: %w", key, v, err)
	}
	return n, nil
}
