package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings holds every environment-driven knob of the service.
type Settings struct {
	ServerPort  string
	GinMode     string
	Environment string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBDatabase string
	DBUsername string
	DBPassword string
	DBPath     string
	DebugSQL   bool

	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	JWTSecret      string
	JWTExpireHours int

	SiteName     string
	BaseURL      string
	EmailNoReply string

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPass          string
	SMTPSkipTLSVerify bool

	MediaRoot      string
	StorageBackend string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseTLS    bool
	MaxUploadMB    int

	LoginTokenDays int

	LogOutput string
	LogLevel  string
	LogPath   string

	RegisterRatePerMinute      int
	PasswordResetRatePerMinute int
	AllowedOrigins             []string
	CookieSecure               bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_PATH", "acrevista.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("JWT_EXPIRE_HOURS", 24)
	v.SetDefault("SITE_NAME", "AC Revista")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("EMAIL_NOREPLY", "no-reply@localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("MINIO_BUCKET", "acrevista")
	v.SetDefault("MAX_UPLOAD_MB", 50)
	v.SetDefault("LOGIN_TOKEN_DAYS", 10)
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_PATH", "./logs")
	v.SetDefault("REGISTER_RATE_PER_MINUTE", 10)
	v.SetDefault("PASSWORD_RESET_RATE_PER_MINUTE", 5)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
}

// LoadSettings reads .env (if present) and the process environment.
func LoadSettings() (*Settings, error) {
	// .env is optional; the environment always wins.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	s := &Settings{
		ServerPort:  v.GetString("SERVER_PORT"),
		GinMode:     v.GetString("GIN_MODE"),
		Environment: strings.ToLower(v.GetString("ENVIRONMENT")),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBDatabase: v.GetString("DB_DATABASE"),
		DBUsername: v.GetString("DB_USERNAME"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBPath:     v.GetString("DB_PATH"),
		DebugSQL:   v.GetBool("DEBUG_SQL"),

		DBMaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetimeMin: v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES"),

		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTExpireHours: v.GetInt("JWT_EXPIRE_HOURS"),

		SiteName:     v.GetString("SITE_NAME"),
		BaseURL:      strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		EmailNoReply: v.GetString("EMAIL_NOREPLY"),

		SMTPHost:          v.GetString("SMTP_HOST"),
		SMTPPort:          v.GetInt("SMTP_PORT"),
		SMTPUser:          v.GetString("SMTP_USER"),
		SMTPPass:          v.GetString("SMTP_PASS"),
		SMTPSkipTLSVerify: v.GetBool("SMTP_SKIP_TLS_VERIFY"),

		MediaRoot:      v.GetString("MEDIA_ROOT"),
		StorageBackend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:    v.GetString("MINIO_BUCKET"),
		MinioUseTLS:    v.GetBool("MINIO_USE_TLS"),
		MaxUploadMB:    v.GetInt("MAX_UPLOAD_MB"),

		LoginTokenDays: v.GetInt("LOGIN_TOKEN_DAYS"),

		LogOutput: v.GetString("LOG_OUTPUT"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPath:   v.GetString("LOG_PATH"),

		RegisterRatePerMinute:      v.GetInt("REGISTER_RATE_PER_MINUTE"),
		PasswordResetRatePerMinute: v.GetInt("PASSWORD_RESET_RATE_PER_MINUTE"),
		AllowedOrigins:             splitList(v.GetString("ALLOWED_ORIGINS")),
		CookieSecure:               v.GetBool("COOKIE_SECURE"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings the service cannot safely start with.
func (s *Settings) Validate() error {
	if s.IsProduction() && strings.TrimSpace(s.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if s.JWTSecret == "" {
		s.JWTSecret = "development-only-secret"
	}
	if s.JWTExpireHours <= 0 {
		s.JWTExpireHours = 24
	}
	if s.MaxUploadMB <= 0 {
		s.MaxUploadMB = 50
	}
	switch s.StorageBackend {
	case "local", "minio":
	default:
		return errors.New("STORAGE_BACKEND must be 'local' or 'minio'")
	}
	return nil
}

func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

// JWTExpiration is the lifetime of API bearer tokens and web sessions.
func (s *Settings) JWTExpiration() time.Duration {
	return time.Duration(s.JWTExpireHours) * time.Hour
}

// MaxUploadBytes is the per-file upload cap.
func (s *Settings) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) * 1024 * 1024
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
