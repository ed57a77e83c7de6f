package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Cache    CacheConfig
	Remote   RemoteConfig
	Mirror   MirrorConfig
	AuthDB   AuthDBConfig
	Realtime RealtimeConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"winshirt-sync"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	AdminKey    string `envconfig:"ADMIN_KEY" default:""` // static admin key, X-Admin-Key header
	LogPath     string `envconfig:"LOG_PATH" default:""`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// CacheConfig holds Redis settings (mirror backend and admin sessions).
type CacheConfig struct {
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// RemoteConfig holds Remote Data Service settings.
type RemoteConfig struct {
	Type       string `envconfig:"REMOTE_DB_TYPE" default:"postgres"` // postgres, libsql, mongodb or memory
	ProbeTable string `envconfig:"REMOTE_PROBE_TABLE" default:"lotteries"`
	// PostgreSQL settings
	Host     string `envconfig:"REMOTE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"REMOTE_DB_PORT" default:"5432"`
	Name     string `envconfig:"REMOTE_DB_NAME" default:"winshirt"`
	User     string `envconfig:"REMOTE_DB_USER" default:"postgres"`
	Password string `envconfig:"REMOTE_DB_PASS" default:""`
	SSLMode  string `envconfig:"REMOTE_DB_SSLMODE" default:"disable"`
	// libSQL / Turso settings
	LibSQLURL       string `envconfig:"LIBSQL_URL" default:""`
	LibSQLAuthToken string `envconfig:"LIBSQL_AUTH_TOKEN" default:""`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"winshirt"`
}

// MirrorConfig holds Local Mirror Store settings.
type MirrorConfig struct {
	Type      string `envconfig:"MIRROR_TYPE" default:"sqlite"` // sqlite, redis or memory
	Path      string `envconfig:"MIRROR_PATH" default:"./data/mirror.db"`
	KeyPrefix string `envconfig:"MIRROR_KEY_PREFIX" default:"winshirt:mirror"`
}

// AuthDBConfig holds MySQL connection settings (for storefront accounts).
type AuthDBConfig struct {
	Host     string `envconfig:"AUTH_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"AUTH_DB_PORT" default:"3306"`
	Name     string `envconfig:"AUTH_DB_NAME" default:"winshirt"`
	User     string `envconfig:"AUTH_DB_USER" default:"root"`
	Password string `envconfig:"AUTH_DB_PASS" default:""`
}

// RealtimeConfig holds change-notification settings.
type RealtimeConfig struct {
	Type           string        `envconfig:"REALTIME_TYPE" default:"none"` // postgres, websocket or none
	WebSocketURL   string        `envconfig:"REALTIME_WS_URL" default:""`
	Tables         []string      `envconfig:"REALTIME_TABLES" default:"lotteries,products"`
	ResyncInterval time.Duration `envconfig:"RESYNC_INTERVAL" default:"5m"`
}

// NotifyConfig holds notification sink settings.
type NotifyConfig struct {
	TelegramToken       string `envconfig:"TELEGRAM_TOKEN" default:""`
	TelegramAdminChatID int64  `envconfig:"TELEGRAM_ADMIN_CHAT_ID" default:"0"`
	FeedSize            int    `envconfig:"NOTIFY_FEED_SIZE" default:"200"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (r *RemoteConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(r.User), url.QueryEscape(r.Password), r.Host, r.Port, r.Name, r.SSLMode)
}

// LibSQLDSN returns the libSQL connection string with the auth token attached.
func (r *RemoteConfig) LibSQLDSN() string {
	if r.LibSQLAuthToken == "" {
		return r.LibSQLURL
	}
	sep := "?"
	if strings.Contains(r.LibSQLURL, "?") {
		sep = "&"
	}
	return r.LibSQLURL + sep + "authToken=" + url.QueryEscape(r.LibSQLAuthToken)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *AuthDBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
