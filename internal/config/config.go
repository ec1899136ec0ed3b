package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
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
	Log      LogConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Game     GameConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"SERVER_CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name          string        `envconfig:"APP_NAME" default:"caseopener-api"`
	Environment   string        `envconfig:"APP_ENV" default:"development"`
	Debug         bool          `envconfig:"APP_DEBUG" default:"false"`
	Version       string        `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey      string        `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key
	StartingMoney int64         `envconfig:"APP_STARTING_MONEY" default:"0"`
	SeedDemoUser  bool          `envconfig:"APP_SEED_DEMO_USER" default:"false"`
	SessionTTL    time.Duration `envconfig:"APP_SESSION_TTL" default:"24h"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level     string `envconfig:"LOG_LEVEL" default:"info"`
	Format    string `envconfig:"LOG_FORMAT" default:"text"`
	AddSource bool   `envconfig:"LOG_ADD_SOURCE" default:"false"`
}

// CacheConfig holds session cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"REDIS_KEY_PREFIX" default:"caseopener:"`
}

// DatabaseConfig holds store backend settings.
type DatabaseConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite, postgres, mysql or memory
	Path string `envconfig:"DB_PATH" default:"./data/caseopener.db"`
	// PostgreSQL / MySQL settings
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"0"`
	Name           string `envconfig:"DB_NAME" default:"caseopener"`
	User           string `envconfig:"DB_USER" default:"postgres"`
	Password       string `envconfig:"DB_PASS" default:""`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"`
	PostgresDriver string `envconfig:"DB_POSTGRES_DRIVER" default:"pq"` // pq or pgx
	MaxOpenConns   int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns   int    `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
}

// GameConfig holds reel geometry and catalog settings.
type GameConfig struct {
	ReelLength        int           `envconfig:"REEL_LENGTH" default:"80"`
	ReelMarginStart   int           `envconfig:"REEL_MARGIN_START" default:"25"`
	ReelMarginEnd     int           `envconfig:"REEL_MARGIN_END" default:"7"`
	CatalogFile       string        `envconfig:"CATALOG_FILE" default:""`
	AssetDir          string        `envconfig:"ASSET_DIR" default:"static/imgs/weapon"`
	AssetURLPrefix    string        `envconfig:"ASSET_URL_PREFIX" default:"static/imgs/weapon"`
	PoolCacheSize     int           `envconfig:"POOL_CACHE_SIZE" default:"64"`
	PoolCacheTTL      time.Duration `envconfig:"POOL_CACHE_TTL" default:"5m"`
	CatalogSyncPeriod time.Duration `envconfig:"CATALOG_SYNC_INTERVAL" default:"0s"`
}

// HistoryConfig holds acquisition history settings.
type HistoryConfig struct {
	Buffered      bool          `envconfig:"HISTORY_BUFFERED" default:"false"` // requires CACHE_TYPE=redis
	FlushInterval time.Duration `envconfig:"HISTORY_FLUSH_INTERVAL" default:"2s"`
	RecentLimit   int           `envconfig:"HISTORY_RECENT_LIMIT" default:"25"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	port := d.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", d.Host, port)
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql", "memory":
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.Database.Type)
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q", c.Cache.Type)
	}
	if c.History.Buffered && c.Cache.Type != "redis" {
		return fmt.Errorf("HISTORY_BUFFERED requires CACHE_TYPE=redis")
	}
	if c.History.RecentLimit <= 0 {
		return fmt.Errorf("HISTORY_RECENT_LIMIT must be positive")
	}
	if c.App.StartingMoney < 0 {
		return fmt.Errorf("APP_STARTING_MONEY must not be negative")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
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
