package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Inventory    InventoryConfig
	Metrics      MetricsConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KITCHENLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"KITCHENLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KITCHENLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KITCHENLEDGER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"KITCHENLEDGER_LOG_FORMAT" default:"json"`
	Timezone     string `envconfig:"KITCHENLEDGER_BUSINESS_TIMEZONE" default:"Asia/Jakarta"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// Location resolves the business timezone used to date document numbers.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvBusinessTimezone, name, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"KITCHENLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KITCHENLEDGER_DB_DSN"`
	Driver string `envconfig:"KITCHENLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KITCHENLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"KITCHENLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KITCHENLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"KITCHENLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"KITCHENLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"KITCHENLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KITCHENLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KITCHENLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KITCHENLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KITCHENLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"KITCHENLEDGER_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the configured driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"KITCHENLEDGER_REDIS_URL"`
	Address      string        `envconfig:"KITCHENLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"KITCHENLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"KITCHENLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KITCHENLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KITCHENLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KITCHENLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KITCHENLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KITCHENLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KITCHENLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KITCHENLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KITCHENLEDGER_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KITCHENLEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KITCHENLEDGER_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"KITCHENLEDGER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	InventoryTopic string `envconfig:"KITCHENLEDGER_PUBSUB_INVENTORY_TOPIC" default:"kl-inventory-events"`
	DocumentsTopic string `envconfig:"KITCHENLEDGER_PUBSUB_DOCUMENTS_TOPIC" default:"kl-document-events"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"KITCHENLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"KITCHENLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int `envconfig:"KITCHENLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int `envconfig:"KITCHENLEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"KITCHENLEDGER_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

// MetricsConfig controls the standalone /metrics listener used by workers.
// The API serves /metrics on its own router.
type MetricsConfig struct {
	Addr string `envconfig:"KITCHENLEDGER_METRICS_ADDR" default:":9090"`
}

// CORSConfig lists the dashboard origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"KITCHENLEDGER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type InventoryConfig struct {
	LowStockDigestInterval time.Duration `envconfig:"KITCHENLEDGER_LOW_STOCK_DIGEST_INTERVAL" default:"24h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
