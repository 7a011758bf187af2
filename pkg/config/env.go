package config

const (
	EnvPrefix = "KITCHENLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:kitchenledger.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv           = "KITCHENLEDGER_APP_ENV"
	EnvPort             = "KITCHENLEDGER_APP_PORT"
	EnvLogLevel         = "KITCHENLEDGER_LOG_LEVEL"
	EnvBusinessTimezone = "KITCHENLEDGER_BUSINESS_TIMEZONE"

	EnvDBDSN    = "KITCHENLEDGER_DB_DSN"
	EnvDBDriver = "KITCHENLEDGER_DB_DRIVER"
	EnvDBHost   = "KITCHENLEDGER_DB_HOST"
	EnvDBPort   = "KITCHENLEDGER_DB_PORT"
	EnvDBUser   = "KITCHENLEDGER_DB_USER"
	EnvDBName   = "KITCHENLEDGER_DB_NAME"

	EnvRedisURL = "KITCHENLEDGER_REDIS_URL"

	EnvJWTSecret  = "KITCHENLEDGER_JWT_SECRET"
	EnvJWTIssuer  = "KITCHENLEDGER_JWT_ISSUER"
	EnvJWTExpMins = "KITCHENLEDGER_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "KITCHENLEDGER_USE_SQLITE"
	EnvAutoMigrate = "KITCHENLEDGER_AUTO_MIGRATE"

	EnvGCPProjectID         = "KITCHENLEDGER_GCP_PROJECT_ID"
	EnvPubSubInventoryTopic = "KITCHENLEDGER_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubDocumentsTopic = "KITCHENLEDGER_PUBSUB_DOCUMENTS_TOPIC"

	EnvOutboxRetentionDays = "KITCHENLEDGER_OUTBOX_RETENTION_DAYS"
	EnvLowStockInterval    = "KITCHENLEDGER_LOW_STOCK_DIGEST_INTERVAL"

	EnvMetricsAddr = "KITCHENLEDGER_METRICS_ADDR"
	EnvCORSOrigins = "KITCHENLEDGER_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
