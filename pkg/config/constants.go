package config

// EnvPrefix is empty because every field carries its full STOREFRONT_* name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	CartStorageMemory = "memory"
	CartStorageRedis  = "redis"
	CartStorageBolt   = "bolt"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv        = "STOREFRONT_APP_ENV"
	EnvPort          = "STOREFRONT_APP_PORT"
	EnvLogLevel      = "STOREFRONT_LOG_LEVEL"
	EnvSiteURL       = "STOREFRONT_SITE_URL"
	EnvCatalogSource = "STOREFRONT_CATALOG_SOURCE"
	EnvCartStorage   = "STOREFRONT_CART_STORAGE"
	EnvCartBoltPath  = "STOREFRONT_CART_BOLT_PATH"
	EnvRedisURL      = "STOREFRONT_REDIS_URL"
	EnvDBDSN         = "STOREFRONT_DB_DSN"
	EnvDBDriver      = "STOREFRONT_DB_DRIVER"
	EnvMPAccessToken = "STOREFRONT_MP_ACCESS_TOKEN"
	EnvCORSOrigins   = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)
