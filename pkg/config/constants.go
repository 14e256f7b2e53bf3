package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvJWTSecret    = "STOREFRONT_JWT_SECRET"
	EnvUseSQLite    = "STOREFRONT_USE_SQLITE"
	EnvQueryTimeout = "STOREFRONT_QUERY_TIMEOUT"

	EnvQueryDefaultLimit = "STOREFRONT_QUERY_DEFAULT_LIMIT"
	EnvQueryMaxLimit     = "STOREFRONT_QUERY_MAX_LIMIT"

	EnvShippingInsideDhaka = "STOREFRONT_SHIPPING_INSIDE_DHAKA_CENTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
