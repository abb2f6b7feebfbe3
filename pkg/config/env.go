package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "MEALMESH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names used by tests and tooling.
const (
	EnvAppEnv    = "MEALMESH_APP_ENV"
	EnvPort      = "MEALMESH_APP_PORT"
	EnvDBDSN     = "MEALMESH_DB_DSN"
	EnvRedisURL  = "MEALMESH_REDIS_URL"
	EnvJWTSecret = "MEALMESH_JWT_SECRET"
	EnvJWTIssuer = "MEALMESH_JWT_ISSUER"
)
