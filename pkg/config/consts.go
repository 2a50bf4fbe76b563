package config

// EnvPrefix is the envconfig prefix shared by every seqstage binary.
const EnvPrefix = "seqstage"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SEQSTAGE_DB_DSN"
	EnvDBHost = "SEQSTAGE_DB_HOST"
	EnvDBUser = "SEQSTAGE_DB_USER"
	EnvDBName = "SEQSTAGE_DB_NAME"
)

const (
	EnvAppEnv    = "SEQSTAGE_APP_ENV"
	EnvPort      = "SEQSTAGE_APP_PORT"
	EnvRedisURL  = "SEQSTAGE_REDIS_URL"
	EnvJWTSecret = "SEQSTAGE_JWT_SECRET"
	EnvJWTIssuer = "SEQSTAGE_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
