package config

const (
	// EnvPrefix is intentionally empty: every field names its env var in full.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AQUAFINDR_DB_DSN"
	EnvDBHost = "AQUAFINDR_DB_HOST"
	EnvDBUser = "AQUAFINDR_DB_USER"
	EnvDBName = "AQUAFINDR_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
