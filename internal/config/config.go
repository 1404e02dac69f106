package config

type Config interface {
	EnvConfig
	CorsConfig
	MailConfig
	OAuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetIdentityAPIKey() string
	GetIdentityProjectID() string
	GetIdentityBaseURL() string
	GetIdentityTokenURL() string
	GetIdentityIssuerURL() string
	GetDocumentStoreBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Mail
	OAuth
	Security
}

func New() Config {
	return mainConfig{}
}
