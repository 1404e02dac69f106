package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
	baseURLVar   = "BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Account Gateway")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetBaseURL returns the public base URL of this gateway, used for OAuth
// callback URIs and links embedded in outgoing mail.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetIdentityAPIKey implements EnvConfig.
func (e EnvVars) GetIdentityAPIKey() string {
	return GetEnv("IDENTITY_API_KEY", "")
}

// GetIdentityProjectID implements EnvConfig.
func (e EnvVars) GetIdentityProjectID() string {
	return GetEnv("IDENTITY_PROJECT_ID", "")
}

func (EnvVars) GetIdentityBaseURL() string {
	return GetEnv("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com")
}

func (EnvVars) GetIdentityTokenURL() string {
	return GetEnv("IDENTITY_TOKEN_URL", "https://securetoken.googleapis.com")
}

// GetIdentityIssuerURL returns the OIDC issuer the provider signs session
// tokens under. Bearer tokens presented to the gateway are verified against
// this issuer's discovery document.
func (e EnvVars) GetIdentityIssuerURL() string {
	issuer := GetEnv("IDENTITY_ISSUER_URL", "")
	if issuer == "" && e.GetIdentityProjectID() != "" {
		issuer = fmt.Sprintf("https://securetoken.google.com/%s", e.GetIdentityProjectID())
	}
	return issuer
}

func (EnvVars) GetDocumentStoreBaseURL() string {
	return GetEnv("DOCSTORE_BASE_URL", "https://firestore.googleapis.com")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
