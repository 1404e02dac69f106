package config

type OAuthConfig interface {
	GetGitHubClientID() string
	GetGitHubClientSecret() string
	GetGitHubScopes() []string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetGitHubClientID() string {
	return GetEnv("GITHUB_CLIENT_ID", "")
}

func (OAuth) GetGitHubClientSecret() string {
	return GetEnv("GITHUB_CLIENT_SECRET", "")
}

func (OAuth) GetGitHubScopes() []string {
	return []string{"user:email", "read:user"}
}
