package config

// OAuthConfig supplies the externally provided provider credentials and
// endpoints. Client ID/secret have no defaults; the process should fail to
// authenticate rather than run with baked-in credentials.
type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetIssuerURL() string
	GetUserinfoURL() string
	GetRevocationURL() string
	GetScopes() []string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

func (o OAuth) GetRedirectURL() string {
	return GetEnv("OAUTH_REDIRECT_URL", EnvVars{}.GetBaseURL()+"/oauth2callback")
}

func (OAuth) GetIssuerURL() string {
	return GetEnv("OAUTH_ISSUER_URL", "https://accounts.google.com")
}

func (OAuth) GetUserinfoURL() string {
	return GetEnv("OAUTH_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo")
}

func (OAuth) GetRevocationURL() string {
	return GetEnv("OAUTH_REVOCATION_URL", "https://oauth2.googleapis.com/revoke")
}

func (OAuth) GetScopes() []string {
	return []string{"openid", "profile", "email"}
}
