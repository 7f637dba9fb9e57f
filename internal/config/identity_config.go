package config

import (
	"strings"
	"time"
)

const (
	clientIDEnvVar     = "AZURE_CLIENT_ID"
	clientSecretEnvVar = "AZURE_CLIENT_SECRET"
	tenantIDEnvVar     = "AZURE_TENANT_ID"
	idpClientEnvVar    = "IDP_CLIENT"

	ClientKindOIDC = "oidc"
	ClientKindMSAL = "msal"
)

type IdentityConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetTenantID() string
	GetAuthority() string
	GetRedirectURI() string
	GetScopes() []string
	GetClientKind() string
	GetExchangeTimeout() time.Duration
	GetPostLogoutRedirectURI() string
	GetInstanceDiscovery() bool
	MissingIdentitySettings() []string
}

// Identity holds the Entra ID application registration settings.
type Identity struct {
	ClientID              string        `env:"AZURE_CLIENT_ID"`
	ClientSecret          string        `env:"AZURE_CLIENT_SECRET"`
	TenantID              string        `env:"AZURE_TENANT_ID"`
	AuthorityHost         string        `env:"AZURE_AUTHORITY_HOST" envDefault:"https://login.microsoftonline.com"`
	RedirectURI           string        `env:"REDIRECT_URI" envDefault:"http://localhost:8000/getAToken"`
	Scopes                []string      `env:"AZURE_SCOPES" envSeparator:"," envDefault:"User.Read"`
	ClientKind            string        `env:"IDP_CLIENT" envDefault:"oidc"`
	ExchangeTimeout       time.Duration `env:"IDP_EXCHANGE_TIMEOUT" envDefault:"10s"`
	PostLogoutRedirectURI string        `env:"POST_LOGOUT_REDIRECT_URI"`
	InstanceDiscovery     bool          `env:"AZURE_INSTANCE_DISCOVERY" envDefault:"true"`
}

var _ IdentityConfig = Identity{}

func (i Identity) GetClientID() string     { return i.ClientID }
func (i Identity) GetClientSecret() string { return i.ClientSecret }
func (i Identity) GetTenantID() string     { return i.TenantID }
func (i Identity) GetRedirectURI() string  { return i.RedirectURI }
func (i Identity) GetClientKind() string   { return i.ClientKind }

// GetAuthority returns the tenant authority, e.g.
// "https://login.microsoftonline.com/contoso.onmicrosoft.com"
func (i Identity) GetAuthority() string {
	return strings.TrimRight(i.AuthorityHost, "/") + "/" + strings.Trim(i.TenantID, "/")
}

func (i Identity) GetScopes() []string {
	scopes := make([]string, 0, len(i.Scopes))
	for _, s := range i.Scopes {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func (i Identity) GetExchangeTimeout() time.Duration {
	if i.ExchangeTimeout <= 0 {
		return 10 * time.Second
	}
	return i.ExchangeTimeout
}

// GetPostLogoutRedirectURI is empty when the request host should be used.
func (i Identity) GetPostLogoutRedirectURI() string {
	return i.PostLogoutRedirectURI
}

// GetInstanceDiscovery is only read by the MSAL backend.
func (i Identity) GetInstanceDiscovery() bool {
	return i.InstanceDiscovery
}

// MissingIdentitySettings returns the names of required variables that are unset.
func (i Identity) MissingIdentitySettings() []string {
	var missing []string
	if i.ClientID == "" {
		missing = append(missing, clientIDEnvVar)
	}
	if i.ClientSecret == "" {
		missing = append(missing, clientSecretEnvVar)
	}
	if i.TenantID == "" {
		missing = append(missing, tenantIDEnvVar)
	}
	return missing
}
