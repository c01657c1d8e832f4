// Package credential declares the RD Station Marketing OAuth2 credential and
// keeps an access token fresh for outgoing requests. Storage of the token is
// owned by the host through the Store interface.
package credential

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/schema"
)

const (
	Name             = "rdStationMarketingOAuth2Api"
	DisplayName      = "RD Station Marketing OAuth2 API"
	Extends          = "oAuth2Api"
	DocumentationURL = "https://developers.rdstation.com/reference/autenticacao"

	GrantTypeAuthorizationCode = "authorizationCode"
	AuthenticationBody         = "body"
)

// Descriptor is the host-facing declaration of the credential: hidden
// OAuth2 parameters plus the hook that signs requests.
type Descriptor struct {
	Name             string
	DisplayName      string
	Extends          []string
	DocumentationURL string
	Properties       schema.Properties
}

func NewDescriptor(cfg core.OAuthConfig) Descriptor {
	authURL := strings.TrimSpace(cfg.AuthURL)
	if authURL == "" {
		authURL = core.DefaultAuthURL
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = core.DefaultTokenURL
	}
	return Descriptor{
		Name:             Name,
		DisplayName:      DisplayName,
		Extends:          []string{Extends},
		DocumentationURL: DocumentationURL,
		Properties: schema.Properties{
			{DisplayName: "Grant Type", Name: "grantType", Type: schema.TypeHidden, Default: GrantTypeAuthorizationCode},
			{DisplayName: "Authorization URL", Name: "authUrl", Type: schema.TypeHidden, Default: authURL, Required: true},
			{DisplayName: "Access Token URL", Name: "accessTokenUrl", Type: schema.TypeHidden, Default: tokenURL, Required: true},
			{DisplayName: "Scope", Name: "scope", Type: schema.TypeHidden, Default: ""},
			{DisplayName: "Auth URI Query Parameters", Name: "authQueryParameters", Type: schema.TypeHidden, Default: ""},
			{DisplayName: "Authentication", Name: "authentication", Type: schema.TypeHidden, Default: AuthenticationBody},
		},
	}
}

// Authenticate attaches the bearer token and the JSON content type. It fails
// before any network call when no access token is available.
func (Descriptor) Authenticate(req *core.TransportRequest, cred core.ActiveCredential) error {
	if req == nil {
		return fmt.Errorf("credential: request is nil")
	}
	token := strings.TrimSpace(cred.AccessToken)
	if token == "" {
		return ErrNoAccessToken()
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + token
	req.Headers["Content-Type"] = "application/json"
	return nil
}

func ErrNoAccessToken() *goerrors.Error {
	return goerrors.New("credential: no access token available", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorCredentialMissing)
}

// Authenticator signs a transport request with an active credential.
type Authenticator interface {
	Authenticate(req *core.TransportRequest, cred core.ActiveCredential) error
}

var _ Authenticator = Descriptor{}
