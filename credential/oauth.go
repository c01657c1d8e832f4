package credential

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
	"golang.org/x/oauth2"
)

// OAuth drives the authorization code grant and token refresh against the
// RD Station token endpoint. Client credentials travel in the request body.
type OAuth struct {
	config     oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

type OAuthOption func(*OAuth)

func WithHTTPClient(client *http.Client) OAuthOption {
	return func(o *OAuth) {
		o.httpClient = client
	}
}

func WithClock(now func() time.Time) OAuthOption {
	return func(o *OAuth) {
		if now != nil {
			o.now = now
		}
	}
}

func NewOAuth(cfg core.OAuthConfig, opts ...OAuthOption) (*OAuth, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, goerrors.New("credential: client_id is required", goerrors.CategoryBadInput).
			WithTextCode(core.ErrorBadInput)
	}
	authURL := strings.TrimSpace(cfg.AuthURL)
	if authURL == "" {
		authURL = core.DefaultAuthURL
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = core.DefaultTokenURL
	}
	o := &OAuth{
		config: oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// AuthCodeURL returns the consent dialog URL for state.
func (o *OAuth) AuthCodeURL(state string) string {
	if o == nil {
		return ""
	}
	return o.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a credential.
func (o *OAuth) Exchange(ctx context.Context, code string) (core.ActiveCredential, error) {
	if o == nil {
		return core.ActiveCredential{}, errors.New("credential: oauth is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.ActiveCredential{}, goerrors.New("credential: authorization code is required", goerrors.CategoryBadInput).
			WithTextCode(core.ErrorBadInput)
	}
	token, err := o.config.Exchange(o.context(ctx), code)
	if err != nil {
		return core.ActiveCredential{}, tokenError(err, "credential: authorization code exchange failed")
	}
	return o.fromToken(token, ""), nil
}

// Refresh obtains a new access token from the refresh token of cred. The
// previous refresh token is kept when the server does not rotate it.
func (o *OAuth) Refresh(ctx context.Context, cred core.ActiveCredential) (core.ActiveCredential, error) {
	if o == nil {
		return core.ActiveCredential{}, errors.New("credential: oauth is nil")
	}
	refreshToken := strings.TrimSpace(cred.RefreshToken)
	if refreshToken == "" {
		return core.ActiveCredential{}, goerrors.New("credential: refresh token is required", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(core.ErrorCredentialRefresh)
	}
	source := o.config.TokenSource(o.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return core.ActiveCredential{}, tokenError(err, "credential: token refresh failed")
	}
	refreshed := o.fromToken(token, refreshToken)
	refreshed.Metadata = mergeMetadata(cred.Metadata, refreshed.Metadata)
	return refreshed, nil
}

func (o *OAuth) context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	return ctx
}

func (o *OAuth) fromToken(token *oauth2.Token, fallbackRefresh string) core.ActiveCredential {
	cred := core.ActiveCredential{
		TokenType:    strings.TrimSpace(token.TokenType),
		AccessToken:  strings.TrimSpace(token.AccessToken),
		RefreshToken: strings.TrimSpace(token.RefreshToken),
		Metadata:     map[string]any{"obtained_at": o.now().UTC()},
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = fallbackRefresh
	}
	cred.Refreshable = cred.RefreshToken != ""
	if !token.Expiry.IsZero() {
		expiresAt := token.Expiry.UTC()
		cred.ExpiresAt = &expiresAt
	}
	return cred
}

func tokenError(err error, message string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := http.StatusBadGateway
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		category := goerrors.CategoryExternal
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			category = goerrors.CategoryAuth
		}
		return goerrors.Wrap(err, category, message).
			WithCode(status).
			WithTextCode(core.ErrorCredentialRefresh).
			WithMetadata(map[string]any{
				"error":             retrieveErr.ErrorCode,
				"error_description": retrieveErr.ErrorDescription,
			})
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorCredentialRefresh)
}

func mergeMetadata(base map[string]any, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range overlay {
		out[key] = value
	}
	return out
}
