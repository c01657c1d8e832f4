package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

func TestDescriptor_DeclaresOAuthParameters(t *testing.T) {
	descriptor := NewDescriptor(core.DefaultConfig().OAuth)
	if descriptor.Name != "rdStationMarketingOAuth2Api" {
		t.Fatalf("unexpected name %q", descriptor.Name)
	}
	values := map[string]any{}
	for _, property := range descriptor.Properties {
		values[property.Name] = property.Default
	}
	if values["authUrl"] != "https://api.rd.services/auth/dialog" {
		t.Fatalf("unexpected auth url %v", values["authUrl"])
	}
	if values["accessTokenUrl"] != "https://api.rd.services/auth/token" {
		t.Fatalf("unexpected token url %v", values["accessTokenUrl"])
	}
	if values["grantType"] != "authorizationCode" || values["authentication"] != "body" {
		t.Fatalf("unexpected grant/authentication %v %v", values["grantType"], values["authentication"])
	}
	if err := descriptor.Properties.Validate(); err != nil {
		t.Fatalf("expected valid properties: %v", err)
	}
}

func TestDescriptor_Authenticate(t *testing.T) {
	req := core.TransportRequest{}
	if err := (Descriptor{}).Authenticate(&req, core.ActiveCredential{AccessToken: "tok"}); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if req.Headers["Authorization"] != "Bearer tok" {
		t.Fatalf("unexpected authorization header %q", req.Headers["Authorization"])
	}
	if req.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected content type %q", req.Headers["Content-Type"])
	}

	err := (Descriptor{}).Authenticate(&core.TransportRequest{}, core.ActiveCredential{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	if rich.Category != goerrors.CategoryAuth || rich.TextCode != core.ErrorCredentialMissing {
		t.Fatalf("unexpected error %q %q", rich.Category, rich.TextCode)
	}
}

func newTokenServer(t *testing.T, handle func(form url.Values) (int, map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		status, payload := handle(r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func TestOAuth_ExchangeSendsClientCredentialsInBody(t *testing.T) {
	var got url.Values
	server := newTokenServer(t, func(form url.Values) (int, map[string]any) {
		got = form
		return http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    86400,
		}
	})
	defer server.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	oauth, err := NewOAuth(core.OAuthConfig{
		TokenURL:     server.URL,
		AuthURL:      server.URL + "/dialog",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://host.example/callback",
	}, WithHTTPClient(server.Client()), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new oauth: %v", err)
	}
	cred, err := oauth.Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if got.Get("client_id") != "client" || got.Get("client_secret") != "secret" {
		t.Fatalf("expected client credentials in body, got %v", got)
	}
	if got.Get("code") != "code-1" || got.Get("redirect_uri") != "https://host.example/callback" {
		t.Fatalf("expected code and redirect uri, got %v", got)
	}
	if cred.AccessToken != "access-1" || cred.RefreshToken != "refresh-1" || !cred.Refreshable {
		t.Fatalf("unexpected credential %+v", cred)
	}
	if cred.ExpiresAt == nil {
		t.Fatalf("expected expiry from expires_in")
	}

	authURL := oauth.AuthCodeURL("state-1")
	if !strings.HasPrefix(authURL, server.URL+"/dialog?") || !strings.Contains(authURL, "state=state-1") {
		t.Fatalf("unexpected auth code url %q", authURL)
	}
}

func TestOAuth_RefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	server := newTokenServer(t, func(form url.Values) (int, map[string]any) {
		if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "refresh-1" {
			return http.StatusBadRequest, map[string]any{"error": "invalid_grant"}
		}
		return http.StatusOK, map[string]any{"access_token": "access-2", "expires_in": 3600}
	})
	defer server.Close()

	oauth, err := NewOAuth(core.OAuthConfig{TokenURL: server.URL, ClientID: "client"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new oauth: %v", err)
	}
	cred, err := oauth.Refresh(context.Background(), core.ActiveCredential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Metadata:     map[string]any{"account": "a1"},
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if cred.AccessToken != "access-2" || cred.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected refreshed credential %+v", cred)
	}
	if cred.Metadata["account"] != "a1" {
		t.Fatalf("expected metadata carried over, got %+v", cred.Metadata)
	}
}

func TestOAuth_RefreshFailureIsAuthError(t *testing.T) {
	server := newTokenServer(t, func(url.Values) (int, map[string]any) {
		return http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "expired"}
	})
	defer server.Close()

	oauth, _ := NewOAuth(core.OAuthConfig{TokenURL: server.URL, ClientID: "client"}, WithHTTPClient(server.Client()))
	_, err := oauth.Refresh(context.Background(), core.ActiveCredential{RefreshToken: "stale"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %v", err)
	}
	if rich.Category != goerrors.CategoryAuth || rich.TextCode != core.ErrorCredentialRefresh {
		t.Fatalf("unexpected error %q %q", rich.Category, rich.TextCode)
	}
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRefresher) Refresh(_ context.Context, cred core.ActiveCredential) (core.ActiveCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	expiresAt := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	cred.AccessToken = "fresh"
	cred.ExpiresAt = &expiresAt
	return cred, nil
}

func TestRefreshingSource_RefreshesOnceWhenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiresAt := now.Add(30 * time.Second)
	store := NewMemoryStore(&core.ActiveCredential{AccessToken: "old", RefreshToken: "r", ExpiresAt: &expiresAt})
	refresher := &countingRefresher{}
	source := NewRefreshingSource(store, refresher, time.Minute).WithClock(func() time.Time { return now })

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := source.Credential(context.Background())
			if err != nil || cred.AccessToken != "fresh" {
				t.Errorf("unexpected credential %+v err=%v", cred, err)
			}
		}()
	}
	wg.Wait()
	if refresher.calls != 1 {
		t.Fatalf("expected a single refresh, got %d", refresher.calls)
	}
	saved, _ := store.Load(context.Background())
	if saved.AccessToken != "fresh" {
		t.Fatalf("expected refreshed credential saved, got %+v", saved)
	}
}

func TestRefreshingSource_ReturnsValidCredentialUntouched(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiresAt := now.Add(time.Hour)
	store := NewMemoryStore(&core.ActiveCredential{AccessToken: "current", RefreshToken: "r", ExpiresAt: &expiresAt})
	refresher := &countingRefresher{}
	cred, err := NewRefreshingSource(store, refresher, time.Minute).WithClock(func() time.Time { return now }).Credential(context.Background())
	if err != nil || cred.AccessToken != "current" || refresher.calls != 0 {
		t.Fatalf("unexpected credential %+v err=%v calls=%d", cred, err, refresher.calls)
	}
}

func TestMemoryStore_EmptyReportsMissingToken(t *testing.T) {
	_, err := NewMemoryStore(nil).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no access token available") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}
