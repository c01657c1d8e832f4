package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL              = "https://api.rd.services"
	DefaultAuthURL              = "https://api.rd.services/auth/dialog"
	DefaultTokenURL             = "https://api.rd.services/auth/token"
	DefaultPageSize             = 200
	DefaultMaxResponseBodyBytes = int64(10 << 20)
)

type APIConfig struct {
	BaseURL              string        `koanf:"base_url" mapstructure:"base_url"`
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	PageSize             int           `koanf:"page_size" mapstructure:"page_size"`
}

type OAuthConfig struct {
	AuthURL      string        `koanf:"auth_url" mapstructure:"auth_url"`
	TokenURL     string        `koanf:"token_url" mapstructure:"token_url"`
	ClientID     string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string        `koanf:"client_secret" mapstructure:"client_secret"`
	RedirectURL  string        `koanf:"redirect_url" mapstructure:"redirect_url"`
	RefreshSkew  time.Duration `koanf:"refresh_skew" mapstructure:"refresh_skew"`
}

type NodeConfig struct {
	ContinueOnFail bool `koanf:"continue_on_fail" mapstructure:"continue_on_fail"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `koanf:"burst" mapstructure:"burst"`
}

type CacheConfig struct {
	OptionsTTL time.Duration `koanf:"options_ttl" mapstructure:"options_ttl"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	API         APIConfig       `koanf:"api" mapstructure:"api"`
	OAuth       OAuthConfig     `koanf:"oauth" mapstructure:"oauth"`
	Node        NodeConfig      `koanf:"node" mapstructure:"node"`
	RateLimit   RateLimitConfig `koanf:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig     `koanf:"cache" mapstructure:"cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "rdstation",
		API: APIConfig{
			BaseURL:              DefaultBaseURL,
			Timeout:              30 * time.Second,
			MaxResponseBodyBytes: DefaultMaxResponseBodyBytes,
			PageSize:             DefaultPageSize,
		},
		OAuth: OAuthConfig{
			AuthURL:     DefaultAuthURL,
			TokenURL:    DefaultTokenURL,
			RefreshSkew: time.Minute,
		},
		Cache: CacheConfig{
			OptionsTTL: 5 * time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := validateAbsoluteURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("core: api.timeout must be >= 0")
	}
	if c.API.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: api.max_response_body_bytes must be >= 0")
	}
	if c.API.PageSize < 0 {
		return fmt.Errorf("core: api.page_size must be >= 0")
	}
	if strings.TrimSpace(c.OAuth.AuthURL) != "" {
		if err := validateAbsoluteURL("oauth.auth_url", c.OAuth.AuthURL); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.OAuth.TokenURL) != "" {
		if err := validateAbsoluteURL("oauth.token_url", c.OAuth.TokenURL); err != nil {
			return err
		}
	}
	if c.OAuth.RefreshSkew < 0 {
		return fmt.Errorf("core: oauth.refresh_skew must be >= 0")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("core: rate_limit.requests_per_second must be >= 0")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("core: rate_limit.burst must be >= 0")
	}
	if c.Cache.OptionsTTL < 0 {
		return fmt.Errorf("core: cache.options_ttl must be >= 0")
	}
	return nil
}

func validateAbsoluteURL(key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("core: %s is required", key)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s must be an absolute url", key)
	}
	return nil
}
