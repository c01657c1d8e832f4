package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticConfigLoader serves a fixed raw map, typically decoded by the host
// from its own configuration source.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig loads the configured source and layers it between the
// defaults and the runtime overrides passed by the caller.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, fmt.Errorf("core: load config: %w", err)
	}
	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return Config{}, fmt.Errorf("core: resolve config: %w", err)
	}
	return resolved, nil
}

// configToLayerMap drops zero values unless includeZero is set so that a
// layer only overrides the keys it actually carries.
func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	api := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.API.BaseURL) != "" {
		api["base_url"] = cfg.API.BaseURL
	}
	if includeZero || cfg.API.Timeout != 0 {
		api["timeout"] = cfg.API.Timeout
	}
	if includeZero || cfg.API.MaxResponseBodyBytes != 0 {
		api["max_response_body_bytes"] = cfg.API.MaxResponseBodyBytes
	}
	if includeZero || cfg.API.PageSize != 0 {
		api["page_size"] = cfg.API.PageSize
	}
	if len(api) > 0 {
		layer["api"] = api
	}

	oauth := map[string]any{}
	for key, value := range map[string]string{
		"auth_url":      cfg.OAuth.AuthURL,
		"token_url":     cfg.OAuth.TokenURL,
		"client_id":     cfg.OAuth.ClientID,
		"client_secret": cfg.OAuth.ClientSecret,
		"redirect_url":  cfg.OAuth.RedirectURL,
	} {
		if includeZero || strings.TrimSpace(value) != "" {
			oauth[key] = value
		}
	}
	if includeZero || cfg.OAuth.RefreshSkew != 0 {
		oauth["refresh_skew"] = cfg.OAuth.RefreshSkew
	}
	if len(oauth) > 0 {
		layer["oauth"] = oauth
	}

	if includeZero || cfg.Node.ContinueOnFail {
		layer["node"] = map[string]any{
			"continue_on_fail": cfg.Node.ContinueOnFail,
		}
	}

	rateLimit := map[string]any{}
	if includeZero || cfg.RateLimit.RequestsPerSecond != 0 {
		rateLimit["requests_per_second"] = cfg.RateLimit.RequestsPerSecond
	}
	if includeZero || cfg.RateLimit.Burst != 0 {
		rateLimit["burst"] = cfg.RateLimit.Burst
	}
	if len(rateLimit) > 0 {
		layer["rate_limit"] = rateLimit
	}

	if includeZero || cfg.Cache.OptionsTTL != 0 {
		layer["cache"] = map[string]any{
			"options_ttl": cfg.Cache.OptionsTTL,
		}
	}
	return layer
}
