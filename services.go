package rdstation

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/adapters/gologger"
	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/credential"
	"github.com/goliatone/go-rdstation/node"
	"github.com/goliatone/go-rdstation/ratelimit"
	"github.com/goliatone/go-rdstation/schema"
	"github.com/goliatone/go-rdstation/transport"
)

type Config = core.Config

// Service wires the credential flow, the request client and the node
// dispatcher behind one host facing API.
type Service struct {
	config         Config
	logger         core.Logger
	loggerProvider core.LoggerProvider
	observer       *core.Observer
	errorMapper    core.ErrorMapper
	oauth          *credential.OAuth
	refresher      credential.Refresher
	store          credential.Store
	source         credential.Source
	gate           *ratelimit.Gate
	client         *api.Client
	dispatcher     *node.Dispatcher
	loader         *api.Loader
	options        *api.CachedOptionsLoader
	activityReader core.ActivityReader
	now            func() time.Time
}

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService resolves cfg as the runtime layer over the configured source
// and the defaults, then builds every collaborator not supplied by opts.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := serviceBuilder{runtimeConfig: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := gologger.Resolve(gologger.DefaultName, builder.loggerProvider, builder.logger)
	if builder.errorMapper == nil {
		builder.errorMapper = core.DefaultErrorMapper()
	}

	finalConfig, err := core.ResolveConfig(context.Background(), builder.runtimeConfig, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	observer := core.NewObserver(finalConfig.ServiceName, logger, builder.metricsRecorder)

	svc := &Service{
		config:         finalConfig,
		logger:         logger,
		loggerProvider: provider,
		observer:       observer,
		errorMapper:    builder.errorMapper,
		refresher:      builder.refresher,
		store:          builder.credentialStore,
		source:         builder.source,
		activityReader: builder.activityReader,
		now:            time.Now,
	}

	if strings.TrimSpace(finalConfig.OAuth.ClientID) != "" {
		oauthOpts := []credential.OAuthOption{}
		if builder.httpClient != nil {
			oauthOpts = append(oauthOpts, credential.WithHTTPClient(builder.httpClient))
		}
		svc.oauth, err = credential.NewOAuth(finalConfig.OAuth, oauthOpts...)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		if svc.refresher == nil {
			svc.refresher = svc.oauth
		}
	}
	if svc.store == nil {
		svc.store = credential.NewMemoryStore(nil)
	}
	if svc.source == nil {
		svc.source = credential.NewRefreshingSource(svc.store, svc.refresher, finalConfig.OAuth.RefreshSkew)
	}

	adapter := builder.transport
	if adapter == nil {
		if builder.httpClient != nil {
			adapter = transport.NewRESTAdapter(builder.httpClient)
		} else {
			adapter = transport.NewRESTAdapter(nil)
		}
	}
	svc.gate = ratelimit.NewGateFromConfig(finalConfig.RateLimit)
	svc.client, err = api.NewClient(svc.source,
		api.WithConfig(finalConfig.API),
		api.WithTransport(adapter),
		api.WithAuthenticator(credential.NewDescriptor(finalConfig.OAuth)),
		api.WithRateGate(svc.gate),
		api.WithObserver(observer),
	)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	nodeOpts := []node.Option{
		node.WithObserver(observer),
		node.WithPageSize(finalConfig.API.PageSize),
	}
	if builder.activitySink != nil {
		nodeOpts = append(nodeOpts, node.WithActivitySink(builder.activitySink))
	}
	svc.dispatcher, err = node.New(svc.client, nodeOpts...)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	for key, handler := range builder.handlers {
		if err := svc.dispatcher.Register(key, handler); err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}

	optionsCache := builder.optionsCache
	if optionsCache == nil {
		optionsCache, err = api.NewOptionsCacheService(finalConfig.Cache.OptionsTTL)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}
	svc.loader = api.NewLoader(svc.client)
	svc.options, err = api.NewCachedOptionsLoader(svc.loader, optionsCache, accountKey(finalConfig))
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return svc, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper core.ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func accountKey(cfg Config) string {
	if clientID := strings.TrimSpace(cfg.OAuth.ClientID); clientID != "" {
		return clientID
	}
	return cfg.ServiceName
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Client() *api.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *Service) Dispatcher() *node.Dispatcher {
	if s == nil {
		return nil
	}
	return s.dispatcher
}

func (s *Service) RateGate() *ratelimit.Gate {
	if s == nil {
		return nil
	}
	return s.gate
}

func (s *Service) Description() node.Description {
	if s == nil || s.dispatcher == nil {
		return node.NewDescription()
	}
	return s.dispatcher.Description()
}

func (s *Service) ContinueOnFail() bool {
	if s == nil {
		return false
	}
	return s.config.Node.ContinueOnFail
}

// ExecuteNode runs one node invocation over items.
func (s *Service) ExecuteNode(ctx context.Context, items []node.Item, params node.ParameterSource, opts node.ExecuteOptions) ([]node.Output, error) {
	if s == nil || s.dispatcher == nil {
		return nil, notConfigured("node dispatcher")
	}
	return s.dispatcher.Execute(ctx, items, params, opts)
}

// AuthorizationURL returns the consent dialog URL the user is sent to.
func (s *Service) AuthorizationURL(state string) (string, error) {
	if s == nil || s.oauth == nil {
		return "", oauthNotConfigured()
	}
	return s.oauth.AuthCodeURL(state), nil
}

// CompleteAuthorization exchanges the callback code and stores the
// resulting credential.
func (s *Service) CompleteAuthorization(ctx context.Context, code string) (cred core.ActiveCredential, err error) {
	if s == nil || s.oauth == nil {
		return core.ActiveCredential{}, oauthNotConfigured()
	}
	startedAt := s.now()
	defer func() {
		s.observer.Observe(ctx, startedAt, "oauth_exchange", err, nil)
	}()
	cred, err = s.oauth.Exchange(ctx, code)
	if err != nil {
		return core.ActiveCredential{}, err
	}
	if err = s.store.Save(ctx, cred); err != nil {
		return core.ActiveCredential{}, err
	}
	return cred, nil
}

// RefreshCredential forces a refresh of the stored credential regardless
// of its expiry.
func (s *Service) RefreshCredential(ctx context.Context) (cred core.ActiveCredential, err error) {
	if s == nil || s.refresher == nil {
		return core.ActiveCredential{}, oauthNotConfigured()
	}
	startedAt := s.now()
	defer func() {
		s.observer.Observe(ctx, startedAt, "oauth_refresh", err, nil)
	}()
	current, err := s.store.Load(ctx)
	if err != nil {
		return core.ActiveCredential{}, err
	}
	cred, err = s.refresher.Refresh(ctx, current)
	if err != nil {
		return core.ActiveCredential{}, err
	}
	if err = s.store.Save(ctx, cred); err != nil {
		return core.ActiveCredential{}, err
	}
	return cred, nil
}

// LoadOptions serves a dynamic option list, cached per account.
func (s *Service) LoadOptions(ctx context.Context, method string) ([]schema.Option, error) {
	if s == nil || s.options == nil {
		return nil, notConfigured("options loader")
	}
	return s.options.LoadOptions(ctx, method)
}

// InvalidateOptions drops the cached list for method, or every list when
// method is blank.
func (s *Service) InvalidateOptions(ctx context.Context, method string) error {
	if s == nil || s.options == nil {
		return notConfigured("options loader")
	}
	if method = strings.TrimSpace(method); method != "" {
		return s.options.Invalidate(ctx, method)
	}
	for _, known := range s.loader.Methods() {
		if err := s.options.Invalidate(ctx, known); err != nil {
			return err
		}
	}
	return nil
}

// List reads the activity ledger.
func (s *Service) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if s == nil || s.activityReader == nil {
		return core.ActivityPage{}, notConfigured("activity reader")
	}
	return s.activityReader.List(ctx, filter)
}

func notConfigured(component string) error {
	return core.NewServiceError("rdstation: "+component+" is not configured", goerrors.CategoryOperation, core.ErrorInternal)
}

func oauthNotConfigured() error {
	return core.NewServiceError("rdstation: oauth.client_id is required for the authorization flow", goerrors.CategoryBadInput, core.ErrorCredentialMissing)
}
