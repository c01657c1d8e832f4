package rdstation

import (
	"net/http"

	"github.com/goliatone/go-rdstation/core"
	"github.com/goliatone/go-rdstation/credential"
	"github.com/goliatone/go-rdstation/node"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type serviceBuilder struct {
	runtimeConfig   Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	errorMapper     core.ErrorMapper
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	httpClient      *http.Client
	transport       core.TransportAdapter
	credentialStore credential.Store
	source          credential.Source
	refresher       credential.Refresher
	activitySink    core.ActivitySink
	activityReader  core.ActivityReader
	optionsCache    repositorycache.CacheService
	handlers        map[node.Key]node.Handler
}

type Option func(*serviceBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

// WithHTTPClient is shared by the REST transport and the OAuth token
// exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(b *serviceBuilder) {
		b.httpClient = client
	}
}

func WithTransport(adapter core.TransportAdapter) Option {
	return func(b *serviceBuilder) {
		b.transport = adapter
	}
}

// WithCredentialStore replaces the in-memory credential store.
func WithCredentialStore(store credential.Store) Option {
	return func(b *serviceBuilder) {
		b.credentialStore = store
	}
}

// WithCredentialSource bypasses the store and refresh logic entirely.
func WithCredentialSource(source credential.Source) Option {
	return func(b *serviceBuilder) {
		b.source = source
	}
}

func WithRefresher(refresher credential.Refresher) Option {
	return func(b *serviceBuilder) {
		b.refresher = refresher
	}
}

func WithActivitySink(sink core.ActivitySink) Option {
	return func(b *serviceBuilder) {
		b.activitySink = sink
	}
}

func WithActivityReader(reader core.ActivityReader) Option {
	return func(b *serviceBuilder) {
		b.activityReader = reader
	}
}

// ActivityStore is implemented by the sql activity store.
type ActivityStore interface {
	core.ActivitySink
	core.ActivityReader
}

func WithActivityStore(store ActivityStore) Option {
	return func(b *serviceBuilder) {
		b.activitySink = store
		b.activityReader = store
	}
}

func WithOptionsCache(cache repositorycache.CacheService) Option {
	return func(b *serviceBuilder) {
		b.optionsCache = cache
	}
}

// WithHandler registers or overrides the handler for one resource and
// operation pair.
func WithHandler(key node.Key, handler node.Handler) Option {
	return func(b *serviceBuilder) {
		if b.handlers == nil {
			b.handlers = map[node.Key]node.Handler{}
		}
		b.handlers[key] = handler
	}
}
