package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-rdstation/schema"
	"github.com/goliatone/go-rdstation/shape"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const (
	LoadContactCustomFields = "getContactCustomFields"
	LoadSegmentationOptions = "getSegmentationOptions"
)

// OptionsLoader resolves the choices of a dynamic option list by method
// name.
type OptionsLoader interface {
	LoadOptions(ctx context.Context, method string) ([]schema.Option, error)
}

type OptionsFunc func(ctx context.Context, client Requester) ([]schema.Option, error)

// Loader dispatches option list methods to their fetch functions.
type Loader struct {
	client  Requester
	mu      sync.RWMutex
	methods map[string]OptionsFunc
}

func NewLoader(client Requester) *Loader {
	return &Loader{
		client: client,
		methods: map[string]OptionsFunc{
			LoadContactCustomFields: ContactCustomFields,
			LoadSegmentationOptions: SegmentationOptions,
		},
	}
}

func (l *Loader) Register(method string, fn OptionsFunc) error {
	if l == nil {
		return fmt.Errorf("api: options loader is nil")
	}
	method = strings.TrimSpace(method)
	if method == "" || fn == nil {
		return fmt.Errorf("api: options method and function are required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methods[method] = fn
	return nil
}

func (l *Loader) Methods() []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.methods))
	for method := range l.methods {
		out = append(out, method)
	}
	return out
}

func (l *Loader) LoadOptions(ctx context.Context, method string) ([]schema.Option, error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("api: options loader is not configured")
	}
	l.mu.RLock()
	fn, ok := l.methods[strings.TrimSpace(method)]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("api: options method %q is not supported", method)
	}
	return fn(ctx, l.client)
}

// ContactCustomFields lists the account custom fields as
// "<label> (<api_identifier>)" options valued by api identifier.
func ContactCustomFields(ctx context.Context, client Requester) ([]schema.Option, error) {
	response, err := client.Do(ctx, NewRequest(http.MethodGet, ContactFieldsPath, nil, nil))
	if err != nil {
		return nil, err
	}
	options := []schema.Option{}
	for _, field := range Records(response, "fields") {
		if !isCustomField(field) {
			continue
		}
		identifier := strings.TrimSpace(fmt.Sprint(field["api_identifier"]))
		if identifier == "" || field["api_identifier"] == nil {
			continue
		}
		options = append(options, schema.Option{
			Name:  fmt.Sprintf("%s (%s)", fieldLabel(field, identifier), identifier),
			Value: identifier,
		})
	}
	return shape.SortOptions(options), nil
}

// SegmentationOptions lists segmentations, marking the standard ones.
func SegmentationOptions(ctx context.Context, client Requester) ([]schema.Option, error) {
	response, err := client.Do(ctx, NewRequest(http.MethodGet, SegmentationsPath, nil, nil,
		WithHeader("Accept", "application/json"),
	))
	if err != nil {
		return nil, err
	}
	options := []schema.Option{}
	for _, segmentation := range Records(response, "segmentations") {
		if segmentation["id"] == nil {
			continue
		}
		name := strings.TrimSpace(fmt.Sprint(segmentation["name"]))
		if standard, _ := segmentation["standard"].(bool); standard {
			name += " (standard)"
		}
		options = append(options, schema.Option{
			Name:  name,
			Value: queryValue(segmentation["id"]),
		})
	}
	return shape.SortOptions(options), nil
}

func isCustomField(field map[string]any) bool {
	switch typed := field["custom_field"].(type) {
	case bool:
		return typed
	case nil:
		return false
	default:
		return fmt.Sprint(typed) != ""
	}
}

func fieldLabel(field map[string]any, fallback string) string {
	switch label := field["label"].(type) {
	case map[string]any:
		for _, key := range []string{"default", "pt-BR", "en-US"} {
			if text, ok := label[key].(string); ok && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text)
			}
		}
	case string:
		if strings.TrimSpace(label) != "" {
			return strings.TrimSpace(label)
		}
	}
	if name, ok := field["name"].(map[string]any); ok {
		if text, ok := name["default"].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return fallback
}

const optionsCacheKeyPrefix = "go-rdstation::options::v1"

// CachedOptionsLoader memoizes option lists per method and account key.
type CachedOptionsLoader struct {
	base       OptionsLoader
	cache      repositorycache.CacheService
	accountKey string
}

func NewCachedOptionsLoader(base OptionsLoader, cacheService repositorycache.CacheService, accountKey string) (*CachedOptionsLoader, error) {
	if base == nil {
		return nil, fmt.Errorf("api: base options loader is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("api: options cache service is required")
	}
	accountKey = strings.TrimSpace(accountKey)
	if accountKey == "" {
		accountKey = "default"
	}
	return &CachedOptionsLoader{base: base, cache: cacheService, accountKey: accountKey}, nil
}

func OptionsCacheKey(accountKey, method string) string {
	return strings.Join([]string{optionsCacheKeyPrefix, strings.TrimSpace(accountKey), strings.TrimSpace(method)}, "::")
}

func (l *CachedOptionsLoader) LoadOptions(ctx context.Context, method string) ([]schema.Option, error) {
	if l == nil || l.base == nil || l.cache == nil {
		return nil, fmt.Errorf("api: cached options loader is not configured")
	}
	options, err := repositorycache.GetOrFetch(ctx, l.cache, OptionsCacheKey(l.accountKey, method), func(ctx context.Context) ([]schema.Option, error) {
		return l.base.LoadOptions(ctx, method)
	})
	if err != nil {
		return nil, err
	}
	return append([]schema.Option(nil), options...), nil
}

// Invalidate drops the cached list for method.
func (l *CachedOptionsLoader) Invalidate(ctx context.Context, method string) error {
	if l == nil || l.cache == nil {
		return nil
	}
	return l.cache.Delete(ctx, OptionsCacheKey(l.accountKey, method))
}

func NewOptionsCacheService(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	return repositorycache.NewCacheService(config)
}

var (
	_ OptionsLoader = (*Loader)(nil)
	_ OptionsLoader = (*CachedOptionsLoader)(nil)
)
