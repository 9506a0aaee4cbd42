package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const providerCatalogCacheKeyPrefix = "go-event-registrations::providers::v1"

// ProviderDirectory resolves event types to providers. It is owned by a
// single run: the catalog is fetched on the first lookup and served from
// the run's cache afterwards.
type ProviderDirectory struct {
	catalog  ProviderCatalog
	orgID    string
	cache    repositorycache.CacheService
	progress ProgressReporter
}

type ProviderDirectoryOption func(*ProviderDirectory)

func WithDirectoryProgress(progress ProgressReporter) ProviderDirectoryOption {
	return func(d *ProviderDirectory) {
		d.progress = progress
	}
}

func WithDirectoryCache(cache repositorycache.CacheService) ProviderDirectoryOption {
	return func(d *ProviderDirectory) {
		d.cache = cache
	}
}

func NewProviderDirectory(catalog ProviderCatalog, orgID string, options ...ProviderDirectoryOption) (*ProviderDirectory, error) {
	if catalog == nil {
		return nil, fmt.Errorf("core: provider catalog is required")
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("core: org id is required")
	}
	directory := &ProviderDirectory{catalog: catalog, orgID: orgID}
	for _, option := range options {
		if option != nil {
			option(directory)
		}
	}
	if directory.cache == nil {
		config := repositorycache.DefaultConfig()
		config.TTL = time.Hour
		cache, err := repositorycache.NewCacheService(config)
		if err != nil {
			return nil, fmt.Errorf("core: provider cache: %w", err)
		}
		directory.cache = cache
	}
	return directory, nil
}

func ProviderCatalogCacheKey(orgID string) string {
	return providerCatalogCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(orgID))
}

// FindProvidersForEvent returns every provider advertising eventType, in
// catalog order.
func (d *ProviderDirectory) FindProvidersForEvent(ctx context.Context, eventType string) ([]Provider, error) {
	if d == nil {
		return nil, fmt.Errorf("core: provider directory is not configured")
	}
	providers, err := d.providers(ctx)
	if err != nil {
		return nil, err
	}
	matches := []Provider{}
	for _, provider := range providers {
		if provider.Supports(eventType) {
			matches = append(matches, provider.clone())
		}
	}
	if len(matches) == 0 {
		return nil, ProviderNotFoundError(d.orgID, eventType)
	}
	return matches, nil
}

func (d *ProviderDirectory) providers(ctx context.Context) ([]Provider, error) {
	return repositorycache.GetOrFetch(ctx, d.cache, ProviderCatalogCacheKey(d.orgID), func(ctx context.Context) ([]Provider, error) {
		return d.fetchCatalog(ctx)
	})
}

func (d *ProviderDirectory) fetchCatalog(ctx context.Context) ([]Provider, error) {
	if d.progress != nil {
		d.progress.Start("Fetching event providers")
		defer d.progress.Stop()
	}
	summaries, err := d.catalog.ListProviders(ctx, d.orgID)
	if err != nil {
		return nil, err
	}
	providers := make([]Provider, 0, len(summaries))
	for _, summary := range summaries {
		codes, err := d.catalog.ListEventCodes(ctx, summary.ID)
		if err != nil {
			return nil, err
		}
		providers = append(providers, Provider{
			ID:         summary.ID,
			Label:      summary.Label,
			InstanceID: summary.InstanceID,
			EventCodes: append([]string(nil), codes...),
		})
	}
	return providers, nil
}
