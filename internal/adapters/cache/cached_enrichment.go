package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
)

const researchKeyPrefix = "research:"

// CachedEnrichmentProvider caches protocol research by measurement text.
// Research output depends on the measurements, the protocol library and the
// model that wrote it; scope carries the last two, so changing either starts
// a fresh keyspace. Captions and reports are never cached.
type CachedEnrichmentProvider struct {
	providers.EnrichmentProvider
	cache      providers.CacheProvider
	ttlSeconds int
	scope      string
}

// NewCachedEnrichmentProvider wraps next with a research cache. scope should
// identify the provider, model and protocol library in use.
func NewCachedEnrichmentProvider(next providers.EnrichmentProvider, cache providers.CacheProvider, ttlSeconds int, scope string) *CachedEnrichmentProvider {
	return &CachedEnrichmentProvider{
		EnrichmentProvider: next,
		cache:              cache,
		ttlSeconds:         ttlSeconds,
		scope:              scope,
	}
}

// ResearchScope builds the cache scope for an enrichment configuration.
func ResearchScope(provider, model, protocolLibrary string) string {
	return provider + "\x00" + model + "\x00" + protocolLibrary
}

// SynthesizeResearch returns the cached summary when present. Cache errors
// fall through to the wrapped provider.
func (p *CachedEnrichmentProvider) SynthesizeResearch(ctx context.Context, measurementsText string) (string, error) {
	key := researchKey(p.scope, measurementsText)
	logger := observability.LoggerFromContext(ctx)

	cached, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		logger.Debug().Str("key", key).Msg("research cache hit")
		return string(cached), nil
	case !errors.Is(err, providers.ErrCacheMiss):
		logger.Warn().Err(err).Str("key", key).Msg("research cache read failed")
	}

	summary, err := p.EnrichmentProvider.SynthesizeResearch(ctx, measurementsText)
	if err != nil {
		return "", err
	}

	if err := p.cache.Set(ctx, key, []byte(summary), p.ttlSeconds); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("research cache write failed")
	}
	return summary, nil
}

func researchKey(scope, measurementsText string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + measurementsText))
	return researchKeyPrefix + hex.EncodeToString(sum[:])
}
