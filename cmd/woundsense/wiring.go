package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/woundsense/backend/internal/adapters/audit"
	"github.com/zatekoja/woundsense/backend/internal/adapters/cache"
	"github.com/zatekoja/woundsense/backend/internal/adapters/database"
	"github.com/zatekoja/woundsense/backend/internal/adapters/events"
	"github.com/zatekoja/woundsense/backend/internal/application/services"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/domain/repositories"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/gemini"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/segmentation"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
	"github.com/zatekoja/woundsense/backend/pkg/config"
)

// postgresClient connects and applies the schema.
func (s *session) postgresClient(ctx context.Context) (*postgres.Client, error) {
	client, err := postgres.NewClient(ctx, &s.cfg.Database)
	if err != nil {
		return nil, err
	}
	s.onClose(func(context.Context) error { return client.Close() })
	if err := client.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// redisClient returns nil when Redis is unreachable; callers run without it.
func (s *session) redisClient(ctx context.Context) *redis.Client {
	client, err := redis.NewClient(ctx, &s.cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without it")
		return nil
	}
	s.onClose(func(context.Context) error { return client.Close() })
	return client
}

// repository picks the history store: Postgres when enabled, else the CSV log.
func (s *session) repository(ctx context.Context) (repositories.AssessmentRepository, error) {
	if s.cfg.Audit.PostgresEnabled {
		client, err := s.postgresClient(ctx)
		if err != nil {
			return nil, err
		}
		return database.NewAssessmentAdapter(client.DB()), nil
	}
	return audit.NewCSVSink(s.cfg.Audit.CSVPath), nil
}

func (s *session) analytics(ctx context.Context) (*services.AssessmentAnalyticsService, error) {
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewAssessmentAnalyticsService(repo), nil
}

func (s *session) enrichment(ctx context.Context, rdb *redis.Client) (providers.EnrichmentProvider, error) {
	library, err := config.LoadProtocolLibrary(s.cfg.Pipeline.ProtocolLibraryPath)
	if err != nil {
		return nil, err
	}

	var provider providers.EnrichmentProvider
	switch s.cfg.Enrichment.Provider {
	case config.EnrichmentProviderGemini:
		client, err := gemini.NewClient(ctx, &s.cfg.Enrichment, library)
		if err != nil {
			return nil, err
		}
		provider = client
	default:
		client, err := openai.NewClient(&s.cfg.Enrichment, library)
		if err != nil {
			return nil, err
		}
		s.onClose(func(context.Context) error { client.Close(); return nil })
		provider = client
	}

	if rdb != nil && s.cfg.Pipeline.ResearchCacheTTLSeconds > 0 {
		scope := cache.ResearchScope(s.cfg.Enrichment.Provider, s.cfg.Enrichment.TextModel, library.Render())
		provider = cache.NewCachedEnrichmentProvider(provider, cache.NewRedisAdapter(rdb), s.cfg.Pipeline.ResearchCacheTTLSeconds, scope)
	}
	return provider, nil
}

func (s *session) segmentationPort() (services.SegmentationPort, error) {
	if !s.cfg.Segmentation.Enabled {
		return services.NewSegmentationPort(nil), nil
	}
	client, err := segmentation.NewClient(&s.cfg.Segmentation)
	if err != nil {
		return nil, err
	}
	return services.NewSegmentationPort(client), nil
}

func (s *session) auditSink(ctx context.Context, rdb *redis.Client) (providers.AuditSink, error) {
	sinks := []providers.AuditSink{audit.NewCSVSink(s.cfg.Audit.CSVPath)}

	if s.cfg.Audit.PostgresEnabled {
		client, err := s.postgresClient(ctx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, database.NewAssessmentAdapter(client.DB()))
	}
	if s.cfg.Audit.EventsEnabled && rdb != nil {
		bus := events.NewRedisEventBus(rdb)
		s.onClose(func(context.Context) error { return bus.Close() })
		sinks = append(sinks, events.NewPublishingSink(bus))
	}
	return audit.NewMultiSink(sinks...), nil
}

// pipeline assembles the assessment pipeline from configuration.
func (s *session) pipeline(ctx context.Context) (*services.AssessmentPipeline, error) {
	var rdb *redis.Client
	if s.cfg.Pipeline.ResearchCacheTTLSeconds > 0 || s.cfg.Audit.EventsEnabled {
		rdb = s.redisClient(ctx)
	}

	seg, err := s.segmentationPort()
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	enrichment, err := s.enrichment(ctx, rdb)
	if err != nil {
		return nil, fmt.Errorf("enrichment: %w", err)
	}
	sink, err := s.auditSink(ctx, rdb)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	p := services.NewAssessmentPipeline(seg, enrichment, sink)
	if metrics, err := observability.NewPipelineMetrics(); err != nil {
		log.Warn().Err(err).Msg("pipeline metrics disabled")
	} else {
		p.SetMetrics(metrics)
	}

	log.Info().
		Str("segmentation", services.CapabilityOf(seg)).
		Str("enrichment", s.cfg.Enrichment.Provider).
		Msg("assessment pipeline ready")
	return p, nil
}

// eventBus connects the Redis event bus.
func (s *session) eventBus(ctx context.Context) (providers.EventBus, error) {
	rdb := s.redisClient(ctx)
	if rdb == nil {
		return nil, fmt.Errorf("event streaming requires Redis at %s", s.cfg.Redis.RedisAddr())
	}
	bus := events.NewRedisEventBus(rdb)
	s.onClose(func(context.Context) error { return bus.Close() })
	return bus, nil
}
