package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/photobot/config"
	"github.com/spacesedan/photobot/internal/captions"
	"github.com/spacesedan/photobot/internal/clients"
	"github.com/spacesedan/photobot/internal/clients/kafka_client"
	"github.com/spacesedan/photobot/internal/db"
	"github.com/spacesedan/photobot/internal/imagesource"
	"github.com/spacesedan/photobot/internal/monitoring"
	"github.com/spacesedan/photobot/internal/personas"
	"github.com/spacesedan/photobot/internal/scheduler"
)

// Bot holds the wired components shared by the daemon and the one-shot CLI.
type Bot struct {
	Runner *scheduler.Runner
	Pool   *personas.Pool
	Images *imagesource.Hybrid
	Health *monitoring.BackendHealth

	closers []func()
}

// Close releases external connections in reverse order of creation.
func (b *Bot) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Build wires the bot from settings. Optional backends (Valkey, DynamoDB,
// Kafka, LLM) fall back to in-process implementations when unset.
func Build(ctx context.Context, cfg *config.Settings) (*Bot, error) {
	bot := &Bot{}

	catalog, err := captions.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	var (
		registry personas.AvatarRegistry = personas.NewMemoryAvatarRegistry()
		tracker  imagesource.PhotoTracker = imagesource.NewMemoryTracker(nil)
	)
	if cfg.ValkeyAddress != "" {
		vc, err := clients.InitValkey(clients.ValkeyConfig{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			TLS:      cfg.ValkeyTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("[Bootstrap] valkey: %w", err)
		}
		bot.closers = append(bot.closers, clients.CloseValkey)
		registry, tracker = vc, vc
	} else {
		slog.Warn("[Bootstrap] VALKEY_INIT_ADDRESS not set, avatar and photo registries are in memory")
	}

	var store personas.Store = personas.NewMemoryStore()
	if cfg.PersonaTable != "" {
		client, err := clients.GetDynamoDBClient(ctx, clients.AWSConfig{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
		if err != nil {
			bot.Close()
			return nil, fmt.Errorf("[Bootstrap] dynamodb: %w", err)
		}
		store = db.NewPersonaTable(client, cfg.PersonaTable)
	} else {
		slog.Warn("[Bootstrap] PERSONA_TABLE not set, personas are kept in memory")
	}

	tieBreak, err := personas.ParseTieBreak(cfg.PersonaTieBreak)
	if err != nil {
		bot.Close()
		return nil, err
	}
	bot.Pool = personas.NewPool(store, registry, catalog, personas.Options{
		Capacity:   cfg.PoolCapacity,
		IdleWindow: cfg.BotInterval,
		TieBreak:   tieBreak,
	})
	if err := bot.Pool.Reconcile(ctx); err != nil {
		slog.Warn("[Bootstrap] Persona reconcile failed, starting with an empty cache", slog.Any("error", err))
	}

	var sources []imagesource.Weighted
	if cfg.UnsplashAccessKey != "" {
		sources = append(sources, imagesource.Weighted{
			Source: clients.NewUnsplashClient(clients.UNSPLASH_API_BASE, cfg.UnsplashAccessKey, cfg.HTTPTimeout),
			Weight: 1 - cfg.PexelsWeight,
		})
	}
	if cfg.PexelsAPIKey != "" {
		sources = append(sources, imagesource.Weighted{
			Source: clients.NewPexelsClient(clients.PEXELS_API_BASE, cfg.PexelsAPIKey, cfg.HTTPTimeout),
			Weight: cfg.PexelsWeight,
		})
	}
	bot.Images = imagesource.NewHybrid(sources, tracker, nil)

	templates := captions.NewTemplateGenerator(catalog, nil)
	composer := captions.WithFallback(nil, templates)
	if cfg.LLMAPIKey != "" {
		llm, err := clients.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
		if err != nil {
			bot.Close()
			return nil, err
		}
		composer = captions.WithFallback(captions.NewLLMGenerator(llm, catalog, nil), templates)
		slog.Info("[Bootstrap] LLM captions enabled", slog.String("model", cfg.LLMModel))
	}

	backend := clients.NewBackendClient(cfg.BackendURL, cfg.HTTPTimeout)
	bot.Health = monitoring.NewBackendHealth(backend, cfg.BackendHealthInterval)

	deps := scheduler.Deps{
		Pool:     bot.Pool,
		Images:   bot.Images,
		Composer: composer,
		Poster:   backend,
		Catalog:  catalog,
		Health:   bot.Health,
	}
	kcfg := kafka_client.KafkaConfig{Broker: cfg.KafkaBroker, Topic: cfg.KafkaPostEventsTopic}
	if kcfg.Enabled() {
		producer, err := kafka_client.NewPostEventProducer(kcfg)
		if err != nil {
			bot.Close()
			return nil, fmt.Errorf("[Bootstrap] kafka: %w", err)
		}
		bot.closers = append(bot.closers, producer.Close)
		deps.Events = producer
	}

	policy := scheduler.DefaultPolicy()
	policy.Interval = cfg.BotInterval
	policy.QuietStart = cfg.QuietStartHour
	policy.QuietEnd = cfg.QuietEndHour
	policy.Location = cfg.Timezone

	bot.Runner, err = scheduler.NewRunner(deps, scheduler.Options{
		Policy:           policy,
		Enabled:          cfg.BotEnabled,
		MaxImagesPerHour: cfg.MaxImagesPerHour,
		MaxImagesPerDay:  cfg.MaxImagesPerDay,
		CallTimeout:      cfg.HTTPTimeout,
	})
	if err != nil {
		bot.Close()
		return nil, err
	}
	return bot, nil
}
