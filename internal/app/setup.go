package app

import (
	"context"
	"fmt"
	"log"

	"github.com/Krimson/dadguide/internal/config"
	"github.com/Krimson/dadguide/internal/content"
	"github.com/Krimson/dadguide/internal/progress"
	"github.com/Krimson/dadguide/internal/storage"
)

// OpenStore подключает хранилище, выбранное в конфигурации
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Printf("[INFO] Using in-memory store")
		return storage.NewMemoryStore(), nil
	case config.BackendRedis:
		store, err := storage.NewRedisStoreFromAddr(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, cfg.RedisTTL())
		if err != nil {
			return nil, err
		}
		log.Printf("[INFO] Connected to Redis at %s", cfg.RedisAddr)
		return store, nil
	case config.BackendPostgres:
		store, err := storage.NewPostgresStoreFromDSN(ctx, cfg.PostgresDSN, cfg.DeviceID)
		if err != nil {
			return nil, err
		}
		log.Printf("[INFO] Connected to PostgreSQL (device=%s)", cfg.DeviceID)
		return store, nil
	case config.BackendSQLite:
		store, err := storage.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("[INFO] Using SQLite store at %s", cfg.SQLitePath)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// OptionsFromConfig собирает каталог достижений и источник материалов.
// Ответы генеративного источника кэшируются в том же хранилище.
func OptionsFromConfig(cfg *config.Config, store storage.Store) (Options, error) {
	opts := Options{TickInterval: cfg.TickInterval()}

	if cfg.AchievementCatalog != "" {
		catalog, err := progress.LoadCatalogFile(cfg.AchievementCatalog)
		if err != nil {
			return Options{}, err
		}
		log.Printf("[INFO] Loaded achievement catalog from %s", cfg.AchievementCatalog)
		opts.Achievements = catalog
	}

	switch cfg.ContentProvider {
	case config.ContentOpenAI:
		provider, err := content.NewGenerativeProvider(content.GenerativeConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.ContentTimeout(),
		}, store)
		if err != nil {
			return Options{}, err
		}
		opts.Content = provider
	default:
		provider, err := content.NewStaticProvider()
		if err != nil {
			return Options{}, err
		}
		opts.Content = provider
	}
	return opts, nil
}
