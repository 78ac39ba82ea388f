package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldsight/location-engine/internal/config"
	"github.com/fieldsight/location-engine/internal/core/cache"
	"github.com/fieldsight/location-engine/internal/core/ports"
	"github.com/fieldsight/location-engine/internal/core/usecase"
	"github.com/fieldsight/location-engine/internal/infrastructure/directory/elasticdir"
	"github.com/fieldsight/location-engine/internal/infrastructure/directory/places"
	"github.com/fieldsight/location-engine/internal/infrastructure/export/excel"
	"github.com/fieldsight/location-engine/internal/infrastructure/kv/memory"
	kvpostgres "github.com/fieldsight/location-engine/internal/infrastructure/kv/postgres"
	"github.com/fieldsight/location-engine/internal/infrastructure/kv/valkeykv"
	"github.com/fieldsight/location-engine/internal/infrastructure/queue/nats"
	repopostgres "github.com/fieldsight/location-engine/internal/infrastructure/repository/postgres"
	"github.com/fieldsight/location-engine/internal/infrastructure/resilience"
	"github.com/fieldsight/location-engine/internal/infrastructure/sensor"
)

type App struct {
	Config config.Config

	Queue     *nats.Queue
	Records   ports.RecordStore
	Device    *sensor.DeviceGateway
	Places    ports.PlaceResolver
	Directory ports.DirectorySearch
	Detector  ports.BusinessDetector
	Matcher   ports.RecordMatcher
	Catalog   ports.CatalogService
	Exporter  *excel.Exporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, observer usecase.DetectionObserver) (*App, error) {
	db, err := kvpostgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	records := repopostgres.NewRecordRepository(db)
	if err := records.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure record schema: %w", err)
	}

	closers := []func(){func() { _ = db.Close() }}

	kv, kvClose, err := newKVStore(ctx, cfg, db)
	if err != nil {
		return nil, fmt.Errorf("init kv store: %w", err)
	}
	if kvClose != nil {
		closers = append(closers, kvClose)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	directory, err := newDirectory(cfg, executor)
	if err != nil {
		return nil, fmt.Errorf("init directory: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSDetectionSubject, cfg.NATSRecordSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event queue: %w", err)
	}
	closers = append(closers, queue.Close)

	taxonomy, err := config.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	device := sensor.NewDeviceGateway()
	placeCache := cache.NewPlaceDetailCache(kv, directory)
	fingerprints := cache.NewFingerprintCache(kv)
	if err := fingerprints.Load(ctx); err != nil {
		return nil, fmt.Errorf("load fingerprint cache: %w", err)
	}

	aggregator := usecase.NewCategoryAggregator(directory, taxonomy, observer)
	detector := usecase.NewDetectionOrchestrator(device, aggregator, fingerprints, queue, observer, usecase.OrchestratorOptions{
		SearchRadiusMeters: cfg.SearchRadiusMeters,
		PermissionTimeout:  time.Duration(cfg.PermissionTimeoutSeconds) * time.Second,
		FreshnessWindow:    time.Duration(cfg.FreshnessWindowSeconds) * time.Second,
	})
	matcher := usecase.NewRecordLocationMatcher(placeCache, observer)
	catalog := usecase.NewCatalogBuilder(records, placeCache)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Records:   records,
		Device:    device,
		Places:    placeCache,
		Directory: directory,
		Detector:  detector,
		Matcher:   matcher,
		Catalog:   catalog,
		Exporter:  excel.NewExporter(),

		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func newKVStore(ctx context.Context, cfg config.Config, db *sql.DB) (ports.KeyValueStore, func(), error) {
	switch cfg.KVBackend {
	case "valkey":
		client, err := valkeykv.Connect(cfg.ValkeyAddr)
		if err != nil {
			return nil, nil, err
		}
		return valkeykv.New(client, cfg.ValkeyPrefix), client.Close, nil
	case "memory":
		return memory.New(), nil, nil
	default:
		store := kvpostgres.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

func newDirectory(cfg config.Config, executor *resilience.Executor) (ports.DirectorySearch, error) {
	if cfg.DirectoryBackend == "elastic" {
		return elasticdir.New(cfg.ElasticURL, cfg.ElasticIndex)
	}
	return places.New(cfg.PlacesBaseURL, cfg.PlacesAPIKey, places.Options{
		RequestsPerSecond:  cfg.PlacesRPS,
		ResilienceExecutor: executor,
	}), nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
