package main

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/config"
	"FillIndexer/internal/core"
	"FillIndexer/internal/ingestion"
	"FillIndexer/internal/kafka"
	"FillIndexer/internal/message"
	"FillIndexer/internal/observability"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/server"
	"FillIndexer/migrations"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	configPath := flag.String("config", os.Getenv("FILLINDEXER_CONFIG"), "path to a YAML config file")
	replayDir := flag.String("replay", "", "apply encoded blocks from this directory before consuming the bus")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Printf("INFO: FillIndexer starting (publisher=%s, grpc=%s, http=%s)", cfg.Publisher, cfg.GRPCAddr, cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *replayDir); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Println("INFO: FillIndexer stopped")
}

func run(ctx context.Context, cfg config.Config, replayDir string) error {
	loggers := observability.NewLoggers(cfg.Logging, os.Stdout)
	newLogger := loggers.For

	// --- Postgres ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres open: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	log.Println("INFO: Postgres connected")

	files, source := migrations.Source(cfg.MigrationsDir)
	if err := persistence.NewMigrator(db, files, newLogger("migrator")).Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Printf("INFO: migrations applied (%s)", source)

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()
	health.AddCheck("postgres", db.PingContext)

	// --- Market snapshot ---
	refresher := cache.NewRefresher(persistence.NewSnapshotLoader(db), cfg.SnapshotInterval, newLogger("snapshot"))
	refresher.Instrument(metrics)
	if err := refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}

	// --- Canceled orders ---
	var (
		canceled     cache.CanceledOrders = cache.NoCancellations{}
		redisCancels *cache.RedisCanceledOrders
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		health.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		redisCancels = cache.NewRedisCanceledOrders(rdb)
		canceled = redisCancels
		log.Printf("INFO: Redis connected (%s)", cfg.Redis.Addr)
	} else {
		log.Println("INFO: no Redis configured, canceled-order lookups disabled")
	}

	// --- NATS ---
	nc, js, err := ingestion.ConnectNATS(cfg.NATS.URL, newLogger("nats"))
	if err != nil {
		return err
	}
	defer nc.Drain()
	health.AddCheck("nats", func(context.Context) error {
		if nc.Status() != nats.CONNECTED {
			return fmt.Errorf("nats %s", nc.Status())
		}
		return nil
	})

	// --- Outbound bus ---
	var publisher message.Publisher
	switch cfg.Publisher {
	case config.PublisherKafka:
		pcfg := kafka.DefaultProducerConfig(cfg.Kafka.Brokers)
		pcfg.ClientID = cfg.Kafka.ClientID
		kp, err := kafka.Dial(pcfg, newLogger("kafka"))
		if err != nil {
			return err
		}
		defer kp.Close()
		publisher = kp
	default:
		if err := ingestion.EnsureOutboundStream(ctx, js, cfg.NATS.OutboundStream, cfg.NATS.OutboundPrefix); err != nil {
			return err
		}
		publisher = ingestion.NewPublisher(js, cfg.NATS.OutboundPrefix)
	}
	log.Printf("INFO: publishing to %s", cfg.Publisher)

	// --- Processor ---
	blocks := make(chan ingestion.RawBlock, 1)
	processor := core.NewProcessor(core.ProcessorDeps{
		Store:          persistence.NewPostgresStore(),
		Transactor:     persistence.NewDBTransactor(db),
		Blocks:         persistence.NewBlockLog(db),
		Snapshots:      refresher,
		CanceledOrders: canceled,
		Publisher:      publisher,
		Metrics:        metrics,
		Logger:         newLogger("processor"),
	})
	if err := processor.Recover(ctx); err != nil {
		return err
	}
	injector := ingestion.NewBlockInjector(blocks)

	serverDeps := server.Deps{
		Health:   health,
		Status:   processor,
		Injector: injector,
		Logger:   newLogger("server"),
	}
	if redisCancels != nil {
		serverDeps.Cancellations = redisCancels
	}
	srv, err := server.New(cfg.GRPCAddr, cfg.HTTPAddr, serverDeps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return processor.Run(gctx, blocks) })
	g.Go(func() error { return refresher.Run(gctx) })
	if redisCancels != nil && cfg.Redis.CanceledOrderRetention > 0 {
		g.Go(func() error {
			return redisCancels.RunPruner(gctx, cfg.Redis.CanceledOrderRetention, cfg.Redis.PruneInterval, newLogger("canceled_orders"))
		})
	}
	g.Go(func() error { return srv.StartGRPC(gctx) })
	g.Go(func() error { return srv.StartHTTP(gctx) })
	g.Go(func() error {
		if replayDir != "" {
			if err := replay(gctx, injector, replayDir); err != nil {
				return err
			}
		}

		subCfg := ingestion.SubscriberConfig{Stream: cfg.NATS.Stream, Subject: cfg.NATS.Subject, Consumer: cfg.NATS.Consumer}
		if err := ingestion.EnsureBlockStream(gctx, js, subCfg); err != nil {
			return err
		}
		sub := ingestion.NewBlockSubscriber(js, blocks, newLogger("subscriber"))
		if err := sub.Subscribe(gctx, subCfg); err != nil {
			return err
		}
		defer sub.Stop()

		health.SetReady(true)
		srv.SetServing(true)
		log.Printf("INFO: FillIndexer ready (stream=%s, subject=%s)", subCfg.Stream, subCfg.Subject)

		<-gctx.Done()
		health.SetReady(false)
		srv.SetServing(false)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// replay injects every file in dir, in name order, as one encoded block.
func replay(ctx context.Context, injector *ingestion.BlockInjector, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("replay %s: %w", path, err)
		}
		if err := injector.InjectBlock(ctx, "replay:"+name, data); err != nil {
			return fmt.Errorf("replay %s: %w", path, err)
		}
	}
	log.Printf("INFO: replayed %d blocks from %s", len(names), dir)
	return nil
}
