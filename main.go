package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/internal/repositories/fact"
	"github.com/Ramsey-B/sage/internal/repositories/locationdim"
	"github.com/Ramsey-B/sage/internal/repositories/soildim"
	"github.com/Ramsey-B/sage/internal/repositories/timedim"
	"github.com/Ramsey-B/sage/internal/repositories/weatherdim"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/loader"
	"github.com/Ramsey-B/sage/pkg/logging"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/quarantine"
	"github.com/Ramsey-B/sage/pkg/resolver"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	"github.com/Ramsey-B/sage/pkg/routes/readings"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/tracing/exporters"
	"github.com/Ramsey-B/sage/pkg/validate"
	"github.com/Ramsey-B/sage/pkg/watermark"
)

const version = "1.0.0"

type dependency struct {
	name    string
	needs   []string
	startFn func(ctx context.Context) error
	stopFn  func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.needs }

func (d *dependency) Start(ctx context.Context) error {
	return d.startFn(ctx)
}
func (d *dependency) Stop(ctx context.Context) error {
	if d.stopFn == nil {
		return nil
	}
	return d.stopFn(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdown()
	}

	var (
		sqlxDB   *sqlx.DB
		db       database.DB
		factRepo *fact.Repository
		load     *loader.Loader
		consumer *kafka.Consumer
		echoSrv  *echo.Echo
		checker  *health.Checker

		eventsProducer     *kafka.Producer
		quarantineProducer *kafka.Producer
	)

	boot := startup.NewStartup[any](logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "database",
		startFn: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
				cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)

			conn, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			driver, err := migratepg.WithInstance(conn.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			sqlxDB = conn
			db = database.NewDatabaseInstance(conn, logger)
			return nil
		},
		stopFn: func(ctx context.Context) error {
			if sqlxDB != nil {
				return sqlxDB.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:  "pipeline",
		needs: []string{"database"},
		startFn: func(ctx context.Context) error {
			factRepo = fact.NewRepository(db, logger)
			soilRepo := soildim.NewRepository(db, logger)
			timeRepo := timedim.NewRepository(db, logger)
			locationRepo := locationdim.NewRepository(db, logger)
			weatherRepo := weatherdim.NewRepository(db, logger)

			dims := resolver.NewPostgres(soilRepo, timeRepo, locationRepo, weatherRepo, logger)

			tracker := watermark.NewDBTracker(factRepo, logger)
			if cfg.WatermarkWarmOnBoot {
				if err := tracker.Warm(ctx, cfg.WatermarkWarmLimit); err != nil {
					return err
				}
			}

			validator := validate.New(logger)
			if !cfg.RangeChecksEnabled {
				validator.WithRanges(nil)
			}

			eventsProducer = kafka.NewProducer(producerConfig(cfg, cfg.KafkaEventsTopic), logger)
			quarantineProducer = kafka.NewProducer(producerConfig(cfg, cfg.KafkaQuarantineTopic), logger)

			emitter := events.NewEmitter(eventsProducer, logger)
			sink := quarantine.NewKafkaSink(quarantineProducer, logger)

			load = loader.NewLoader(db, factRepo, dims, tracker, validator, sink, emitter, logger).
				WithWorkers(cfg.LoadWorkerCount).
				WithMaxRetries(cfg.LoadMaxRetries)

			container, err := buildContainer(factRepo, soilRepo, timeRepo, locationRepo, weatherRepo, load)
			if err != nil {
				return err
			}
			if err := ectoinject.SetDefaultContainer(container.GetContainerID()); err != nil {
				return err
			}
			return nil
		},
		stopFn: func(ctx context.Context) error {
			if eventsProducer != nil {
				_ = eventsProducer.Close()
			}
			if quarantineProducer != nil {
				_ = quarantineProducer.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:  "consumer",
		needs: []string{"pipeline"},
		startFn: func(ctx context.Context) error {
			if !cfg.KafkaConsumerEnabled {
				logger.Info("Kafka consumer disabled")
				return nil
			}
			consumer = kafka.NewConsumer(cfg, logger, streamHandler(load, logger))
			return consumer.Start(ctx)
		},
		stopFn: func(ctx context.Context) error {
			if consumer != nil {
				return consumer.Stop()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:  "http-server",
		needs: []string{"pipeline", "consumer"},
		startFn: func(ctx context.Context) error {
			echoSrv = buildServer(cfg, logger)

			var consumerHealth health.ConsumerHealth
			if consumer != nil {
				consumerHealth = consumer
			}
			checker = health.NewChecker(sqlxDB, consumerHealth, version)
			checker.RegisterRoutes(echoSrv)

			readings.Register(echoSrv.Group("/api/v1/readings"))
			readings.RegisterStats(echoSrv.Group("/api/v1/stats"))

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := echoSrv.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		stopFn: func(ctx context.Context) error {
			if checker != nil {
				checker.SetReady(false)
			}
			if echoSrv != nil {
				return echoSrv.Shutdown(ctx)
			}
			return nil
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	logger.WithFields(map[string]any{"port": cfg.Port, "app": cfg.AppName}).Info("Service started")

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}

func initTracing(ctx context.Context, cfg config.Config) (func(), error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: "grpc",
		Insecure: true,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}

func producerConfig(cfg config.Config, topic string) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        topic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}
}

// streamHandler loads each consumed reading. Returning an error leaves the
// message uncommitted; redelivery is safe because loads are idempotent.
func streamHandler(load *loader.Loader, logger ectologger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		result, err := load.LoadRaw(ctx, *msg.Reading, "stream")
		if err != nil {
			return err
		}
		logger.WithContext(ctx).WithFields(map[string]any{
			"evt_id":  msg.GetEventID(),
			"outcome": result.Outcome,
		}).Debug("Processed streamed reading")
		return nil
	}
}

func buildServer(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	return e
}

func buildContainer(
	factRepo *fact.Repository,
	soilRepo *soildim.Repository,
	timeRepo *timedim.Repository,
	locationRepo *locationdim.Repository,
	weatherRepo *weatherdim.Repository,
	load *loader.Loader,
) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, err
	}

	if err := ectoinject.RegisterInstance[*fact.Repository](container, factRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*soildim.Repository](container, soilRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*timedim.Repository](container, timeRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*locationdim.Repository](container, locationRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*weatherdim.Repository](container, weatherRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*loader.Loader](container, load); err != nil {
		return nil, err
	}

	return container, nil
}
