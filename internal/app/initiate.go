package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/replay"
	"github.com/shandysiswandi/totpguard/internal/pkg/router"
	"github.com/shandysiswandi/totpguard/internal/pkg/totp"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const pubsubScope = "https://www.googleapis.com/auth/pubsub"

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("app.name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator
}

func (a *App) replayDriver() string {
	return strings.ToLower(strings.TrimSpace(a.config.GetString("replay.driver")))
}

// waitReady retries ping with a capped Fibonacci backoff so the service
// survives starting before its stores.
func (a *App) waitReady(name string, ping func(ctx context.Context) error) error {
	attempts := a.config.GetUint64("replay.connect_attempts")

	b := retry.NewFibonacci(200 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxRetries(attempts, b)

	return retry.Do(a.ctx, b, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "dependency is not ready yet", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (a *App) initDatabase() {
	if a.replayDriver() != replay.DriverPostgres {
		return
	}

	config, err := pgxpool.ParseConfig(a.config.GetString("replay.postgres.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}
	config.MaxConns = int32(a.config.GetInt("replay.postgres.max_conns")) //nolint:gosec // small config value

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	if err := a.waitReady("postgres", pool.Ping); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	if a.replayDriver() != replay.DriverRedis {
		return
	}

	opt, err := redis.ParseURL(a.config.GetString("replay.redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	if err := a.waitReady("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

func (a *App) initVerifier() {
	digits, err := otp.ParseDigits(a.config.GetInt("totp.digits"))
	if err != nil {
		slog.Error("failed to parse totp digits", "error", err)
		os.Exit(1)
	}

	algorithm, err := otp.ParseAlgorithm(a.config.GetString("totp.algorithm"))
	if err != nil {
		slog.Error("failed to parse totp algorithm", "error", err)
		os.Exit(1)
	}

	engine, err := otp.NewHOTP(otp.HOTPConfig{Digits: digits, Algorithm: algorithm})
	if err != nil {
		slog.Error("failed to init code engine", "error", err)
		os.Exit(1)
	}

	interval := a.config.GetInt("totp.interval_seconds")
	back := a.config.GetUint("totp.check_back")
	forward := a.config.GetUint("totp.check_forward")

	opts := replay.FactoryOptions{
		Redis: replay.RedisOptions{
			Client: a.cacheConn,
			Prefix: a.config.GetString("replay.redis.prefix"),
		},
		Postgres: replay.PostgresOptions{
			Table: a.config.GetString("replay.postgres.table"),
		},
	}
	if interval > 0 {
		opts.Redis.TTL = totp.Retention(uint64(interval), back, forward)
	}
	if a.dbConn != nil {
		opts.Postgres.Pool = a.dbConn
	}

	guard, err := replay.NewFromDriver(a.ctx, a.replayDriver(), opts)
	if err != nil {
		slog.Error("failed to init replay guard", "driver", a.replayDriver(), "error", err)
		os.Exit(1)
	}
	a.guard = guard

	verifier, err := totp.NewVerifier(guard, engine,
		totp.WithIntervalSeconds(interval),
		totp.WithWindow(back, forward),
		totp.WithClock(a.clock),
	)
	if err != nil {
		slog.Error("failed to init totp verifier", "error", err)
		os.Exit(1)
	}
	a.verifier = verifier

	slog.Info("totp verifier ready",
		"driver", a.replayDriver(),
		"interval_seconds", verifier.Interval(),
		"check_back", back,
		"check_forward", forward,
		"digits", verifier.Digits(),
	)
}

// initJanitor evicts expired used-code records for guards that do not expire
// them on their own. Redis relies on key TTLs instead.
func (a *App) initJanitor() {
	pruner, ok := a.guard.(replay.Pruner)
	if !ok {
		return
	}

	janitor := replay.NewJanitor(pruner, a.config.GetSecond("replay.prune_every"), a.verifier.PruneHorizon)
	a.goroutine.Go(a.ctx, janitor.Run)
}

func (a *App) initMessaging() {
	if !a.config.GetBool("audit.enabled") {
		a.messaging = messaging.NewNoop()
		return
	}

	driver := a.config.GetString("audit.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("audit.nsq.producer_addr"),
			ProducerConfig: func() *nsq.Config {
				cfg := nsq.NewConfig()
				if v := a.config.GetSecond("audit.nsq.dial_timeout_seconds"); v > 0 {
					cfg.DialTimeout = v
				}
				if v := a.config.GetSecond("audit.nsq.write_timeout_seconds"); v > 0 {
					cfg.WriteTimeout = v
				}
				return cfg
			}(),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("audit.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("app.name")),
				nats.MaxReconnects(a.config.GetInt("audit.nats.max_reconnects")),
				nats.RetryOnFailedConnect(a.config.GetBool("audit.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("audit.kafka.brokers"),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("audit.pubsub.project_id"),
			ClientOptions: a.pubsubOptions(),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) pubsubOptions() []option.ClientOption {
	var opts []option.ClientOption

	if v := strings.TrimSpace(a.config.GetString("audit.pubsub.endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v), option.WithoutAuthentication())
	}

	if v := strings.TrimSpace(a.config.GetString("audit.pubsub.credentials_file")); v != "" {
		// #nosec G304 -- path is from trusted config file.
		credsJSON, err := os.ReadFile(v)
		if err != nil {
			slog.Error("failed to read pubsub credentials file", "error", err)
			os.Exit(1)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, pubsubScope)
		if err != nil {
			slog.Error("failed to parse pubsub credentials file", "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	return opts
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{router.HeaderCorrelationID},
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				if a.dbConn != nil {
					a.dbConn.Close()
				}
				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
