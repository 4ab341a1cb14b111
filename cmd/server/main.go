package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"idlink/internal/audit"
	"idlink/internal/identity/cooldown"
	"idlink/internal/identity/perms"
	"idlink/internal/identity/service"
	"idlink/internal/identity/store"
	jwttoken "idlink/internal/jwt_token"
	"idlink/internal/platform/config"
	"idlink/internal/platform/httpserver"
	"idlink/internal/platform/logger"
	"idlink/internal/platform/metrics"
	"idlink/internal/platform/redis"
	httptransport "idlink/internal/transport/http"
	stringsutil "idlink/pkg/platform/strings"
)

// main wires dependencies and owns the process lifecycle. Postgres, Redis,
// and Kafka are each optional: without them the server runs on in-memory
// stores, which is the development mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence facade.
	var facade store.Facade
	var auditStore audit.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to create postgres pool", "error", err)
			return
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure identity schema", "error", err)
			return
		}
		facade = pg

		db, err := audit.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open audit database", "error", err)
			return
		}
		defer db.Close()

		pgAudit := audit.NewPostgres(db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure audit schema", "error", err)
			return
		}
		auditStore = pgAudit
	} else {
		log.Warn("no database configured, using in-memory stores")
		facade = store.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	// Audit pipeline: store-backed publisher, plus a Kafka sink when brokers
	// are configured, behind an async worker so decisions never wait on sinks.
	var emitter audit.Emitter = audit.NewPublisher(auditStore)
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect kafka audit sink", "error", err)
			return
		}
		defer sink.Close()
		emitter = audit.NewFanout(emitter, sink)
	}
	worker := audit.NewWorker(emitter, 1024, log)

	// Cooldown tracker.
	var cooldownStorage cooldown.Storage
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		return
	}
	if redisClient != nil {
		defer redisClient.Close()
		cooldownStorage = cooldown.NewRedis(redisClient.Client)
	} else {
		log.Warn("no redis configured, using in-memory cooldown storage")
		cooldownStorage = cooldown.NewInMemory()
	}
	cooldownSvc, err := cooldown.New(cooldownStorage, cfg.UnlinkCooldown, cooldown.WithLogger(log))
	if err != nil {
		log.Error("failed to build cooldown tracker", "error", err)
		return
	}

	// Decision engine.
	engineOpts := []perms.Option{
		perms.WithLogger(log),
		perms.WithAuditPublisher(worker),
	}
	if len(cfg.AllowedEmailDomains) > 0 {
		engineOpts = append(engineOpts, perms.WithEmailValidator(domainValidator(cfg.AllowedEmailDomains)))
	}
	engine, err := perms.New(facade, cfg.Admins, engineOpts...)
	if err != nil {
		log.Error("failed to build decision engine", "error", err)
		return
	}

	// Lifecycle service.
	users, err := service.New(facade, engine, cooldownSvc,
		service.WithLogger(log),
		service.WithAuditPublisher(worker),
		service.WithMetrics(metrics.New()),
		service.WithMeta(service.Meta{
			InstanceName:   cfg.InstanceName,
			UnlinkCooldown: cfg.UnlinkCooldown,
		}),
	)
	if err != nil {
		log.Error("failed to build lifecycle service", "error", err)
		return
	}

	// HTTP surface. All allowlisted admins share the configured password
	// hash; login is disabled entirely when no hash is set.
	admins := make(map[string]string, len(cfg.Admins))
	if cfg.AdminPasswordHash != "" {
		for _, a := range cfg.Admins {
			admins[a] = cfg.AdminPasswordHash
		}
	}
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.InstanceName, time.Hour)
	handler := httptransport.NewHandler(users, engine, tokens, admins, log, worker)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting idlink server", "addr", cfg.Addr, "instance", cfg.InstanceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		return
	}
	log.Info("server stopped")
}

// domainValidator accepts emails whose domain is in the allowlist.
func domainValidator(domains []string) perms.EmailValidator {
	normalized := stringsutil.DedupeAndTrimLower(domains)
	allowed := make(map[string]struct{}, len(normalized))
	for _, d := range normalized {
		allowed[d] = struct{}{}
	}
	return func(email string) bool {
		at := strings.LastIndex(email, "@")
		if at < 0 {
			return false
		}
		_, ok := allowed[strings.ToLower(email[at+1:])]
		return ok
	}
}
