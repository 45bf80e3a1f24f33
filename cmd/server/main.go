package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"clave/internal/auth"
	authhandler "clave/internal/auth/handler"
	"clave/internal/auth/revocation"
	"clave/internal/contacts"
	evalhandler "clave/internal/evaluation/handler"
	evalmetrics "clave/internal/evaluation/metrics"
	evalservice "clave/internal/evaluation/service"
	evalstore "clave/internal/evaluation/store"
	"clave/internal/jwttoken"
	"clave/internal/platform/config"
	"clave/internal/platform/httpserver"
	"clave/internal/platform/logger"
	platformredis "clave/internal/platform/redis"
	httptransport "clave/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		evaluations evalstore.EvaluationStore
		users       auth.UserStore
		directory   contacts.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		evalPG := evalstore.NewPostgres(pool)
		userPG := auth.NewPostgresUserStore(pool)
		contactPG := contacts.NewPostgresStore(pool)
		for _, ensure := range []func(context.Context) error{
			evalPG.EnsureSchema, userPG.EnsureSchema, contactPG.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				log.Error("failed to ensure schema", "error", err)
				os.Exit(1)
			}
		}
		evaluations, users, directory = evalPG, userPG, contactPG
	} else {
		log.Warn("no database configured, using in-memory stores")
		evaluations, users, directory = evalstore.NewInMemory(), auth.NewInMemoryUserStore(), contacts.NewInMemoryStore()
	}

	var trl auth.TokenRevocationList = revocation.NewInMemoryTRL()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "clave")
	authSvc := auth.NewService(users, trl, tokens, log)
	if _, err := authSvc.SeedUser(ctx, cfg.SeedAdminUsername, cfg.SeedAdminPassword, auth.RoleAdministrator); err != nil {
		log.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}

	evalSvc := evalservice.New(evaluations, evalmetrics.New(), log)
	contactSvc := contacts.NewService(directory, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		JWT:         tokens,
		TRL:         trl,
		Auth:        authhandler.New(authSvc, log),
		Evaluations: evalhandler.New(evalSvc, log),
		Contacts:    contacts.NewHandler(contactSvc, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting clave server", "addr", cfg.Addr)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
