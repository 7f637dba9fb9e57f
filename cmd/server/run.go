package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/go-entra-webapp/authflow"
	"github.com/jrsteele09/go-entra-webapp/identity"
	"github.com/jrsteele09/go-entra-webapp/internal/config"
	"github.com/jrsteele09/go-entra-webapp/internal/metrics"
	"github.com/jrsteele09/go-entra-webapp/internal/ratelimit"
	"github.com/jrsteele09/go-entra-webapp/server"
	"github.com/jrsteele09/go-entra-webapp/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const housekeepingInterval = time.Minute

func run(ctx context.Context, mode server.Mode, envFiles []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New(envFiles...)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogging(c)
	displayAppname(c.GetAppName())
	for _, warning := range c.Warnings() {
		log.Warn().Msg(warning)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{Metrics: metrics.New("entra_webapp")}
	if c.GetEnableRateLimiting() {
		deps.Limiter = ratelimit.New(c.GetRateLimit())
	}

	var (
		store session.Store
		flows *authflow.InMemoryRepo
	)
	if mode == server.ModeSignIn {
		deps.Identity, err = identity.New(ctx, c, &http.Client{Timeout: c.GetExchangeTimeout() + 5*time.Second})
		if err != nil {
			return fmt.Errorf("identity client: %w", err)
		}
		store, err = session.Open(c)
		if err != nil {
			return fmt.Errorf("session store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Err(err).Msg("closing session store")
			}
		}()
		flows = authflow.NewInMemoryRepo(c.GetAuthFlowTTL())
		deps.Sessions = store
		deps.Flows = flows
	} else {
		log.Warn().Msg("proxy mode trusts X-MS-CLIENT-PRINCIPAL-* headers; only run it behind App Service authentication")
	}

	handler, err := server.New(mode, c, deps)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listenAndServe(httpServer) })
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})
	if store != nil {
		g.Go(func() error { return session.Sweep(gctx, store, c.GetSweepInterval()) })
	}
	g.Go(func() error {
		return housekeeping(gctx, housekeepingInterval, func(now time.Time) {
			if flows != nil {
				flows.DeleteExpired(now)
			}
			if deps.Limiter != nil {
				deps.Limiter.Prune()
			}
		})
	})

	return g.Wait()
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if c.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("app", c.GetAppName()).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func housekeeping(ctx context.Context, interval time.Duration, tick func(time.Time)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			tick(now)
		}
	}
}
