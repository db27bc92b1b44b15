package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/authflow"
	credsqlite "github.com/jrsteele09/go-auth-client/credentials/sqlite"
	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/server"
	"github.com/jrsteele09/go-auth-client/websession"
	sesssqlite "github.com/jrsteele09/go-auth-client/websession/sqlite"
	_ "modernc.org/sqlite"
)

const (
	providerDiscoveryTimeout = 30 * time.Second
	sessionSweepInterval     = time.Hour
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	logger := newLogger(c)
	displayAppname(c.GetAppName())

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	credentialStore, err := credsqlite.New(db)
	if err != nil {
		return fmt.Errorf("credentials store: %w", err)
	}
	sessionStore, err := sesssqlite.New(db)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	discoveryCtx, cancelDiscovery := context.WithTimeout(context.Background(), providerDiscoveryTimeout)
	defer cancelDiscovery()
	provider, err := authflow.NewOIDCProvider(
		discoveryCtx,
		c.GetIssuerURL(),
		c.GetClientID(),
		c.GetClientSecret(),
		c.GetRedirectURL(),
		c.GetRevocationURL(),
		c.GetScopes(),
	)
	if err != nil {
		return fmt.Errorf("provider discovery: %w", err)
	}

	flow, err := authflow.NewService(authflow.Repos{
		Credentials: credentialStore,
		Sessions:    sessionStore,
	}, provider, logger)
	if err != nil {
		return fmt.Errorf("auth flow service: %w", err)
	}

	resolver := identity.NewResolver(c.GetUserinfoURL())

	srv, err := server.New(c, logger, sessionStore, flow, resolver)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	stopSweeper := startSessionSweeper(sessionStore, logger)
	defer stopSweeper()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func openDatabase(c config.Config) (*sql.DB, error) {
	folder := c.GetDataFolder()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create data folder: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(folder, "authclient.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// startSessionSweeper periodically removes sessions past their TTL.
func startSessionSweeper(sessions websession.Repo, logger zerolog.Logger) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sessions.DeleteExpired(time.Now()); err != nil {
					logger.Warn().Err(err).Msg("session sweep failed")
				}
			}
		}
	}()
	return func() { close(done) }
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
