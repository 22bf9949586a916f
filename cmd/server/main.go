package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/habii/habii-server/internal/api"
	"github.com/habii/habii-server/internal/config"
	"github.com/habii/habii-server/internal/database"
	"github.com/habii/habii-server/internal/decay"
	"github.com/habii/habii-server/internal/relay"
	"github.com/habii/habii-server/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "", "server address")
	flag.StringVar(&dsn, "dsn", "", "database connection string")
	flag.StringVar(&signingKey, "signing-key", "", "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[habii] ", log.LstdFlags)

	// flags override the environment
	if addr != "" {
		os.Setenv("SERVER_ADDR", addr)
	}
	if dsn != "" {
		os.Setenv("DATABASE_DSN", dsn)
	}
	if signingKey != "" {
		os.Setenv("SIGNING_SECRET", signingKey)
	}
	if len(allowedOrigins) > 0 {
		os.Setenv("ALLOWED_ORIGINS", allowedOrigins.String())
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("config:", err)
	}

	repo, err := database.NewPgHabiiRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	clock := clockwork.NewRealClock()

	relayServer, err := relay.NewRelayServer(logger, clock, cfg.SyncOffset, statsUpdater)
	if err != nil {
		logger.Fatal("new relay server:", err)
	}

	srv := api.NewHabiiApp(mux, logger, relayServer, repo, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go relayServer.Run()

	decayCtx, stopDecay := context.WithCancel(context.Background())
	defer stopDecay()
	worker := decay.NewWorker(logger, repo, clock, cfg.DecayInterval)
	go worker.Run(decayCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	stopDecay()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down relay server...")
	if err := relayServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("relay server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
