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

	"github.com/johnrmarty/chat-prd/internal/api"
	"github.com/johnrmarty/chat-prd/internal/completion"
	"github.com/johnrmarty/chat-prd/internal/config"
	"github.com/johnrmarty/chat-prd/internal/database"
	"github.com/johnrmarty/chat-prd/internal/hub"
	"github.com/johnrmarty/chat-prd/internal/stats"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr               string
	dsn                string
	signingKey         string
	completionEndpoint string
	completionAPIKey   string
	allowedOrigins     stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&completionEndpoint, "completion-endpoint", "http://localhost:9000/v1/completions", "completion service endpoint")
	flag.StringVar(&completionAPIKey, "completion-api-key", "", "completion service API key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[chat-prd] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, completionEndpoint, completionAPIKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgProjectRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	h := hub.NewHub(logger, statsUpdater)

	completions := completion.NewHTTPService(cfg.CompletionEndpoint, cfg.CompletionAPIKey, logger)

	srv := api.NewChatPrdApp(mux, logger, h, dbConn, completions, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go h.Run()

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

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down hub...")
	if err := h.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("hub shutdown:", err)
	}

	logger.Println("shutdown complete")
}
