package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ramadan8/MediaUtility/internal/app"
	"github.com/ramadan8/MediaUtility/internal/config"
	"github.com/ramadan8/MediaUtility/pkg/logger"
)

var (
	configPath     string
	port           int
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", os.Getenv(config.PathEnv), "Path to YAML config file")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if allowedOrigins != "" {
		cfg.Server.AllowedOrigins = parseOrigins(allowedOrigins)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(a.Service, library{a.Local, a.Index}, &ServerConfig{
		Port:           cfg.Server.Port,
		TempDir:        cfg.Media.TempDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log)

	serveErr := server.Start(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		log.Warnf("Shutdown: %v", err)
	}
	if serveErr != nil {
		log.Fatalf("Server failed: %v", serveErr)
	}
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
