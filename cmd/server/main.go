package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"sketchdash/internal/artifact"
	"sketchdash/internal/config"
	"sketchdash/internal/gateway"
	"sketchdash/internal/reaper"
	"sketchdash/internal/store"
	"sketchdash/internal/topic"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`sketchdash store gateway

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                 Port to listen on (default: 8080)
  DATABASE_DSN         Postgres DSN for persistence (default: in-memory only)
  RETENTION_HOURS      Stale room retention window (default: 24)
  TOPIC_CATALOG_URL    Remote topic catalog base URL (default: built-in list)
  TOPIC_TTL_MINUTES    Topic cache refresh interval (default: 60)
  MAX_ARTIFACT_BYTES   Per-drawing upload limit (default: 1048576)
  RATE_LIMIT_PER_SEC   Per-connection request rate (default: 50)
  RATE_BURST           Per-connection burst (default: 100)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("sketchdash %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	logger := zerologlog.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	var st store.Store
	if cfg.DatabaseDSN != "" {
		sqlStore, err := store.OpenSQL(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal(err)
		}
		st = sqlStore
		logger.Info().Msg("postgres persistence enabled")
	} else {
		st = store.NewMemory()
		logger.Info().Msg("running with in-memory store")
	}

	artifacts := artifact.NewMemory(cfg.MaxArtifactBytes)

	var source topic.Source
	if cfg.TopicCatalogURL != "" {
		source = topic.NewHTTPSource(cfg.TopicCatalogURL)
	}
	topics := topic.NewCatalog(source, cfg.TopicTTL(), logger)

	// Gin setup with custom logger (skip /ws noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if path == "/ws" {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		logger.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	gw := gateway.New(st, logger, rate.Limit(cfg.RateLimitPerSec), cfg.RateBurst)
	gw.Mount(r)

	// Clients without their own catalog source pull topics from here.
	r.GET("/topics", func(c *gin.Context) {
		c.JSON(200, gin.H{"topics": topics.List()})
	})

	// Best-effort garbage collection; never blocks startup.
	reaper.New(st, artifacts, cfg.Retention(), logger).Run(context.Background())

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
