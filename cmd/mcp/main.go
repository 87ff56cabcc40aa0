package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-scheduler/pkg/db"
	"github.com/urmzd/homai-scheduler/pkg/device"
	homaimcp "github.com/urmzd/homai-scheduler/pkg/mcp"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
	"github.com/urmzd/homai-scheduler/pkg/schedule/schema"
	"github.com/urmzd/homai-scheduler/pkg/serialtag"

	_ "time/tzdata"
)

func main() {
	// Logging must go to stderr, stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/homai-scheduler/scheduler.db)")
	serialPort := flag.String("serial", "", "Path to the tag controller serial port (overrides the stored setting)")
	flag.Parse()

	ctx := context.Background()

	// Open database
	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Bootstrap if needed (first run)
	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check bootstrap status")
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap database")
		}
		log.Info().Msg("Database bootstrapped successfully")
	}

	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Timezone()).Msg("Unknown timezone, using UTC")
		loc = time.UTC
	}

	port := cfg.Scheduler.SerialPort
	if *serialPort != "" {
		port = *serialPort
	}

	var writer device.TagWriter = device.NewNullWriter()
	if port != "" {
		w, err := serialtag.Open(port, cfg.Scheduler.BaudRate)
		if err != nil {
			log.Warn().Err(err).Str("port", port).Msg("Tag controller unavailable, using null writer")
		} else {
			writer = w
		}
	}
	defer func() { _ = writer.Close() }()

	svc := schedule.NewService(
		schedule.NewStore(cfg.Scheduler.ScheduleFile),
		writer,
		schedule.NewCron(loc),
		schedule.Options{
			Location:        loc,
			StartupDelay:    cfg.Scheduler.StartupDelay,
			WriteTimeout:    cfg.Scheduler.WriteTimeout,
			WritesPerSecond: cfg.Scheduler.WritesPerSecond,
		},
	)
	if err := svc.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer svc.Stop(context.Background())

	// Pick up schedules written by a cmd/api process sharing the file
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := schedule.NewWatcher(svc, 0).Run(watchCtx); err != nil {
			log.Warn().Err(err).Msg("Schedules file watcher stopped")
		}
	}()

	mcpServer := homaimcp.NewServer(svc, schema.NewValidator())

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
