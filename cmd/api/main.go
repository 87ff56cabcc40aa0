package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-scheduler/pkg/api"
	"github.com/urmzd/homai-scheduler/pkg/db"
	"github.com/urmzd/homai-scheduler/pkg/device"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
	"github.com/urmzd/homai-scheduler/pkg/schedule/schema"
	"github.com/urmzd/homai-scheduler/pkg/serialtag"

	_ "github.com/urmzd/homai-scheduler/docs"
	_ "time/tzdata"
)

// @title           Homai Scheduler API
// @version         1.0
// @description     REST API for weekly ON/OFF tag schedules

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

const shutdownTimeout = 10 * time.Second

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/homai-scheduler/scheduler.db)")
	serialPort := flag.String("serial", "", "Path to the tag controller serial port (overrides the stored setting)")
	scheduleFile := flag.String("schedules", "", "Path to the schedules file (overrides the stored setting)")
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

	cfg, err := loadConfig(ctx, database, *serialPort, *scheduleFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Timezone()).Msg("Unknown timezone, using UTC")
		loc = time.UTC
	}

	log.Info().
		Str("profile", cfg.Profile.Name).
		Str("timezone", loc.String()).
		Str("api_address", cfg.APIAddress()).
		Str("schedules", cfg.Scheduler.ScheduleFile).
		Msg("Configuration loaded")

	writer := openWriter(cfg.Scheduler)
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close tag writer")
		}
	}()

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

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := schedule.NewWatcher(svc, 0).Run(watchCtx); err != nil {
			log.Warn().Err(err).Msg("Schedules file watcher stopped")
		}
	}()

	router := api.NewRouter(svc, schema.NewValidator())

	serverErr := make(chan error, 1)
	go func() {
		addr := cfg.APIAddress()
		log.Info().Str("address", addr).Msg("Starting API server")
		serverErr <- router.Run(addr)
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debug().Err(err).Msg("sd_notify failed")
	}

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down API server")
	}
	stopWatch()
	svc.Stop(shutdownCtx)
}

// loadConfig migrates and bootstraps the database, then applies and persists
// any command line overrides.
func loadConfig(ctx context.Context, database *db.DB, serialPort, scheduleFile string) (*db.Config, error) {
	if err := database.Migrate(ctx); err != nil {
		return nil, err
	}

	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		return nil, err
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			return nil, err
		}
		log.Info().Msg("Database bootstrapped successfully")
	}

	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		return nil, err
	}

	changed := false
	if serialPort != "" && serialPort != cfg.Scheduler.SerialPort {
		cfg.Scheduler.SerialPort = serialPort
		changed = true
	}
	if scheduleFile != "" && scheduleFile != cfg.Scheduler.ScheduleFile {
		cfg.Scheduler.ScheduleFile = scheduleFile
		changed = true
	}
	if changed {
		if err := database.SchedulerSettings().Save(ctx, cfg.Scheduler); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openWriter connects to the serial tag controller, falling back to a
// NullWriter so schedules can still be listed.
func openWriter(st *db.SchedulerSettings) device.TagWriter {
	if st.SerialPort == "" {
		log.Warn().Msg("No serial port configured, using null writer")
		return device.NewNullWriter()
	}

	w, err := serialtag.Open(st.SerialPort, st.BaudRate)
	if err != nil {
		log.Warn().Err(err).Str("port", st.SerialPort).Msg("Tag controller unavailable, using null writer")
		return device.NewNullWriter()
	}
	return w
}
