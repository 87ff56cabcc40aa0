package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	defaultScheduleFileName = "schedules.json"
	defaultBaudRate         = 115200
)

// Bootstrap creates the default profile, API server and scheduler settings
// on first run. It does nothing once a profile exists.
func (db *DB) Bootstrap(ctx context.Context) error {
	needed, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to check profiles: %w", err)
	}
	if !needed {
		return nil
	}

	timezone := detectTimezone()

	return db.Tx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (name, timezone, is_active)
			VALUES (?, ?, 1)
		`, "default", timezone)
		if err != nil {
			return fmt.Errorf("failed to create default profile: %w", err)
		}

		profileID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get profile ID: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO api_servers (profile_id, host, port)
			VALUES (?, '0.0.0.0', 8080)
		`, profileID); err != nil {
			return fmt.Errorf("failed to create default API server: %w", err)
		}

		st := db.defaultSchedulerSettings(profileID)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scheduler_settings
				(profile_id, schedule_file, startup_delay_ms, write_timeout_ms,
				 writes_per_second, serial_port, baud_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, profileID, st.ScheduleFile, st.StartupDelay.Milliseconds(), st.WriteTimeout.Milliseconds(),
			st.WritesPerSecond, st.SerialPort, st.BaudRate); err != nil {
			return fmt.Errorf("failed to create default scheduler settings: %w", err)
		}

		return nil
	})
}

// defaultSchedulerSettings keeps the schedules file next to the database.
func (db *DB) defaultSchedulerSettings(profileID int64) *SchedulerSettings {
	return &SchedulerSettings{
		ProfileID:       profileID,
		ScheduleFile:    filepath.Join(filepath.Dir(db.path), defaultScheduleFileName),
		StartupDelay:    5 * time.Second,
		WriteTimeout:    5 * time.Second,
		WritesPerSecond: 20,
		BaudRate:        defaultBaudRate,
	}
}

// detectTimezone attempts to detect the system timezone. Anything the
// runtime cannot load falls back to UTC.
func detectTimezone() string {
	tz := systemTimezone()
	if _, err := time.LoadLocation(tz); err != nil {
		return "UTC"
	}
	return tz
}

func systemTimezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}

	switch runtime.GOOS {
	case "darwin":
		out, err := exec.Command("systemsetup", "-gettimezone").Output()
		if err == nil {
			parts := strings.SplitN(string(out), ": ", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}

	case "linux":
		// systemd
		out, err := exec.Command("timedatectl", "show", "--property=Timezone", "--value").Output()
		if err == nil {
			return strings.TrimSpace(string(out))
		}

		if data, err := os.ReadFile("/etc/timezone"); err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	if link, err := os.Readlink("/etc/localtime"); err == nil {
		if _, zone, ok := strings.Cut(link, "zoneinfo/"); ok {
			return zone
		}
	}

	return "UTC"
}

// NeedsBootstrap returns true if the database needs initial setup.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
