package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrSchedulerSettingsNotFound = errors.New("scheduler settings not found")

// SchedulerSettings holds the tunables of the schedule engine for a profile.
type SchedulerSettings struct {
	ID              int64
	ProfileID       int64
	ScheduleFile    string
	StartupDelay    time.Duration
	WriteTimeout    time.Duration
	WritesPerSecond int
	SerialPort      string
	BaudRate        int
	UpdatedAt       time.Time
}

// SchedulerSettingsStore reads and writes scheduler settings.
type SchedulerSettingsStore interface {
	Get(ctx context.Context, profileID int64) (*SchedulerSettings, error)
	Save(ctx context.Context, s *SchedulerSettings) error
}

// SchedulerSettings returns a SchedulerSettingsStore for this database.
func (db *DB) SchedulerSettings() SchedulerSettingsStore {
	return &schedulerSettingsStore{db: db}
}

type schedulerSettingsStore struct {
	db *DB
}

func (s *schedulerSettingsStore) Get(ctx context.Context, profileID int64) (*SchedulerSettings, error) {
	st := &SchedulerSettings{}
	var startupMS, timeoutMS int64
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, schedule_file, startup_delay_ms, write_timeout_ms,
		       writes_per_second, serial_port, baud_rate, updated_at
		FROM scheduler_settings WHERE profile_id = ?
	`, profileID).Scan(&st.ID, &st.ProfileID, &st.ScheduleFile, &startupMS, &timeoutMS,
		&st.WritesPerSecond, &st.SerialPort, &st.BaudRate, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSchedulerSettingsNotFound
	}
	if err != nil {
		return nil, err
	}
	st.StartupDelay = time.Duration(startupMS) * time.Millisecond
	st.WriteTimeout = time.Duration(timeoutMS) * time.Millisecond
	st.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return st, nil
}

// Save inserts or replaces the profile's settings row.
func (s *schedulerSettingsStore) Save(ctx context.Context, st *SchedulerSettings) error {
	if st.StartupDelay < 0 || st.WriteTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scheduler_settings
			(profile_id, schedule_file, startup_delay_ms, write_timeout_ms,
			 writes_per_second, serial_port, baud_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			schedule_file = excluded.schedule_file,
			startup_delay_ms = excluded.startup_delay_ms,
			write_timeout_ms = excluded.write_timeout_ms,
			writes_per_second = excluded.writes_per_second,
			serial_port = excluded.serial_port,
			baud_rate = excluded.baud_rate,
			updated_at = datetime('now')
		RETURNING id
	`, st.ProfileID, st.ScheduleFile, st.StartupDelay.Milliseconds(), st.WriteTimeout.Milliseconds(),
		st.WritesPerSecond, st.SerialPort, st.BaudRate).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("failed to save scheduler settings: %w", err)
	}
	return nil
}
