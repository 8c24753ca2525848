// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the SQL files under data/migrations with
// golang-migrate before the server accepts traffic.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the "pgx5" database scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// Registers the "file" source scheme.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Result reports the schema versions around a run. Applied is false when the
// schema was already current.
type Result struct {
	From    uint
	To      uint
	Applied bool
}

// Up migrates the database at dsn to the newest version found in dir. A
// dirty schema is refused and left for an operator.
func Up(dsn, dir string, logger *slog.Logger) (Result, error) {
	migrator, err := migrate.New("file://"+dir, ConvertToPgx5DSN(dsn))
	if err != nil {
		return Result{}, fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceErr, databaseErr := migrator.Close()
		if err := errors.Join(sourceErr, databaseErr); err != nil {
			logger.Warn("migration_close_failed", slog.Any("error", err))
		}
	}()
	migrator.Log = slogBridge{logger: logger}

	from, dirty, err := version(migrator)
	if err != nil {
		return Result{}, err
	}
	if dirty {
		return Result{From: from}, fmt.Errorf("migration: schema is dirty at version %d", from)
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migration_up_to_date", slog.Uint64("version", uint64(from)))
		return Result{From: from, To: from}, nil
	}
	if err != nil {
		return Result{From: from}, fmt.Errorf("migration: up failed: %w", err)
	}

	to, _, err := version(migrator)
	if err != nil {
		return Result{From: from}, err
	}
	logger.Info("migration_applied",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return Result{From: from, To: to, Applied: true}, nil
}

// version treats an empty schema as version 0.
func version(migrator *migrate.Migrate) (uint, bool, error) {
	current, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration: failed to read version: %w", err)
	}
	return current, dirty, nil
}

// ConvertToPgx5DSN rewrites postgres:// and postgresql:// URLs to the pgx5
// scheme golang-migrate registers. Other DSNs are returned unchanged.
func ConvertToPgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// slogBridge sends golang-migrate output to the debug level.
type slogBridge struct {
	logger *slog.Logger
}

func (bridge slogBridge) Printf(format string, args ...any) {
	bridge.logger.Debug("migration_progress", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (bridge slogBridge) Verbose() bool { return false }
