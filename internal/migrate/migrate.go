// Package migrate applies the embedded goose migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/migrations"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

var Module = fx.Module("migrate",
	fx.Provide(NewMigrator),
	fx.Invoke(autoMigrate),
)

type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMigrator returns nil when there is no database.
func NewMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	if db == nil {
		return nil
	}
	return &Migrator{db: db.DB, log: log.With(logger.Scope("migrator"))}
}

// NewSQLMigrator is used by the standalone migration command.
func NewSQLMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	return &Migrator{db: db, log: log.With(logger.Scope("migrator"))}
}

func (m *Migrator) prepare() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.prepare(); err != nil {
		return err
	}
	m.log.Info("running database migrations")
	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	m.log.Info("migrations completed")
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.prepare(); err != nil {
		return err
	}
	m.log.Info("rolling back last migration")
	if err := goose.DownContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	if err := m.prepare(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, m.db, ".")
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if err := m.prepare(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, m.db)
}

func autoMigrate(lc fx.Lifecycle, m *Migrator, cfg *config.Config) {
	if m == nil || !cfg.Database.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Up(ctx)
		},
	})
}
