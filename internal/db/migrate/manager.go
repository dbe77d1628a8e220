package dbmigrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/roivaz/notion-chakra-mcp/internal/db/migrations"
)

type Manager struct {
	migrator *migrate.Migrator
}

// NewManager uses the migrations embedded in the binary.
func NewManager(db *bun.DB) (*Manager, error) {
	return NewManagerWithFS(db, migrations.FS)
}

func NewManagerWithFS(db *bun.DB, fsys fs.FS) (*Manager, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if fsys == nil {
		return nil, errors.New("migrations filesystem is required")
	}

	ms := migrate.NewMigrations()
	if err := ms.Discover(fsys); err != nil {
		return nil, fmt.Errorf("discover migrations: %w", err)
	}

	return &Manager{migrator: migrate.NewMigrator(db, ms)}, nil
}

func (m *Manager) Init(ctx context.Context) error {
	return m.migrator.Init(ctx)
}

// MigrateUp applies pending migrations and returns the names applied.
func (m *Manager) MigrateUp(ctx context.Context) ([]string, error) {
	group, err := m.migrator.Migrate(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	if group != nil {
		for _, mig := range group.Migrations {
			names = append(names, mig.Name)
		}
	}
	return names, nil
}

// MigrateDownSteps rolls back the last steps groups; 0 rolls back everything.
func (m *Manager) MigrateDownSteps(ctx context.Context, steps int) error {
	if steps < 0 {
		return errors.New("steps must be >= 0")
	}

	status, err := m.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}

	applied := status.Applied()
	if len(applied) == 0 {
		return nil
	}

	count := steps
	if steps == 0 || steps > len(applied) {
		count = len(applied)
	}

	for i := 0; i < count; i++ {
		group, err := m.migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		if group == nil || group.IsZero() {
			break
		}
	}

	return nil
}

func (m *Manager) Status(ctx context.Context) (migrate.MigrationSlice, error) {
	return m.migrator.MigrationsWithStatus(ctx)
}

// Pending lists migrations that have not been applied.
func (m *Manager) Pending(ctx context.Context) ([]string, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch migration status: %w", err)
	}
	var pending []string
	for _, mig := range status {
		if !mig.IsApplied() {
			pending = append(pending, fmt.Sprintf("%s_%s", mig.Name, mig.Comment))
		}
	}
	return pending, nil
}
