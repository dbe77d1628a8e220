// Package app assembles the runtime shared by the server and the CLI from
// resolved settings.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/db"
	dbmigrate "github.com/roivaz/notion-chakra-mcp/internal/db/migrate"
	"github.com/roivaz/notion-chakra-mcp/internal/jq"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
	"github.com/roivaz/notion-chakra-mcp/internal/retry"
	"github.com/roivaz/notion-chakra-mcp/internal/schemas"
	"github.com/roivaz/notion-chakra-mcp/internal/telemetry"
)

// Version is reported in telemetry resources.
var Version = "dev"

type Runtime struct {
	Settings  config.Settings
	Logger    logging.Logger
	Telemetry *telemetry.Provider
	Client    *notion.Client
	Adapter   *adapter.Adapter
	Schemas   *schemas.Service
	Filter    *jq.Filter

	database *db.Database
}

// New builds the runtime. The returned Runtime must be closed.
func New(ctx context.Context, settings config.Settings, log logging.Logger) (*Runtime, error) {
	rt := &Runtime{Settings: settings, Logger: log, Filter: jq.NewFilter(jq.DefaultTimeout)}

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    settings.Telemetry.ServiceName,
		ServiceVersion: Version,
		Exporter:       settings.Telemetry.Exporter,
		Endpoint:       settings.Telemetry.Endpoint,
		Insecure:       settings.Telemetry.Insecure,
		MetricsEnabled: settings.Telemetry.MetricsEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	rt.Telemetry = tel

	rt.Client = notion.NewClient(notion.Options{
		Token:     settings.Notion.APIKey,
		BaseURL:   settings.Notion.BaseURL,
		Version:   settings.Notion.Version,
		Timeout:   settings.Notion.Timeout,
		RateLimit: settings.Notion.RateLimit,
		Logger:    log,
	})

	rt.Adapter = adapter.New(rt.Client, adapter.Config{
		Policy:   RetryPolicy(settings.Retry),
		Logger:   log,
		Recorder: tel.Metrics(),
	})

	store, err := rt.openStore(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Schemas = schemas.NewService(rt.Adapter, store, log)
	return rt, nil
}

// RetryPolicy converts settings into a retry policy.
func RetryPolicy(s config.RetrySettings) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = s.MaxAttempts
	p.BaseDelay = s.BaseDelay
	p.MaxDelay = s.MaxDelay
	p.MaxTotalWait = s.MaxTotalWait
	p.Jitter = s.Jitter
	return p
}

func (rt *Runtime) openStore(ctx context.Context) (schemas.Store, error) {
	switch rt.Settings.Storage.Backend {
	case config.BackendPostgres:
		database, err := db.Open(ctx, db.Config{DSN: rt.Settings.Storage.PostgresURL, MaxOpenConns: 4})
		if err != nil {
			return nil, err
		}
		if err := dbmigrate.EnsureCurrent(ctx, database.Bun(), true); err != nil {
			_ = database.Close()
			return nil, err
		}
		rt.database = database
		rt.Logger.Info("using postgres schema store")
		return db.NewSchemaStore(database), nil
	default:
		rt.Logger.Info("using file schema store", "dir", rt.Settings.Storage.DataDir)
		return schemas.NewFileStore(rt.Settings.Storage.DataDir), nil
	}
}

// Close flushes telemetry and closes the schema database.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.database != nil {
		errs = append(errs, rt.database.Close())
		rt.database = nil
	}
	if rt.Telemetry != nil {
		errs = append(errs, rt.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
