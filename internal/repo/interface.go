package repo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Repository defines the local persistence used by the dashboard process.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// UI preferences, one opaque JSON document per profile.
	LoadPrefs(ctx context.Context, profile string) ([]byte, bool, error)
	SavePrefs(ctx context.Context, profile string, payload []byte) error

	// Notice dispatch log
	RecordDispatch(ctx context.Context, rec DispatchRecord) (*DispatchRecord, error)
	LastDispatch(ctx context.Context, clientID int64) (time.Time, bool, error)
	ListDispatches(ctx context.Context, limit int) ([]DispatchRecord, error)
}

// Options selects and configures the storage driver.
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	Schema      string
}

// Open connects to the configured driver and applies its migrations from the
// driver's subdirectory of migrations.
func Open(ctx context.Context, opts Options, migrations fs.FS, logger *slog.Logger) (Repository, error) {
	var (
		r   Repository
		err error
	)
	switch opts.Driver {
	case "postgres":
		r, err = NewPostgres(ctx, opts.DatabaseURL, opts.Schema, logger)
	case "sqlite", "":
		r, err = NewSQLite(ctx, opts.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	dir := opts.Driver
	if dir == "" {
		dir = "sqlite"
	}
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("open %s migrations: %w", dir, err)
	}
	if err := r.RunMigrations(ctx, sub); err != nil {
		r.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return r, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
