package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Files holds the bundled schema migrations.
//
//go:embed sql/*.sql
var Files embed.FS

var ErrNothingToRollBack = errors.New("no migrations to roll back")

// Migration is one numbered schema change. Files are named
// NNN_name.sql and NNN_name_down.sql.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt *time.Time
}

type Manager struct {
	db     *pgxpool.Pool
	files  fs.FS
	logger *zap.Logger
}

// NewManager reads migrations from files; nil uses the bundled set.
func NewManager(db *pgxpool.Pool, files fs.FS, logger *zap.Logger) *Manager {
	if files == nil {
		sub, err := fs.Sub(Files, "sql")
		if err != nil {
			panic(err)
		}
		files = sub
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, files: files, logger: logger}
}

// Initialize creates the migrations table if it doesn't exist
func (m *Manager) Initialize(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

// LoadMigrations returns the migrations found in the manager's files,
// ordered by version.
func (m *Manager) LoadMigrations() ([]Migration, error) {
	return Load(m.files)
}

func Load(files fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrations := make(map[int]Migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".sql")
		down := strings.HasSuffix(base, "_down")
		base = strings.TrimSuffix(base, "_down")

		prefix, label, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			continue
		}

		content, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		migration, exists := migrations[version]
		if !exists {
			migration = Migration{Version: version, Name: label}
		} else if migration.Name != label {
			return nil, fmt.Errorf("migration %d has conflicting names %q and %q", version, migration.Name, label)
		}

		if down {
			migration.DownSQL = string(content)
		} else {
			migration.UpSQL = string(content)
		}
		migrations[version] = migration
	}

	result := make([]Migration, 0, len(migrations))
	for _, mig := range migrations {
		if mig.UpSQL == "" {
			return nil, fmt.Errorf("migration %d (%s) has no up script", mig.Version, mig.Name)
		}
		result = append(result, mig)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// Pending returns the migrations not yet in applied, in order.
func Pending(migrations []Migration, applied map[int]time.Time) []Migration {
	pending := []Migration{}
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; !ok {
			pending = append(pending, mig)
		}
	}
	return pending
}

// GetAppliedMigrations returns all applied migrations
func (m *Manager) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.db.Query(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Up creates the migrations table if needed and applies all pending
// migrations, each in its own transaction.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, migration := range Pending(migrations, applied) {
		tx, err := m.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(ctx, migration.UpSQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		m.logger.Info("Applied migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))
	}
	return nil
}

// Down rolls back the last applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return ErrNothingToRollBack
	}

	lastVersion := 0
	for version := range applied {
		if version > lastVersion {
			lastVersion = version
		}
	}

	var migration *Migration
	for i := range migrations {
		if migrations[i].Version == lastVersion {
			migration = &migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("migration %d has no down script", lastVersion)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("failed to roll back migration %d: %w", migration.Version, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("failed to remove migration record %d: %w", migration.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rollback of migration %d: %w", migration.Version, err)
	}

	m.logger.Info("Rolled back migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))
	return nil
}
