package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Миграции лежат рядом с кодом и встраиваются в бинарник.
//
//go:embed sql/migrations/*.sql
var embeddedMigrations embed.FS

const (
	migrationsDir = "sql/migrations"
	// Ключ advisory lock, общий для всех реплик сервиса и CLI migrate.
	schemaLockKey = int64(20240710)

	schemaVersionsDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var migrationFileName = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

// MigrationStep — одна версия схемы с SQL для наката и отката.
type MigrationStep struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// MigrationState описывает текущее состояние схемы.
type MigrationState struct {
	Version int64
	Applied int
	Pending int
}

// MigrateUp накатывает миграции. steps=0 накатывает все оставшиеся.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withSchemaLock(ctx, func(conn *sql.Conn, plan []MigrationStep) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		done := 0
		for _, step := range plan {
			if steps > 0 && done >= steps {
				break
			}
			if applied[step.Version] {
				continue
			}
			if err := runStep(ctx, conn, step, true); err != nil {
				return err
			}
			done++
		}
		return nil
	})
}

// MigrateDown откатывает последние применённые миграции. steps<=0 откатывает одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}

	return s.withSchemaLock(ctx, func(conn *sql.Conn, plan []MigrationStep) error {
		byVersion := make(map[int64]MigrationStep, len(plan))
		for _, step := range plan {
			byVersion[step.Version] = step
		}

		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		versions := make([]int64, 0, len(applied))
		for v := range applied {
			versions = append(versions, v)
		}
		sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
		if len(versions) > steps {
			versions = versions[:steps]
		}

		for _, v := range versions {
			step, ok := byVersion[v]
			if !ok {
				return fmt.Errorf("cannot roll back unknown migration version %d", v)
			}
			if err := runStep(ctx, conn, step, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrationStatus возвращает последнюю применённую версию и число применённых/ожидающих миграций.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationState, error) {
	var state MigrationState
	err := s.withSchemaLock(ctx, func(conn *sql.Conn, plan []MigrationStep) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		for _, step := range plan {
			if applied[step.Version] {
				state.Applied++
				if step.Version > state.Version {
					state.Version = step.Version
				}
				continue
			}
			state.Pending++
		}
		return nil
	})
	return state, err
}

func (s *Store) withSchemaLock(ctx context.Context, fn func(conn *sql.Conn, plan []MigrationStep) error) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	plan, err := readMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, schemaLockKey)
	}()

	if _, err := conn.ExecContext(ctx, schemaVersionsDDL); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	return fn(conn, plan)
}

// runStep выполняет SQL шага и запись в schema_migrations в одной транзакции.
func runStep(ctx context.Context, conn *sql.Conn, step MigrationStep, up bool) (err error) {
	direction, body := "down", step.Down
	if up {
		direction, body = "up", step.Up
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s migration %d: %w", direction, step.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("%s migration %d_%s: %w", direction, step.Version, step.Name, err)
	}

	if up {
		_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, step.Version, step.Name)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, step.Version)
	}
	if err != nil {
		return fmt.Errorf("record %s migration %d_%s: %w", direction, step.Version, step.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s migration %d_%s: %w", direction, step.Version, step.Name, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return applied, nil
}

// readMigrations собирает пары up/down из fsys и сортирует их по версии.
func readMigrations(fsys fs.FS) ([]MigrationStep, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	steps := make(map[int64]*MigrationStep)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := entry.Name()
		m := migrationFileName.FindStringSubmatch(file)
		if m == nil {
			return nil, fmt.Errorf("unexpected migration file name: %s", file)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version %s: %w", file, err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, file))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration %s is empty", file)
		}

		step, ok := steps[version]
		if !ok {
			step = &MigrationStep{Version: version, Name: m[2]}
			steps[version] = step
		}
		if step.Name != m[2] {
			return nil, fmt.Errorf("migration %d has conflicting names %q and %q", version, step.Name, m[2])
		}

		target := &step.Down
		if m[3] == "up" {
			target = &step.Up
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", m[3], version)
		}
		*target = body
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no migrations found in %s", migrationsDir)
	}

	plan := make([]MigrationStep, 0, len(steps))
	for _, step := range steps {
		if step.Up == "" || step.Down == "" {
			return nil, fmt.Errorf("migration %d_%s needs both up and down files", step.Version, step.Name)
		}
		plan = append(plan, *step)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].Version < plan[j].Version })
	return plan, nil
}
