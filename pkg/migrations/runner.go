package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// advisoryLockID serializes runners across API replicas started with
// -migrate at the same time.
const advisoryLockID int64 = 0x5ca41ed9e7

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    VARCHAR(14) PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Runner applies migrations from fsys and records them in schema_migrations.
type Runner struct {
	db   *sql.DB
	fsys fs.FS
	out  io.Writer
}

// NewRunner returns a Runner reporting progress to out. A nil fsys means
// the embedded migrations.
func NewRunner(db *sql.DB, fsys fs.FS, out io.Writer) *Runner {
	if fsys == nil {
		fsys = Embedded()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, fsys: fsys, out: out}
}

// State is the status of one up migration.
type State struct {
	Version   string     `json:"version" yaml:"version"`
	Name      string     `json:"name" yaml:"name"`
	AppliedAt *time.Time `json:"applied_at,omitempty" yaml:"applied_at,omitempty"`
}

// Applied reports whether the migration has run.
func (s State) Applied() bool { return s.AppliedAt != nil }

// Up applies every pending migration in version order and returns how
// many ran. Each migration commits on its own.
func (r *Runner) Up(ctx context.Context) (int, error) {
	var count int
	err := r.locked(ctx, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		ups, err := Load(r.fsys, DirectionUp)
		if err != nil {
			return err
		}

		todo := pending(ups, applied)
		if len(todo) == 0 {
			_, _ = fmt.Fprintln(r.out, "schema is up to date")
			return nil
		}
		for _, m := range todo {
			if err := r.apply(ctx, conn, m); err != nil {
				return fmt.Errorf("apply %s: %w", m, err)
			}
			count++
			_, _ = fmt.Fprintf(r.out, "applied %s\n", m)
		}
		return nil
	})
	return count, err
}

// Down reverts the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	return r.locked(ctx, func(conn *sql.Conn) error {
		var last string
		err := conn.QueryRowContext(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&last)
		if errors.Is(err, sql.ErrNoRows) {
			_, _ = fmt.Fprintln(r.out, "nothing to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read last version: %w", err)
		}

		downs, err := Load(r.fsys, DirectionDown)
		if err != nil {
			return err
		}
		for _, m := range downs {
			if m.Version != last {
				continue
			}
			if err := r.apply(ctx, conn, m); err != nil {
				return fmt.Errorf("revert %s: %w", m, err)
			}
			_, _ = fmt.Fprintf(r.out, "reverted %s\n", m)
			return nil
		}
		return fmt.Errorf("no down migration for version %s", last)
	})
}

// Status lists every up migration with its applied time, if any.
func (r *Runner) Status(ctx context.Context) ([]State, error) {
	var states []State
	err := r.locked(ctx, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		ups, err := Load(r.fsys, DirectionUp)
		if err != nil {
			return err
		}
		for _, m := range ups {
			st := State{Version: m.Version, Name: m.Name}
			if at, ok := applied[m.Version]; ok {
				st.AppliedAt = &at
			}
			states = append(states, st)
		}
		return nil
	})
	return states, err
}

// locked runs fn on one connection holding the migration advisory lock,
// after making sure schema_migrations exists.
func (r *Runner) locked(ctx context.Context, fn func(conn *sql.Conn) error) (err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		// The session may outlive ctx, so unlock without it.
		if _, uerr := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, advisoryLockID); uerr != nil {
			err = errors.Join(err, fmt.Errorf("release migration lock: %w", uerr))
		}
	}()

	if _, err := conn.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return fn(conn)
}

// apply runs m and records it in one transaction.
func (r *Runner) apply(ctx context.Context, conn *sql.Conn, m Migration) error {
	content, err := ReadContent(r.fsys, m)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}

	record := `INSERT INTO schema_migrations (version) VALUES ($1)`
	if m.Direction == DirectionDown {
		record = `DELETE FROM schema_migrations WHERE version = $1`
	}
	if _, err := tx.ExecContext(ctx, record, m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[string]time.Time, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var (
			version string
			at      time.Time
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, err
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

func pending(available []Migration, applied map[string]time.Time) []Migration {
	var out []Migration
	for _, m := range available {
		if _, ok := applied[m.Version]; !ok {
			out = append(out, m)
		}
	}
	return out
}
