package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// schema is applied once at Open. container_ref is NULL while a
// workspace has no live worktree container on disk.
const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	branch        TEXT NOT NULL,
	container_ref TEXT,
	archived      INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workspaces_container_ref
	ON workspaces(container_ref);
`

// Workspace is one persisted workspace record.
type Workspace struct {
	ID           uuid.UUID
	Name         string
	Branch       string
	ContainerRef string // empty when the workspace has no live worktree container
	Archived     bool
	CreatedAt    time.Time
}

// Registry stores workspace records in a SQLite database behind a
// connection pool. It is safe for concurrent use; individual
// connections are taken per call.
type Registry struct {
	pool   *sqlitex.Pool
	logger *zap.Logger
}

// Open opens (creating if necessary) the registry database at path and
// applies the schema. Use ":memory:" in tests. The caller must Close
// the registry when done.
func Open(path string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 4,
		PrepareConn: func(conn *sqlite.Conn) error {
			pragmas := []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA synchronous=NORMAL",
				"PRAGMA busy_timeout=5000",
			}
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: opening %s: %w", path, err)
	}

	r := &Registry{pool: pool, logger: logger}
	if err := r.init(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying connection pool.
func (r *Registry) Close() error {
	return r.pool.Close()
}

func (r *Registry) init(ctx context.Context) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("registry: applying schema: %w", err)
	}
	return nil
}

// ContainerRefExists reports whether path is currently recorded as a
// live workspace's container reference. Matching is an exact
// path-string comparison; archived workspaces whose container_ref has
// not been cleared still count as live, which keeps the orphan sweep
// conservative.
func (r *Registry) ContainerRefExists(ctx context.Context, path string) (bool, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	var exists bool
	err = sqlitex.Execute(conn,
		`SELECT 1 FROM workspaces WHERE container_ref = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{path},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("registry: container ref lookup: %w", err)
	}
	return exists, nil
}

// Create inserts a new workspace record. The ID must be set by the
// caller; CreatedAt defaults to now when zero.
func (r *Registry) Create(ctx context.Context, ws Workspace) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	createdAt := ws.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO workspaces (id, name, branch, container_ref, archived, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				ws.ID.String(),
				ws.Name,
				ws.Branch,
				nullable(ws.ContainerRef),
				boolInt(ws.Archived),
				createdAt.Unix(),
			},
		})
	if err != nil {
		return fmt.Errorf("registry: create workspace: %w", err)
	}
	return nil
}

// Get returns the workspace record with the given id, or (nil, nil)
// when no such record exists.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	var ws *Workspace
	err = sqlitex.Execute(conn,
		`SELECT id, name, branch, container_ref, archived, created_at
		 FROM workspaces WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec, err := scanWorkspace(stmt)
				if err != nil {
					return err
				}
				ws = rec
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: get workspace: %w", err)
	}
	return ws, nil
}

// FindByBranch returns the most recently created non-archived
// workspace on the given branch, or (nil, nil) when none exists.
func (r *Registry) FindByBranch(ctx context.Context, branch string) (*Workspace, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	var ws *Workspace
	err = sqlitex.Execute(conn,
		`SELECT id, name, branch, container_ref, archived, created_at
		 FROM workspaces WHERE branch = ? AND archived = 0
		 ORDER BY created_at DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{branch},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec, err := scanWorkspace(stmt)
				if err != nil {
					return err
				}
				ws = rec
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: find workspace by branch: %w", err)
	}
	return ws, nil
}

// List returns all workspace records, newest first.
func (r *Registry) List(ctx context.Context) ([]Workspace, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	var out []Workspace
	err = sqlitex.Execute(conn,
		`SELECT id, name, branch, container_ref, archived, created_at
		 FROM workspaces ORDER BY created_at DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec, err := scanWorkspace(stmt)
				if err != nil {
					return err
				}
				out = append(out, *rec)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: list workspaces: %w", err)
	}
	return out, nil
}

// SetContainerRef records the live worktree container path for a
// workspace.
func (r *Registry) SetContainerRef(ctx context.Context, id uuid.UUID, containerRef string) error {
	return r.update(ctx, "set container ref",
		`UPDATE workspaces SET container_ref = ? WHERE id = ?`,
		nullable(containerRef), id.String())
}

// ClearContainerRef removes the live worktree container path from a
// workspace record, marking it as having no on-disk presence.
func (r *Registry) ClearContainerRef(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, "clear container ref",
		`UPDATE workspaces SET container_ref = NULL WHERE id = ?`,
		id.String())
}

// SetArchived flips the archived flag on a workspace record.
func (r *Registry) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return r.update(ctx, "set archived",
		`UPDATE workspaces SET archived = ? WHERE id = ?`,
		boolInt(archived), id.String())
}

func (r *Registry) update(ctx context.Context, op, query string, args ...any) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("registry: %s: %w", op, err)
	}
	return nil
}

func scanWorkspace(stmt *sqlite.Stmt) (*Workspace, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return nil, fmt.Errorf("invalid workspace id %q: %w", stmt.ColumnText(0), err)
	}
	return &Workspace{
		ID:           id,
		Name:         stmt.ColumnText(1),
		Branch:       stmt.ColumnText(2),
		ContainerRef: stmt.ColumnText(3),
		Archived:     stmt.ColumnInt64(4) != 0,
		CreatedAt:    time.Unix(stmt.ColumnInt64(5), 0),
	}, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
