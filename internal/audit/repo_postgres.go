package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hangup-attribution/pkg/utils"
)

// PostgresRepo stores events in audit_events. The table is INSERT-only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const schemaTable = `
CREATE TABLE IF NOT EXISTS audit_events (
  id               TEXT PRIMARY KEY,
  workspace_sid    TEXT NOT NULL,
  type             TEXT NOT NULL,
  actor_worker_sid TEXT NOT NULL DEFAULT '',
  actor_role       TEXT NOT NULL DEFAULT '',
  ip_address       TEXT NOT NULL DEFAULT '',
  source           TEXT NOT NULL DEFAULT '',
  task_sid         TEXT NOT NULL DEFAULT '',
  sid              TEXT NOT NULL DEFAULT '',
  hang_up_by       TEXT NOT NULL DEFAULT '',
  prior            TEXT NOT NULL DEFAULT '',
  persisted        BOOLEAN NOT NULL DEFAULT FALSE,
  message          TEXT NOT NULL DEFAULT '',
  metadata         TEXT NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ NOT NULL
)
`

const schemaIndex = `
CREATE INDEX IF NOT EXISTS audit_events_workspace_type_created
ON audit_events (workspace_sid, type, created_at)
`

// EnsureSchema creates the audit table and its read index if missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.ApplySchema(ctx, r.db, schemaTable, schemaIndex)
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, workspace_sid, type, actor_worker_sid, actor_role, ip_address, source,
  task_sid, sid, hang_up_by, prior, persisted, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.WorkspaceSID,
		e.Type,
		e.ActorWorkerSID,
		e.ActorRole,
		e.IPAddress,
		e.Source,
		e.TaskSID,
		e.SID,
		e.HangUpBy,
		e.Prior,
		e.Persisted,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListAttributions(ctx context.Context, workspaceSID string, from, to time.Time) ([]Event, error) {
	if workspaceSID == "" {
		return nil, errors.New("workspace_sid required")
	}
	const q = `
SELECT id, workspace_sid, type, actor_worker_sid, actor_role, ip_address, source,
       task_sid, sid, hang_up_by, prior, persisted, message, metadata, created_at
FROM audit_events
WHERE workspace_sid = $1 AND type = $2 AND created_at >= $3 AND created_at < $4
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, workspaceSID, EventTypeAttribution, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.WorkspaceSID,
			&e.Type,
			&e.ActorWorkerSID,
			&e.ActorRole,
			&e.IPAddress,
			&e.Source,
			&e.TaskSID,
			&e.SID,
			&e.HangUpBy,
			&e.Prior,
			&e.Persisted,
			&e.Message,
			&e.Metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
