package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"mesa/internal/core"
)

func (q *Queries) InsertWorkspace(ctx context.Context, name string, ownerID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO workspaces (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return 0, fmt.Errorf("insert workspace: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) AddMember(ctx context.Context, workspaceID, userID int64, email, role string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, email, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT (workspace_id, user_id) DO NOTHING`,
		workspaceID, userID, email, role)
	if err != nil {
		return fmt.Errorf("add workspace member: %w", err)
	}
	return nil
}

func (q *Queries) GetWorkspace(ctx context.Context, id int64) (core.Workspace, error) {
	var w core.Workspace
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id FROM workspaces WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return w, core.NotFound("workspace %d not found", id)
	}
	if err != nil {
		return w, fmt.Errorf("get workspace: %w", err)
	}
	return w, nil
}

// IsMember reports whether userID belongs to the workspace.
func (q *Queries) IsMember(ctx context.Context, workspaceID, userID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workspace_members WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// WorkspaceMembers returns the distinct user ids of the given workspaces.
func (q *Queries) WorkspaceMembers(ctx context.Context, workspaceIDs []int64) ([]int64, error) {
	in, args := inInt64(workspaceIDs)
	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM workspace_members WHERE workspace_id IN (`+in+`) ORDER BY user_id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list workspace members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan workspace member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateWorkspace inserts the workspace and the owner's membership
// atomically.
func (r *SQLiteRepository) CreateWorkspace(ctx context.Context, name string, ownerID int64, ownerEmail string) (core.Workspace, error) {
	var ws core.Workspace
	err := r.InTx(ctx, func(q *Queries) error {
		id, err := q.InsertWorkspace(ctx, name, ownerID)
		if err != nil {
			return err
		}
		if err := q.AddMember(ctx, id, ownerID, ownerEmail, "owner"); err != nil {
			return err
		}
		ws = core.Workspace{ID: id, Name: name, OwnerID: ownerID}
		return nil
	})
	if err != nil {
		return ws, err
	}

	slog.InfoContext(ctx, "Workspace created", "workspace_id", ws.ID, "owner_id", ownerID)
	return ws, nil
}
