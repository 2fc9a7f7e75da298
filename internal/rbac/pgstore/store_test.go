package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
)

type stubRow struct {
	name   string
	levels []byte
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.name
	*(dest[1].(*[]byte)) = r.levels
	return nil
}

// stubRows serves fixed string rows through the pgx.Rows interface.
type stubRows struct {
	data   [][]string
	pos    int
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d columns, %d destinations", len(row), len(dest))
	}
	for i, d := range dest {
		*(d.(*string)) = row[i]
	}
	return nil
}

func (r *stubRows) Values() ([]any, error) {
	row := r.data[r.pos-1]
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out, nil
}

type stubQuerier struct {
	row       stubRow
	rows      [][]string
	queryErr  error
	execSQL   string
	querySQL  string
	queryArgs []any
	calls     int
	lastRows  *stubRows
}

func (q *stubQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = sql
	return pgconn.CommandTag{}, nil
}

func (q *stubQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls++
	q.querySQL = sql
	q.queryArgs = args
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	q.lastRows = &stubRows{data: q.rows}
	return q.lastRows, nil
}

func (q *stubQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.calls++
	return q.row
}

func TestNonUUIDIdentifiersNeverHitTheDatabase(t *testing.T) {
	q := &stubQuerier{}
	store := New(q)
	ctx := context.Background()

	assignments, err := store.GetRoleAssignmentsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, assignments)

	_, err = store.GetRole(ctx, "admin")
	require.ErrorIs(t, err, rbac.ErrRoleNotFound)

	grants, err := store.GetLegacyGrantsForRole(ctx, "admin")
	require.NoError(t, err)
	require.Empty(t, grants)

	require.Zero(t, q.calls)
}

func TestGetRole(t *testing.T) {
	id := uuid.New()
	ctx := context.Background()

	q := &stubQuerier{row: stubRow{name: "Manager", levels: []byte(`{"crm":4}`)}}
	role, err := New(q).GetRole(ctx, id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), role.ID)
	require.Equal(t, json.RawMessage(`{"crm":4}`), role.ModuleLevels)

	q = &stubQuerier{row: stubRow{name: "Legacy"}}
	role, err = New(q).GetRole(ctx, id.String())
	require.NoError(t, err)
	require.Nil(t, role.ModuleLevels)

	q = &stubQuerier{row: stubRow{err: pgx.ErrNoRows}}
	_, err = New(q).GetRole(ctx, id.String())
	require.ErrorIs(t, err, rbac.ErrRoleNotFound)

	boom := errors.New("conn closed")
	q = &stubQuerier{row: stubRow{err: boom}}
	_, err = New(q).GetRole(ctx, id.String())
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, rbac.ErrRoleNotFound)
}

func TestGetRoleAssignmentsForUserScansRows(t *testing.T) {
	userID := uuid.NewString()
	roleA, roleB := uuid.NewString(), uuid.NewString()
	q := &stubQuerier{rows: [][]string{{roleA}, {roleB}}}

	assignments, err := New(q).GetRoleAssignmentsForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []rbac.RoleAssignment{
		{UserID: userID, RoleID: roleA},
		{UserID: userID, RoleID: roleB},
	}, assignments)
	require.Contains(t, q.querySQL, "FROM user_roles")
	require.Equal(t, []any{userID}, q.queryArgs)
	require.True(t, q.lastRows.closed)
}

func TestGetLegacyGrantsForRoleScansJoin(t *testing.T) {
	roleID := uuid.NewString()
	q := &stubQuerier{rows: [][]string{{"reports", "view"}, {"tickets", "create"}}}

	grants, err := New(q).GetLegacyGrantsForRole(context.Background(), roleID)
	require.NoError(t, err)
	require.Equal(t, []rbac.LegacyGrant{
		{Module: "reports", Action: "view"},
		{Module: "tickets", Action: "create"},
	}, grants)
	require.Contains(t, q.querySQL, "JOIN permissions p ON p.id = rp.permission_id")
	require.Equal(t, []any{roleID}, q.queryArgs)

	q = &stubQuerier{}
	grants, err = New(q).GetLegacyGrantsForRole(context.Background(), roleID)
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestPgStoreFeedsResolution(t *testing.T) {
	roleID := uuid.NewString()
	q := &stubQuerier{
		row:  stubRow{name: "support", levels: nil},
		rows: [][]string{{"tickets", "view"}, {"tickets", "update"}},
	}
	store := New(q)
	ctx := context.Background()

	grants, err := store.GetLegacyGrantsForRole(ctx, roleID)
	require.NoError(t, err)
	role, err := store.GetRole(ctx, roleID)
	require.NoError(t, err)
	require.Nil(t, role.ModuleLevels)

	actions := make([]string, 0, len(grants))
	for _, g := range grants {
		actions = append(actions, g.Action)
	}
	require.Equal(t, access.Write, access.ActionsToLevel(actions))
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	boom := errors.New("conn closed")
	store := New(&stubQuerier{queryErr: boom})
	ctx := context.Background()

	_, err := store.GetRoleAssignmentsForUser(ctx, uuid.NewString())
	require.ErrorIs(t, err, boom)
	_, err = store.GetLegacyGrantsForRole(ctx, uuid.NewString())
	require.ErrorIs(t, err, boom)
}

func TestMigrateAppliesSchema(t *testing.T) {
	q := &stubQuerier{}
	require.NoError(t, New(q).Migrate(context.Background()))
	require.Contains(t, q.execSQL, "CREATE TABLE IF NOT EXISTS role_permissions")
}
