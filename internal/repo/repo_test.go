package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeworks/internal/db"
	"homeworks/internal/domain"
	"homeworks/internal/migrate"
)

const testNow = "2026-01-02T03:04:05Z"

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func TestTransitionRequestLostUpdateIsConflict(t *testing.T) {
	conn, mock := setupMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requests SET status=?, updated_at=? WHERE id=? AND status=?`)).
		WithArgs("rejected", testNow, "r1", "proposal_submitted").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := Repo{DB: conn}.TransitionRequest(context.Background(), conn, "r1", domain.RequestProposalSubmitted, domain.RequestRejected, testNow)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionProjectStoresDesigner(t *testing.T) {
	conn, mock := setupMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE projects SET status=?, designer_id=?, updated_at=? WHERE id=? AND status=?`)).
		WithArgs("in_progress", "d1", testNow, "p1", "seeking_designer").
		WillReturnResult(sqlmock.NewResult(0, 1))

	designer := "d1"
	err := Repo{DB: conn}.TransitionProject(context.Background(), conn, "p1", domain.ProjectSeekingDesigner, domain.ProjectInProgress, &designer, testNow)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingTaskIsNotFound(t *testing.T) {
	conn, mock := setupMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := Repo{DB: conn}.UpdateTask(context.Background(), conn, domain.Task{ID: "t1", Title: "x", Status: domain.TaskTodo, UpdatedAt: testNow})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorageErrorsPassThrough(t *testing.T) {
	conn, mock := setupMock(t)
	boom := errors.New("disk I/O error")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE proposals SET status=?`)).WillReturnError(boom)

	err := Repo{DB: conn}.TransitionProposal(context.Background(), conn, "pr1", domain.ProposalSubmitted, domain.ProposalAccepted, testNow)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsBusy(err))
}

func TestGetProjectMissingIsNotFound(t *testing.T) {
	conn, mock := setupMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM projects WHERE id=?`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := Repo{DB: conn}.GetProject(context.Background(), conn, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	return conn
}

func seedProject(t *testing.T, r Repo) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.InsertHomeowner(ctx, r.DB, domain.Homeowner{ID: "h1", UserID: "u-owner", Name: "Hana", CreatedAt: testNow}))
	require.NoError(t, r.InsertDesigner(ctx, r.DB, domain.Designer{ID: "d1", UserID: "u-d1", Name: "Dee", Verified: true, CreatedAt: testNow}))
	require.NoError(t, r.InsertProject(ctx, r.DB, domain.Project{
		ID: "p1", HomeownerID: "h1", Title: "Kitchen", ScopeType: domain.ScopePartial,
		Status: domain.ProjectDraft, CreatedAt: testNow, UpdatedAt: testNow,
	}))
}

func TestDuplicateRequestIsConflict(t *testing.T) {
	conn := openSQLite(t)
	r := Repo{DB: conn}
	seedProject(t, r)
	ctx := context.Background()

	rq := domain.Request{ID: "r1", ProjectID: "p1", DesignerID: "d1", Status: domain.RequestPending, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, r.InsertRequest(ctx, conn, rq))
	rq.ID = "r2"
	assert.ErrorIs(t, r.InsertRequest(ctx, conn, rq), ErrConflict)

	got, err := r.GetRequestForPair(ctx, conn, "p1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestProposalRoundTripKeepsBreakdown(t *testing.T) {
	conn := openSQLite(t)
	r := Repo{DB: conn}
	seedProject(t, r)
	ctx := context.Background()
	require.NoError(t, r.InsertRequest(ctx, conn, domain.Request{ID: "r1", ProjectID: "p1", DesignerID: "d1", Status: domain.RequestPending, CreatedAt: testNow, UpdatedAt: testNow}))

	p := domain.Proposal{
		ID: "pr1", RequestID: "r1", DesignerID: "d1", Scope: "cabinets", TimelineWeeks: 6, CostEstimate: 12000,
		CostBreakdown: []domain.CostItem{{Label: "labor", Amount: 8000}, {Label: "materials", Amount: 4000}},
		Status:        domain.ProposalSubmitted, CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, r.InsertProposal(ctx, conn, p))
	p.ID = "pr2"
	assert.ErrorIs(t, r.InsertProposal(ctx, conn, p), ErrConflict)

	got, err := r.GetProposalForRequest(ctx, conn, "r1")
	require.NoError(t, err)
	assert.Equal(t, "pr1", got.ID)
	assert.Equal(t, p.CostBreakdown, got.CostBreakdown)

	listed, err := r.ListProjectProposals(ctx, conn, "p1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestListActivityNewestFirstWithCursor(t *testing.T) {
	conn := openSQLite(t)
	r := Repo{DB: conn}
	seedProject(t, r)
	ctx := context.Background()
	user := "u-owner"
	var ids []int64
	for _, action := range []string{"project_created", "status_changed", "request_sent"} {
		id, err := r.InsertActivity(ctx, conn, domain.ActivityEntry{ProjectID: "p1", UserID: &user, Action: action, Detail: map[string]any{"to": action}, CreatedAt: testNow})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := r.ListActivity(ctx, conn, ActivityQuery{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "request_sent", all[0].Action)
	assert.Equal(t, "request_sent", all[0].Detail["to"])

	page, err := r.ListActivity(ctx, conn, ActivityQuery{ProjectID: "p1", BeforeID: ids[2], Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	filtered, err := r.ListActivity(ctx, conn, ActivityQuery{ProjectID: "p1", Action: "project_created"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
}
