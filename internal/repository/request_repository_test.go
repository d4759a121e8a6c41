package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*RequestRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRequestRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestRequestRepositoryHasPending(t *testing.T) {
	repo, mock := newRequestRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM allocation_requests WHERE user_id = $1 AND status = 'pending' LIMIT 1`)).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	pending, err := repo.HasPending(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryHasPendingNone(t *testing.T) {
	repo, mock := newRequestRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM allocation_requests`)).
		WithArgs("student-1").
		WillReturnError(sql.ErrNoRows)

	pending, err := repo.HasPending(context.Background(), "student-1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestRequestRepositoryReview(t *testing.T) {
	repo, mock := newRequestRepoMock(t)

	when := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_requests SET status = $2, admin_response = $3, reviewed_by = $4,`)).
		WithArgs("req-1", models.RequestStatusApproved, "Assigned next week.", "admin-1", when).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.Review(context.Background(), "req-1", models.RequestStatusApproved, "admin-1", "Assigned next week.", when)
	require.NoError(t, err)
	assert.True(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryReviewNotPending(t *testing.T) {
	repo, mock := newRequestRepoMock(t)

	when := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_requests SET status = $2`)).
		WithArgs("req-1", models.RequestStatusRejected, "", "admin-1", when).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.Review(context.Background(), "req-1", models.RequestStatusRejected, "admin-1", "", when)
	require.NoError(t, err)
	assert.False(t, updated)
}
