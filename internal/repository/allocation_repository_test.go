package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

func newAllocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAllocationRepositoryAllocate(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM allocations WHERE user_id = $1 AND academic_year = $2 AND semester = $3")).
		WithArgs("stu-1", "2026/2027", "1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = current_occupancy + 1,")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allocation := &models.Allocation{
		UserID:       "stu-1",
		RoomID:       "room-1",
		AcademicYear: "2026/2027",
		Semester:     "1",
		Status:       models.AllocationStatusConfirmed,
		AllocatedBy:  "admin-1",
	}
	err := repo.Allocate(context.Background(), allocation)
	require.NoError(t, err)
	require.NotEmpty(t, allocation.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryAllocateRoomFull(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM allocations WHERE user_id = $1")).
		WillReturnError(sql.ErrNoRows)
	// The guard matches no row when the room is at capacity.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = current_occupancy + 1,")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), &models.Allocation{
		UserID:       "stu-1",
		RoomID:       "room-1",
		AcademicYear: "2026/2027",
		Semester:     "1",
	})
	require.ErrorIs(t, err, appErrors.ErrRoomFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryAllocateDuplicatePeriod(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM allocations WHERE user_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), &models.Allocation{
		UserID:       "stu-1",
		RoomID:       "room-1",
		AcademicYear: "2026/2027",
		Semester:     "1",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryCheckIn(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocations SET status = 'checked_in'")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CheckIn(context.Background(), "alloc-1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryCheckInWrongState(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocations SET status = 'checked_in'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CheckIn(context.Background(), "alloc-1", time.Now().UTC())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryRelease(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)
	when := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE allocations SET status = $2")).
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow("room-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0)")).
		WithArgs("room-1", when).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET status = 'available'")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Release(context.Background(), "alloc-1", models.AllocationStatusCheckedOut, when)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReleaseNotActive(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE allocations SET status = $2")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Release(context.Background(), "alloc-1", models.AllocationStatusCancelled, time.Now().UTC())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReleaseRejectsBadTarget(t *testing.T) {
	db, _, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	err := repo.Release(context.Background(), "alloc-1", models.AllocationStatusConfirmed, time.Now().UTC())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestAllocationRepositoryExistsActiveForPeriod(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM allocations WHERE user_id = $1 AND academic_year = $2 AND semester = $3")).
		WithArgs("stu-1", "2026/2027", "1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsActiveForPeriod(context.Background(), "stu-1", "2026/2027", "1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
