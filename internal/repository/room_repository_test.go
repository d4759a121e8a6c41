package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

func newRoomRepoMock(t *testing.T) (*RoomRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRoomRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestRoomRepositoryFindByID(t *testing.T) {
	repo, mock := newRoomRepoMock(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "room_number", "building", "floor", "type_id", "capacity",
		"current_occupancy", "status", "amenities", "created_at", "updated_at",
	}).AddRow("room-1", "N-101", "North Hall", 1, "type-double", 2, 1, "available", "", now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, room_number, building, floor, type_id, capacity, current_occupancy,
        status, amenities, created_at, updated_at FROM rooms WHERE id = $1`)).
		WithArgs("room-1").
		WillReturnRows(rows)

	room, err := repo.FindByID(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
	assert.Equal(t, 1, room.CurrentOccupancy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositorySetMaintenanceOn(t *testing.T) {
	repo, mock := newRoomRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rooms SET status = 'maintenance', updated_at = $2 WHERE id = $1`)).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetMaintenance(context.Background(), "room-1", true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositorySetMaintenanceOffRecomputesStatus(t *testing.T) {
	repo, mock := newRoomRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rooms SET status = CASE WHEN current_occupancy >= capacity THEN 'full' ELSE 'available' END,`)).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetMaintenance(context.Background(), "room-1", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryUpdateDoesNotWriteOccupancy(t *testing.T) {
	repo, mock := newRoomRepoMock(t)

	mock.ExpectExec(`UPDATE rooms SET room_number = .+, building = .+, floor = .+,\s+type_id = .+, capacity = .+, amenities = .+, updated_at = .+\s+WHERE id = .+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	room := &models.Room{
		ID:         "room-1",
		RoomNumber: "N-102",
		Building:   "North Hall",
		Floor:      1,
		TypeID:     "type-double",
		Capacity:   3,
	}
	require.NoError(t, repo.Update(context.Background(), room))
	require.NoError(t, mock.ExpectationsWereMet())
}
