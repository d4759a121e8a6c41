package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

type mockRoomRepo struct {
	rooms       map[string]*models.Room
	types       map[string]*models.RoomType
	updated     *models.Room
	deleted     []string
	maintenance map[string]bool
}

func (m *mockRoomRepo) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, int, error) {
	var out []models.RoomDetail
	for _, r := range m.rooms {
		out = append(out, models.RoomDetail{Room: *r, SpacesAvailable: r.Capacity - r.CurrentOccupancy})
	}
	return out, len(out), nil
}

func (m *mockRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoomRepo) FindDetailByID(ctx context.Context, id string) (*models.RoomDetail, error) {
	if r, ok := m.rooms[id]; ok {
		return &models.RoomDetail{Room: *r, SpacesAvailable: r.Capacity - r.CurrentOccupancy}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoomRepo) Create(ctx context.Context, room *models.Room) error {
	room.ID = "room-new"
	m.rooms[room.ID] = room
	return nil
}

func (m *mockRoomRepo) Update(ctx context.Context, room *models.Room) error {
	m.updated = room
	m.rooms[room.ID] = room
	return nil
}

func (m *mockRoomRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.rooms, id)
	return nil
}

func (m *mockRoomRepo) SetMaintenance(ctx context.Context, id string, on bool) error {
	if m.maintenance == nil {
		m.maintenance = make(map[string]bool)
	}
	m.maintenance[id] = on
	if on {
		m.rooms[id].Status = models.RoomStatusMaintenance
	} else {
		m.rooms[id].Status = models.RoomStatusAvailable
	}
	return nil
}

func (m *mockRoomRepo) ListBuildings(ctx context.Context) ([]string, error) {
	return []string{"North Hall"}, nil
}

func (m *mockRoomRepo) ListTypes(ctx context.Context) ([]models.RoomType, error) {
	var out []models.RoomType
	for _, t := range m.types {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockRoomRepo) FindTypeByID(ctx context.Context, id string) (*models.RoomType, error) {
	if t, ok := m.types[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockRoomAllocations struct {
	activeByRoom map[string]int
}

func (m *mockRoomAllocations) CountActiveByRoom(ctx context.Context, roomID string) (int, error) {
	return m.activeByRoom[roomID], nil
}

func newRoomTestService(repo *mockRoomRepo, allocs *mockRoomAllocations) *RoomService {
	if allocs == nil {
		allocs = &mockRoomAllocations{}
	}
	return NewRoomService(repo, allocs, nil, 0, validator.New(), zap.NewNop())
}

func doubleRoom(id string, occupancy int) *models.Room {
	return &models.Room{
		ID:               id,
		RoomNumber:       "N-101",
		Building:         "North Hall",
		Floor:            1,
		TypeID:           "type-double",
		Capacity:         2,
		CurrentOccupancy: occupancy,
		Status:           models.RoomStatusAvailable,
	}
}

func TestRoomServiceCreate(t *testing.T) {
	repo := &mockRoomRepo{
		rooms: map[string]*models.Room{},
		types: map[string]*models.RoomType{"type-double": {ID: "type-double", Name: "Double Room"}},
	}
	svc := newRoomTestService(repo, nil)

	detail, err := svc.Create(context.Background(), RoomRequest{
		RoomNumber: "N-101",
		Building:   "North Hall",
		Floor:      1,
		TypeID:     "type-double",
		Capacity:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusAvailable, detail.Status)
	assert.Equal(t, 0, detail.CurrentOccupancy)
}

func TestRoomServiceCreateUnknownType(t *testing.T) {
	repo := &mockRoomRepo{rooms: map[string]*models.Room{}, types: map[string]*models.RoomType{}}
	svc := newRoomTestService(repo, nil)

	_, err := svc.Create(context.Background(), RoomRequest{
		RoomNumber: "N-101",
		Building:   "North Hall",
		TypeID:     "missing",
		Capacity:   2,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRoomServiceUpdateCapacityBelowOccupancy(t *testing.T) {
	repo := &mockRoomRepo{
		rooms: map[string]*models.Room{"room-1": doubleRoom("room-1", 2)},
		types: map[string]*models.RoomType{"type-double": {ID: "type-double"}},
	}
	svc := newRoomTestService(repo, nil)

	_, err := svc.Update(context.Background(), "room-1", RoomRequest{
		RoomNumber: "N-101",
		Building:   "North Hall",
		TypeID:     "type-double",
		Capacity:   1,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Nil(t, repo.updated)
}

func TestRoomServiceUpdateNeverTouchesOccupancy(t *testing.T) {
	repo := &mockRoomRepo{
		rooms: map[string]*models.Room{"room-1": doubleRoom("room-1", 1)},
		types: map[string]*models.RoomType{"type-double": {ID: "type-double"}},
	}
	svc := newRoomTestService(repo, nil)

	detail, err := svc.Update(context.Background(), "room-1", RoomRequest{
		RoomNumber: "N-102",
		Building:   "North Hall",
		Floor:      1,
		TypeID:     "type-double",
		Capacity:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, detail.CurrentOccupancy)
	assert.Equal(t, 3, detail.Capacity)
	assert.Equal(t, "N-102", detail.RoomNumber)
}

func TestRoomServiceDeleteWithActiveAllocations(t *testing.T) {
	repo := &mockRoomRepo{rooms: map[string]*models.Room{"room-1": doubleRoom("room-1", 1)}}
	allocs := &mockRoomAllocations{activeByRoom: map[string]int{"room-1": 1}}
	svc := newRoomTestService(repo, allocs)

	err := svc.Delete(context.Background(), "room-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestRoomServiceDeleteEmptyRoom(t *testing.T) {
	repo := &mockRoomRepo{rooms: map[string]*models.Room{"room-1": doubleRoom("room-1", 0)}}
	svc := newRoomTestService(repo, &mockRoomAllocations{})

	err := svc.Delete(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "room-1")
}

func TestRoomServiceSetMaintenance(t *testing.T) {
	repo := &mockRoomRepo{rooms: map[string]*models.Room{"room-1": doubleRoom("room-1", 1)}}
	svc := newRoomTestService(repo, nil)

	detail, err := svc.SetMaintenance(context.Background(), "room-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusMaintenance, detail.Status)
	assert.Equal(t, 1, detail.CurrentOccupancy)

	// Flipping maintenance on twice is rejected.
	_, err = svc.SetMaintenance(context.Background(), "room-1", true)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestRoomServiceClearMaintenanceNotInMaintenance(t *testing.T) {
	repo := &mockRoomRepo{rooms: map[string]*models.Room{"room-1": doubleRoom("room-1", 0)}}
	svc := newRoomTestService(repo, nil)

	_, err := svc.SetMaintenance(context.Background(), "room-1", false)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}
