package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

type mockAllocationRepo struct {
	allocations   map[string]models.Allocation
	activePeriods map[string]bool
	created       *models.Allocation
	checkedIn     []string
	released      map[string]models.AllocationStatus
	allocateErr   error
}

func (m *mockAllocationRepo) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, int, error) {
	return nil, 0, nil
}

func (m *mockAllocationRepo) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	if a, ok := m.allocations[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAllocationRepo) FindDetailByID(ctx context.Context, id string) (*models.AllocationDetail, error) {
	if a, ok := m.allocations[id]; ok {
		return &models.AllocationDetail{Allocation: a}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAllocationRepo) FindActiveByUser(ctx context.Context, userID string) (*models.AllocationDetail, error) {
	for _, a := range m.allocations {
		if a.UserID == userID && a.Status.Active() {
			return &models.AllocationDetail{Allocation: a}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAllocationRepo) ExistsActiveForPeriod(ctx context.Context, userID, academicYear, semester string) (bool, error) {
	return m.activePeriods[userID+academicYear+semester], nil
}

func (m *mockAllocationRepo) Allocate(ctx context.Context, allocation *models.Allocation) error {
	if m.allocateErr != nil {
		return m.allocateErr
	}
	if m.allocations == nil {
		m.allocations = make(map[string]models.Allocation)
	}
	if allocation.ID == "" {
		allocation.ID = "new-alloc"
	}
	m.allocations[allocation.ID] = *allocation
	m.created = allocation
	return nil
}

func (m *mockAllocationRepo) CheckIn(ctx context.Context, id string, when time.Time) error {
	m.checkedIn = append(m.checkedIn, id)
	if a, ok := m.allocations[id]; ok {
		a.Status = models.AllocationStatusCheckedIn
		a.CheckInDate = &when
		m.allocations[id] = a
	}
	return nil
}

func (m *mockAllocationRepo) Release(ctx context.Context, id string, toStatus models.AllocationStatus, when time.Time) error {
	if m.released == nil {
		m.released = make(map[string]models.AllocationStatus)
	}
	m.released[id] = toStatus
	if a, ok := m.allocations[id]; ok {
		a.Status = toStatus
		m.allocations[id] = a
	}
	return nil
}

func (m *mockAllocationRepo) ListUnallocated(ctx context.Context, academicYear, semester string) ([]models.StudentSummary, error) {
	return []models.StudentSummary{{ID: "s1"}}, nil
}

type mockAllocationUsers struct {
	users map[string]*models.User
}

func (m *mockAllocationUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockAllocationRooms struct {
	rooms map[string]*models.Room
}

func (m *mockAllocationRooms) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotificationWriter struct {
	created []models.Notification
}

func (m *mockNotificationWriter) Create(ctx context.Context, n *models.Notification) error {
	m.created = append(m.created, *n)
	return nil
}

type mockActivityWriter struct {
	actions []string
}

func (m *mockActivityWriter) Create(ctx context.Context, entry *models.ActivityLog) error {
	m.actions = append(m.actions, entry.Action)
	return nil
}

func newAllocationTestService(repo *mockAllocationRepo, users *mockAllocationUsers, rooms *mockAllocationRooms) (*AllocationService, *mockNotificationWriter, *mockActivityWriter) {
	notifications := &mockNotificationWriter{}
	activity := &mockActivityWriter{}
	svc := NewAllocationService(AllocationServiceParams{
		Repo:          repo,
		Users:         users,
		Rooms:         rooms,
		Notifications: notifications,
		Activity:      activity,
		Validator:     validator.New(),
		Logger:        zap.NewNop(),
	})
	return svc, notifications, activity
}

func activeStudent(id string, year int) *models.User {
	return &models.User{ID: id, Role: models.RoleStudent, Active: true, YearLevel: year, FirstName: "Test", LastName: "Student"}
}

func TestAllocationServiceAllocate(t *testing.T) {
	repo := &mockAllocationRepo{}
	users := &mockAllocationUsers{users: map[string]*models.User{"s1": activeStudent("s1", 2)}}
	rooms := &mockAllocationRooms{rooms: map[string]*models.Room{"r1": {ID: "r1", RoomNumber: "A-101", Capacity: 2, CurrentOccupancy: 1, Status: models.RoomStatusAvailable}}}
	svc, notifications, activity := newAllocationTestService(repo, users, rooms)

	detail, err := svc.Allocate(context.Background(), AllocateRequest{StudentID: "s1", RoomID: "r1", AcademicYear: "2026/2027", Semester: "1"}, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.AllocationStatusConfirmed, detail.Status)
	assert.Equal(t, "admin-1", repo.created.AllocatedBy)
	assert.Len(t, notifications.created, 1)
	assert.Contains(t, activity.actions, models.ActivityActionAllocate)
}

func TestAllocationServiceAllocateRoomFull(t *testing.T) {
	repo := &mockAllocationRepo{}
	users := &mockAllocationUsers{users: map[string]*models.User{"s1": activeStudent("s1", 1)}}
	rooms := &mockAllocationRooms{rooms: map[string]*models.Room{"r1": {ID: "r1", Capacity: 2, CurrentOccupancy: 2, Status: models.RoomStatusFull}}}
	svc, _, _ := newAllocationTestService(repo, users, rooms)

	_, err := svc.Allocate(context.Background(), AllocateRequest{StudentID: "s1", RoomID: "r1", AcademicYear: "2026/2027", Semester: "1"}, "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRoomFull.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestAllocationServiceAllocateConcurrentLoser(t *testing.T) {
	// Precheck passes but the transactional guard reports the room filled up.
	repo := &mockAllocationRepo{allocateErr: appErrors.ErrRoomFull}
	users := &mockAllocationUsers{users: map[string]*models.User{"s1": activeStudent("s1", 1)}}
	rooms := &mockAllocationRooms{rooms: map[string]*models.Room{"r1": {ID: "r1", Capacity: 2, CurrentOccupancy: 1, Status: models.RoomStatusAvailable}}}
	svc, notifications, _ := newAllocationTestService(repo, users, rooms)

	_, err := svc.Allocate(context.Background(), AllocateRequest{StudentID: "s1", RoomID: "r1", AcademicYear: "2026/2027", Semester: "1"}, "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRoomFull.Code, appErr.Code)
	assert.Empty(t, notifications.created)
}

func TestAllocationServiceAllocateDuplicatePeriod(t *testing.T) {
	repo := &mockAllocationRepo{activePeriods: map[string]bool{"s12026/20271": true}}
	users := &mockAllocationUsers{users: map[string]*models.User{"s1": activeStudent("s1", 1)}}
	rooms := &mockAllocationRooms{rooms: map[string]*models.Room{"r1": {ID: "r1", Capacity: 4, CurrentOccupancy: 0, Status: models.RoomStatusAvailable}}}
	svc, _, _ := newAllocationTestService(repo, users, rooms)

	_, err := svc.Allocate(context.Background(), AllocateRequest{StudentID: "s1", RoomID: "r1", AcademicYear: "2026/2027", Semester: "1"}, "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAllocationServiceAllocateMaintenanceRoom(t *testing.T) {
	repo := &mockAllocationRepo{}
	users := &mockAllocationUsers{users: map[string]*models.User{"s1": activeStudent("s1", 1)}}
	rooms := &mockAllocationRooms{rooms: map[string]*models.Room{"r1": {ID: "r1", Capacity: 4, CurrentOccupancy: 0, Status: models.RoomStatusMaintenance}}}
	svc, _, _ := newAllocationTestService(repo, users, rooms)

	_, err := svc.Allocate(context.Background(), AllocateRequest{StudentID: "s1", RoomID: "r1", AcademicYear: "2026/2027", Semester: "1"}, "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestAllocationServiceAllocateInactiveStudent(t *testing.T) {
	repo := &mockAllocationRepo{}
	student := activeStudent("s1", 1)
	student.Active = false
	users := &mockAllocationUsers{users: map[string]*models.User{"s1": student}}
	rooms := &mockAllocationRooms{rooms: map[string]*models.Room{"r1": {ID: "r1", Capacity: 4, Status: models.RoomStatusAvailable}}}
	svc, _, _ := newAllocationTestService(repo, users, rooms)

	_, err := svc.Allocate(context.Background(), AllocateRequest{StudentID: "s1", RoomID: "r1", AcademicYear: "2026/2027", Semester: "1"}, "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAllocationServiceCheckIn(t *testing.T) {
	repo := &mockAllocationRepo{allocations: map[string]models.Allocation{"a1": {ID: "a1", UserID: "s1", Status: models.AllocationStatusConfirmed}}}
	svc, notifications, _ := newAllocationTestService(repo, &mockAllocationUsers{}, &mockAllocationRooms{})

	detail, err := svc.CheckIn(context.Background(), "a1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AllocationStatusCheckedIn, detail.Status)
	assert.Contains(t, repo.checkedIn, "a1")
	assert.Len(t, notifications.created, 1)
}

func TestAllocationServiceCheckInWrongState(t *testing.T) {
	repo := &mockAllocationRepo{allocations: map[string]models.Allocation{"a1": {ID: "a1", Status: models.AllocationStatusCheckedOut}}}
	svc, _, _ := newAllocationTestService(repo, &mockAllocationUsers{}, &mockAllocationRooms{})

	_, err := svc.CheckIn(context.Background(), "a1", "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Empty(t, repo.checkedIn)
}

func TestAllocationServiceCheckOut(t *testing.T) {
	repo := &mockAllocationRepo{allocations: map[string]models.Allocation{"a1": {ID: "a1", UserID: "s1", Status: models.AllocationStatusCheckedIn}}}
	svc, _, activity := newAllocationTestService(repo, &mockAllocationUsers{}, &mockAllocationRooms{})

	detail, err := svc.CheckOut(context.Background(), "a1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AllocationStatusCheckedOut, detail.Status)
	assert.Equal(t, models.AllocationStatusCheckedOut, repo.released["a1"])
	assert.Contains(t, activity.actions, models.ActivityActionCheckOut)
}

func TestAllocationServiceCancelConfirmed(t *testing.T) {
	repo := &mockAllocationRepo{allocations: map[string]models.Allocation{"a1": {ID: "a1", UserID: "s1", Status: models.AllocationStatusConfirmed}}}
	svc, _, _ := newAllocationTestService(repo, &mockAllocationUsers{}, &mockAllocationRooms{})

	detail, err := svc.Cancel(context.Background(), "a1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AllocationStatusCancelled, detail.Status)
	assert.Equal(t, models.AllocationStatusCancelled, repo.released["a1"])
}

func TestAllocationServiceCancelTerminal(t *testing.T) {
	repo := &mockAllocationRepo{allocations: map[string]models.Allocation{"a1": {ID: "a1", Status: models.AllocationStatusCancelled}}}
	svc, _, _ := newAllocationTestService(repo, &mockAllocationUsers{}, &mockAllocationRooms{})

	_, err := svc.Cancel(context.Background(), "a1", "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Empty(t, repo.released)
}

func TestAllocationServiceMyRoomNone(t *testing.T) {
	repo := &mockAllocationRepo{}
	svc, _, _ := newAllocationTestService(repo, &mockAllocationUsers{}, &mockAllocationRooms{})

	_, err := svc.MyRoom(context.Background(), "s1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecommendedType(t *testing.T) {
	cases := map[int]string{
		1: "Common Room",
		2: "Double Room",
		3: "Double Room",
		4: "Single Room",
		5: "Single Room",
	}
	for year, want := range cases {
		assert.Equal(t, want, RecommendedType(year), "year %d", year)
	}
}
