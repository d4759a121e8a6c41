package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

type mockDashboardUsers struct {
	total, active int
}

func (m *mockDashboardUsers) CountStudents(ctx context.Context, onlyActive bool) (int, error) {
	if onlyActive {
		return m.active, nil
	}
	return m.total, nil
}

type mockDashboardRooms struct {
	total, available int
}

func (m *mockDashboardRooms) CountAll(ctx context.Context) (int, error) {
	return m.total, nil
}

func (m *mockDashboardRooms) CountAvailable(ctx context.Context) (int, error) {
	return m.available, nil
}

func (m *mockDashboardRooms) OccupancySummary(ctx context.Context) ([]models.RoomOccupancySummary, error) {
	return []models.RoomOccupancySummary{{TypeName: "Double Room", TotalRooms: 20, TotalCapacity: 40, TotalOccupied: 25}}, nil
}

type mockDashboardAllocations struct {
	active, housed int
}

func (m *mockDashboardAllocations) CountActive(ctx context.Context) (int, error) {
	return m.active, nil
}

func (m *mockDashboardAllocations) CountHousedStudents(ctx context.Context) (int, error) {
	return m.housed, nil
}

func (m *mockDashboardAllocations) ListRecent(ctx context.Context, limit int) ([]models.AllocationDetail, error) {
	return nil, nil
}

type mockDashboardRequests struct {
	pending int
}

func (m *mockDashboardRequests) CountPending(ctx context.Context) (int, error) {
	return m.pending, nil
}

type mockDashboardActivity struct {
	entries   []models.ActivityLog
	lastLimit int
}

func (m *mockDashboardActivity) ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	m.lastLimit = limit
	return m.entries, nil
}

func TestDashboardServiceSummary(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Users:       &mockDashboardUsers{total: 120, active: 110},
		Rooms:       &mockDashboardRooms{total: 40, available: 12},
		Allocations: &mockDashboardAllocations{active: 95, housed: 95},
		Requests:    &mockDashboardRequests{pending: 7},
		Activity:    &mockDashboardActivity{},
	})

	summary, cacheHit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 120, summary.TotalStudents)
	assert.Equal(t, 110, summary.ActiveStudents)
	assert.Equal(t, 95, summary.StudentsHoused)
	assert.Equal(t, 12, summary.AvailableRooms)
	assert.Equal(t, 7, summary.PendingRequests)
	require.Len(t, summary.OccupancyByType, 1)
}

func TestDashboardServiceRecentActivityClampsLimit(t *testing.T) {
	activity := &mockDashboardActivity{}
	svc := NewDashboardService(DashboardServiceParams{
		Users:       &mockDashboardUsers{},
		Rooms:       &mockDashboardRooms{},
		Allocations: &mockDashboardAllocations{},
		Requests:    &mockDashboardRequests{},
		Activity:    activity,
	})

	_, err := svc.RecentActivity(context.Background(), 10000)
	require.NoError(t, err)
	assert.Equal(t, 20, activity.lastLimit)
}
