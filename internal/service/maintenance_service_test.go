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

type mockMaintenanceRepo struct {
	tickets    map[string]*models.MaintenanceRequestDetail
	lastStatus models.MaintenanceStatus
	lastNotes  string
}

func (m *mockMaintenanceRepo) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequestDetail, int, error) {
	var out []models.MaintenanceRequestDetail
	for _, t := range m.tickets {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *mockMaintenanceRepo) FindByID(ctx context.Context, id string) (*models.MaintenanceRequestDetail, error) {
	if t, ok := m.tickets[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMaintenanceRepo) Create(ctx context.Context, ticket *models.MaintenanceRequest) error {
	ticket.ID = "ticket-new"
	m.tickets[ticket.ID] = &models.MaintenanceRequestDetail{MaintenanceRequest: *ticket}
	return nil
}

func (m *mockMaintenanceRepo) UpdateStatus(ctx context.Context, id string, status models.MaintenanceStatus, adminNotes string) error {
	m.lastStatus = status
	m.lastNotes = adminNotes
	m.tickets[id].Status = status
	return nil
}

type mockMaintenanceAllocations struct {
	active map[string]*models.AllocationDetail
}

func (m *mockMaintenanceAllocations) FindActiveByUser(ctx context.Context, userID string) (*models.AllocationDetail, error) {
	if a, ok := m.active[userID]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func newMaintenanceTestService(repo *mockMaintenanceRepo, allocs *mockMaintenanceAllocations) (*MaintenanceService, *mockNotificationWriter) {
	notifications := &mockNotificationWriter{}
	svc := NewMaintenanceService(repo, allocs, notifications, &mockActivityWriter{}, validator.New(), zap.NewNop())
	return svc, notifications
}

func TestMaintenanceServiceReport(t *testing.T) {
	repo := &mockMaintenanceRepo{tickets: map[string]*models.MaintenanceRequestDetail{}}
	allocs := &mockMaintenanceAllocations{active: map[string]*models.AllocationDetail{
		"student-1": {Allocation: models.Allocation{ID: "alloc-1", UserID: "student-1", RoomID: "room-1"}},
	}}
	svc, _ := newMaintenanceTestService(repo, allocs)

	ticket, err := svc.Report(context.Background(), "student-1", ReportIssuePayload{
		IssueType:   "plumbing",
		Priority:    models.PriorityHigh,
		Description: "Leaking sink in the shared bathroom.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenancePending, ticket.Status)
	assert.Equal(t, "room-1", ticket.RoomID)
	assert.Equal(t, "student-1", ticket.UserID)
}

func TestMaintenanceServiceReportWithoutAllocation(t *testing.T) {
	repo := &mockMaintenanceRepo{tickets: map[string]*models.MaintenanceRequestDetail{}}
	svc, _ := newMaintenanceTestService(repo, &mockMaintenanceAllocations{})

	_, err := svc.Report(context.Background(), "student-1", ReportIssuePayload{
		IssueType:   "plumbing",
		Description: "Leaking sink.",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Empty(t, repo.tickets)
}

func TestMaintenanceServiceUpdateStatus(t *testing.T) {
	repo := &mockMaintenanceRepo{tickets: map[string]*models.MaintenanceRequestDetail{
		"ticket-1": {MaintenanceRequest: models.MaintenanceRequest{
			ID:     "ticket-1",
			UserID: "student-1",
			RoomID: "room-1",
			Status: models.MaintenancePending,
		}},
	}}
	svc, notifications := newMaintenanceTestService(repo, &mockMaintenanceAllocations{})

	ticket, err := svc.UpdateStatus(context.Background(), "ticket-1", "admin-1", UpdateTicketPayload{
		Status:     models.MaintenanceInProgress,
		AdminNotes: "Plumber scheduled.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceInProgress, ticket.Status)
	assert.Equal(t, "Plumber scheduled.", repo.lastNotes)
	require.Len(t, notifications.created, 1)
	assert.Equal(t, "student-1", notifications.created[0].UserID)
}

func TestMaintenanceServiceUpdateTerminalTicket(t *testing.T) {
	repo := &mockMaintenanceRepo{tickets: map[string]*models.MaintenanceRequestDetail{
		"ticket-1": {MaintenanceRequest: models.MaintenanceRequest{
			ID:     "ticket-1",
			UserID: "student-1",
			Status: models.MaintenanceCompleted,
		}},
	}}
	svc, notifications := newMaintenanceTestService(repo, &mockMaintenanceAllocations{})

	_, err := svc.UpdateStatus(context.Background(), "ticket-1", "admin-1", UpdateTicketPayload{Status: models.MaintenanceCancelled})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Empty(t, notifications.created)
}

func TestMaintenanceServiceUpdateRejectsPendingTarget(t *testing.T) {
	repo := &mockMaintenanceRepo{tickets: map[string]*models.MaintenanceRequestDetail{}}
	svc, _ := newMaintenanceTestService(repo, &mockMaintenanceAllocations{})

	_, err := svc.UpdateStatus(context.Background(), "ticket-1", "admin-1", UpdateTicketPayload{Status: "pending"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
