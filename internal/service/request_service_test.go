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

type mockRequestRepo struct {
	requests     map[string]*models.AllocationRequestDetail
	pending      map[string]bool
	reviewResult bool
	reviewed     []string
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.AllocationRequestFilter) ([]models.AllocationRequestDetail, int, error) {
	var out []models.AllocationRequestDetail
	for _, r := range m.requests {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.AllocationRequestDetail, error) {
	if r, ok := m.requests[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) HasPending(ctx context.Context, userID string) (bool, error) {
	return m.pending[userID], nil
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.AllocationRequest) error {
	request.ID = "req-new"
	m.requests[request.ID] = &models.AllocationRequestDetail{AllocationRequest: *request}
	return nil
}

func (m *mockRequestRepo) Review(ctx context.Context, id string, status models.AllocationRequestStatus, adminID, response string, when time.Time) (bool, error) {
	if !m.reviewResult {
		return false, nil
	}
	m.reviewed = append(m.reviewed, id)
	m.requests[id].Status = status
	return true, nil
}

func newRequestTestService(repo *mockRequestRepo, notifications *mockNotificationWriter) *RequestService {
	return NewRequestService(repo, notifications, &mockActivityWriter{}, validator.New(), zap.NewNop())
}

func pendingRequest(id, userID string) *models.AllocationRequestDetail {
	return &models.AllocationRequestDetail{
		AllocationRequest: models.AllocationRequest{
			ID:     id,
			UserID: userID,
			Status: models.RequestStatusPending,
		},
	}
}

func TestRequestServiceSubmit(t *testing.T) {
	repo := &mockRequestRepo{requests: map[string]*models.AllocationRequestDetail{}, pending: map[string]bool{}}
	svc := newRequestTestService(repo, nil)

	floor := 2
	detail, err := svc.Submit(context.Background(), "student-1", SubmitRequestPayload{
		PreferredBuilding: "North Hall",
		PreferredFloor:    &floor,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, detail.Status)
	assert.Equal(t, "student-1", detail.UserID)
}

func TestRequestServiceSubmitWithPendingRequest(t *testing.T) {
	repo := &mockRequestRepo{
		requests: map[string]*models.AllocationRequestDetail{},
		pending:  map[string]bool{"student-1": true},
	}
	svc := newRequestTestService(repo, nil)

	_, err := svc.Submit(context.Background(), "student-1", SubmitRequestPayload{PreferredBuilding: "North Hall"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRequestServiceReviewApprove(t *testing.T) {
	repo := &mockRequestRepo{
		requests:     map[string]*models.AllocationRequestDetail{"req-1": pendingRequest("req-1", "student-1")},
		reviewResult: true,
	}
	notifications := &mockNotificationWriter{}
	svc := newRequestTestService(repo, notifications)

	detail, err := svc.Review(context.Background(), "req-1", "admin-1", ReviewRequestPayload{
		Status:        models.RequestStatusApproved,
		AdminResponse: "Assigned next week.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, detail.Status)
	require.Len(t, notifications.created, 1)
	assert.Equal(t, "student-1", notifications.created[0].UserID)
}

func TestRequestServiceReviewAlreadyDecided(t *testing.T) {
	decided := pendingRequest("req-1", "student-1")
	decided.Status = models.RequestStatusRejected
	repo := &mockRequestRepo{requests: map[string]*models.AllocationRequestDetail{"req-1": decided}}
	svc := newRequestTestService(repo, nil)

	_, err := svc.Review(context.Background(), "req-1", "admin-1", ReviewRequestPayload{Status: models.RequestStatusApproved})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestRequestServiceReviewLosesRace(t *testing.T) {
	repo := &mockRequestRepo{
		requests:     map[string]*models.AllocationRequestDetail{"req-1": pendingRequest("req-1", "student-1")},
		reviewResult: false,
	}
	notifications := &mockNotificationWriter{}
	svc := newRequestTestService(repo, notifications)

	_, err := svc.Review(context.Background(), "req-1", "admin-1", ReviewRequestPayload{Status: models.RequestStatusApproved})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Empty(t, notifications.created)
}

func TestRequestServiceReviewInvalidStatus(t *testing.T) {
	repo := &mockRequestRepo{requests: map[string]*models.AllocationRequestDetail{}}
	svc := newRequestTestService(repo, nil)

	_, err := svc.Review(context.Background(), "req-1", "admin-1", ReviewRequestPayload{Status: "pending"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
