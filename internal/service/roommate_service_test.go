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

type mockRoommateRepo struct {
	profiles     map[string]*models.RoommateProfile
	candidates   []models.RoommateCandidate
	requests     map[string]*models.RoommateRequest
	pairs        map[string]bool
	updateResult bool
	lastStatus   models.RoommateRequestStatus
}

func (m *mockRoommateRepo) FindProfileByUser(ctx context.Context, userID string) (*models.RoommateProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoommateRepo) UpsertProfile(ctx context.Context, profile *models.RoommateProfile) error {
	if m.profiles == nil {
		m.profiles = make(map[string]*models.RoommateProfile)
	}
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockRoommateRepo) ListCandidates(ctx context.Context, userID string, yearLevel int) ([]models.RoommateCandidate, error) {
	return m.candidates, nil
}

func (m *mockRoommateRepo) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	return m.pairs[userA+"|"+userB] || m.pairs[userB+"|"+userA], nil
}

func (m *mockRoommateRepo) CreateRequest(ctx context.Context, request *models.RoommateRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]*models.RoommateRequest)
	}
	request.ID = "rr-new"
	m.requests[request.ID] = request
	return nil
}

func (m *mockRoommateRepo) FindRequestByID(ctx context.Context, id string) (*models.RoommateRequest, error) {
	if r, ok := m.requests[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoommateRepo) UpdateRequestStatus(ctx context.Context, id string, status models.RoommateRequestStatus) (bool, error) {
	if !m.updateResult {
		return false, nil
	}
	m.lastStatus = status
	m.requests[id].Status = status
	return true, nil
}

func (m *mockRoommateRepo) ListIncoming(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error) {
	return nil, nil
}

func (m *mockRoommateRepo) ListSent(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error) {
	return nil, nil
}

type mockRoommateUsers struct {
	users map[string]*models.User
}

func (m *mockRoommateUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func tidyProfile(userID string) *models.RoommateProfile {
	return &models.RoommateProfile{
		UserID:        userID,
		SleepSchedule: "early_bird",
		Cleanliness:   "tidy",
		NoiseLevel:    "quiet",
		StudyHabits:   "library",
	}
}

func newRoommateTestService(repo *mockRoommateRepo, users *mockRoommateUsers) (*RoommateService, *mockNotificationWriter) {
	notifications := &mockNotificationWriter{}
	svc := NewRoommateService(repo, users, notifications, validator.New(), zap.NewNop())
	return svc, notifications
}

func TestRoommateServiceSaveProfileRejectsUnknownValue(t *testing.T) {
	repo := &mockRoommateRepo{}
	svc, _ := newRoommateTestService(repo, &mockRoommateUsers{})

	_, err := svc.SaveProfile(context.Background(), "student-1", RoommateProfilePayload{
		SleepSchedule: "whenever",
		Cleanliness:   "tidy",
		NoiseLevel:    "quiet",
		StudyHabits:   "library",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRoommateServiceListCandidatesRequiresProfile(t *testing.T) {
	repo := &mockRoommateRepo{}
	users := &mockRoommateUsers{users: map[string]*models.User{"student-1": activeStudent("student-1", 2)}}
	svc, _ := newRoommateTestService(repo, users)

	_, err := svc.ListCandidates(context.Background(), "student-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRoommateServiceListCandidates(t *testing.T) {
	repo := &mockRoommateRepo{
		profiles:   map[string]*models.RoommateProfile{"student-1": tidyProfile("student-1")},
		candidates: []models.RoommateCandidate{{UserID: "student-2"}},
	}
	users := &mockRoommateUsers{users: map[string]*models.User{"student-1": activeStudent("student-1", 2)}}
	svc, _ := newRoommateTestService(repo, users)

	candidates, err := svc.ListCandidates(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "student-2", candidates[0].UserID)
}

func TestRoommateServiceSendRequest(t *testing.T) {
	repo := &mockRoommateRepo{pairs: map[string]bool{}}
	users := &mockRoommateUsers{users: map[string]*models.User{"student-2": activeStudent("student-2", 2)}}
	svc, notifications := newRoommateTestService(repo, users)

	request, err := svc.SendRequest(context.Background(), "student-1", "student-2")
	require.NoError(t, err)
	assert.Equal(t, models.RoommateRequestPending, request.Status)
	require.Len(t, notifications.created, 1)
	assert.Equal(t, "student-2", notifications.created[0].UserID)
}

func TestRoommateServiceSendRequestToSelf(t *testing.T) {
	svc, _ := newRoommateTestService(&mockRoommateRepo{}, &mockRoommateUsers{})

	_, err := svc.SendRequest(context.Background(), "student-1", "student-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRoommateServiceSendRequestDuplicatePair(t *testing.T) {
	// A reverse-direction request blocks a new one the same as a forward one.
	repo := &mockRoommateRepo{pairs: map[string]bool{"student-2|student-1": true}}
	users := &mockRoommateUsers{users: map[string]*models.User{"student-2": activeStudent("student-2", 2)}}
	svc, _ := newRoommateTestService(repo, users)

	_, err := svc.SendRequest(context.Background(), "student-1", "student-2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRoommateServiceRespondAccept(t *testing.T) {
	repo := &mockRoommateRepo{
		requests: map[string]*models.RoommateRequest{
			"rr-1": {ID: "rr-1", FromUserID: "student-1", ToUserID: "student-2", Status: models.RoommateRequestPending},
		},
		updateResult: true,
	}
	svc, notifications := newRoommateTestService(repo, &mockRoommateUsers{})

	request, err := svc.Respond(context.Background(), "rr-1", "student-2", true)
	require.NoError(t, err)
	assert.Equal(t, models.RoommateRequestAccepted, request.Status)
	require.Len(t, notifications.created, 1)
	assert.Equal(t, "student-1", notifications.created[0].UserID)
}

func TestRoommateServiceRespondNotRecipient(t *testing.T) {
	repo := &mockRoommateRepo{
		requests: map[string]*models.RoommateRequest{
			"rr-1": {ID: "rr-1", FromUserID: "student-1", ToUserID: "student-2", Status: models.RoommateRequestPending},
		},
	}
	svc, _ := newRoommateTestService(repo, &mockRoommateUsers{})

	_, err := svc.Respond(context.Background(), "rr-1", "student-1", true)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRoommateServiceRespondAlreadyDecided(t *testing.T) {
	repo := &mockRoommateRepo{
		requests: map[string]*models.RoommateRequest{
			"rr-1": {ID: "rr-1", FromUserID: "student-1", ToUserID: "student-2", Status: models.RoommateRequestAccepted},
		},
	}
	svc, _ := newRoommateTestService(repo, &mockRoommateUsers{})

	_, err := svc.Respond(context.Background(), "rr-1", "student-2", false)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}
