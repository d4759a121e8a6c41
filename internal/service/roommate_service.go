package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

type roommateRepository interface {
	FindProfileByUser(ctx context.Context, userID string) (*models.RoommateProfile, error)
	UpsertProfile(ctx context.Context, profile *models.RoommateProfile) error
	ListCandidates(ctx context.Context, userID string, yearLevel int) ([]models.RoommateCandidate, error)
	ExistsBetween(ctx context.Context, userA, userB string) (bool, error)
	CreateRequest(ctx context.Context, request *models.RoommateRequest) error
	FindRequestByID(ctx context.Context, id string) (*models.RoommateRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, status models.RoommateRequestStatus) (bool, error)
	ListIncoming(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error)
	ListSent(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error)
}

type roommateUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RoommateProfilePayload is the self-service habit questionnaire.
type RoommateProfilePayload struct {
	SleepSchedule string `json:"sleep_schedule" validate:"required,oneof=early_bird night_owl flexible"`
	Cleanliness   string `json:"cleanliness" validate:"required,oneof=very_tidy tidy relaxed"`
	NoiseLevel    string `json:"noise_level" validate:"required,oneof=quiet moderate lively"`
	StudyHabits   string `json:"study_habits" validate:"required,oneof=in_room library mixed"`
	Interests     string `json:"interests"`
	AboutMe       string `json:"about_me"`
	LookingFor    string `json:"looking_for"`
}

// RoommateService handles habit profiles and pairwise connection requests.
// Matching is a plain same-year filter; there is no scoring.
type RoommateService struct {
	repo          roommateRepository
	users         roommateUserReader
	notifications notificationWriter
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewRoommateService constructs a RoommateService.
func NewRoommateService(repo roommateRepository, users roommateUserReader, notifications notificationWriter, validate *validator.Validate, logger *zap.Logger) *RoommateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoommateService{repo: repo, users: users, notifications: notifications, validator: validate, logger: logger}
}

// GetProfile returns the caller's habit profile.
func (s *RoommateService) GetProfile(ctx context.Context, userID string) (*models.RoommateProfile, error) {
	profile, err := s.repo.FindProfileByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roommate profile not set up")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

// SaveProfile creates or replaces the caller's habit profile.
func (s *RoommateService) SaveProfile(ctx context.Context, userID string, payload RoommateProfilePayload) (*models.RoommateProfile, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile := &models.RoommateProfile{
		UserID:        userID,
		SleepSchedule: payload.SleepSchedule,
		Cleanliness:   payload.Cleanliness,
		NoiseLevel:    payload.NoiseLevel,
		StudyHabits:   payload.StudyHabits,
		Interests:     payload.Interests,
		AboutMe:       payload.AboutMe,
		LookingFor:    payload.LookingFor,
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	return s.GetProfile(ctx, userID)
}

// ListCandidates returns same-year students with a profile, excluding anyone
// already connected to the caller in either direction.
func (s *RoommateService) ListCandidates(ctx context.Context, userID string) ([]models.RoommateCandidate, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	candidates, err := s.repo.ListCandidates(ctx, userID, user.YearLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list candidates")
	}
	return candidates, nil
}

// SendRequest creates a pending connection request to another student. A pair
// may hold at most one request regardless of direction.
func (s *RoommateService) SendRequest(ctx context.Context, fromUserID, toUserID string) (*models.RoommateRequest, error) {
	if fromUserID == toUserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot send a roommate request to yourself")
	}

	target, err := s.users.FindByID(ctx, toUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if target.Role != models.RoleStudent || !target.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target is not an active student")
	}

	exists, err := s.repo.ExistsBetween(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a request between these students already exists")
	}

	request := &models.RoommateRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     models.RoommateRequestPending,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.notify(ctx, toUserID, "New roommate request", "A student would like to room with you.")

	return request, nil
}

// Respond accepts or rejects an incoming request. Only the recipient of a
// pending request may respond.
func (s *RoommateService) Respond(ctx context.Context, id, userID string, accept bool) (*models.RoommateRequest, error) {
	request, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roommate request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.ToUserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the recipient can respond to this request")
	}
	if request.Status != models.RoommateRequestPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("request has already been %s", request.Status))
	}

	status := models.RoommateRequestAccepted
	if !accept {
		status = models.RoommateRequestRejected
	}
	updated, err := s.repo.UpdateRequestStatus(ctx, id, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
	}

	if accept {
		s.notify(ctx, request.FromUserID, "Roommate request accepted", "Your roommate request has been accepted.")
	} else {
		s.notify(ctx, request.FromUserID, "Roommate request rejected", "Your roommate request has been rejected.")
	}

	request.Status = status
	return request, nil
}

// ListIncoming returns requests addressed to the caller.
func (s *RoommateService) ListIncoming(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error) {
	requests, err := s.repo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incoming requests")
	}
	return requests, nil
}

// ListSent returns requests the caller has sent.
func (s *RoommateService) ListSent(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error) {
	requests, err := s.repo.ListSent(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sent requests")
	}
	return requests, nil
}

func (s *RoommateService) notify(ctx context.Context, userID, title, message string) {
	if s.notifications == nil {
		return
	}
	err := s.notifications.Create(ctx, &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    models.NotificationGeneral,
	})
	if err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", userID), zap.Error(err))
	}
}
