package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dormkeeper/dormkeeper-api/internal/service"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
	"github.com/dormkeeper/dormkeeper-api/pkg/response"
)

// RoommateHandler exposes roommate profile and matching endpoints.
type RoommateHandler struct {
	roommates *service.RoommateService
}

// NewRoommateHandler constructs RoommateHandler.
func NewRoommateHandler(roommates *service.RoommateService) *RoommateHandler {
	return &RoommateHandler{roommates: roommates}
}

// GetProfile godoc
// @Summary Get my roommate profile
// @Tags Roommates
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roommates/profile [get]
func (h *RoommateHandler) GetProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	profile, err := h.roommates.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// SaveProfile godoc
// @Summary Create or update my roommate profile
// @Tags Roommates
// @Accept json
// @Produce json
// @Param payload body service.RoommateProfilePayload true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roommates/profile [put]
func (h *RoommateHandler) SaveProfile(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload service.RoommateProfilePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.roommates.SaveProfile(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// ListCandidates godoc
// @Summary List roommate candidates
// @Tags Roommates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roommates/candidates [get]
func (h *RoommateHandler) ListCandidates(c *gin.Context) {
	claims := claimsFromContext(c)
	candidates, err := h.roommates.ListCandidates(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// SendRequest godoc
// @Summary Send a roommate request
// @Tags Roommates
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Target student"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roommates/requests [post]
func (h *RoommateHandler) SendRequest(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload struct {
		ToUserID string `json:"to_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "target student required"))
		return
	}

	request, err := h.roommates.SendRequest(c.Request.Context(), claims.UserID, payload.ToUserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Respond godoc
// @Summary Accept or reject a roommate request
// @Tags Roommates
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body map[string]bool true "Accept flag"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roommates/requests/{id}/respond [post]
func (h *RoommateHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "accept flag required"))
		return
	}

	request, err := h.roommates.Respond(c.Request.Context(), c.Param("id"), claims.UserID, *payload.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ListIncoming godoc
// @Summary List incoming roommate requests
// @Tags Roommates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roommates/requests/incoming [get]
func (h *RoommateHandler) ListIncoming(c *gin.Context) {
	claims := claimsFromContext(c)
	requests, err := h.roommates.ListIncoming(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ListSent godoc
// @Summary List sent roommate requests
// @Tags Roommates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roommates/requests/sent [get]
func (h *RoommateHandler) ListSent(c *gin.Context) {
	claims := claimsFromContext(c)
	requests, err := h.roommates.ListSent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
