package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	"github.com/dormkeeper/dormkeeper-api/internal/service"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
	"github.com/dormkeeper/dormkeeper-api/pkg/response"
)

// RequestHandler exposes the preference request queue endpoints.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List godoc
// @Summary List preference requests
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	var filter models.AllocationRequestFilter
	filter.Status = models.AllocationRequestStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortOrder = c.Query("order")

	claims := claimsFromContext(c)
	if !isAdmin(claims) {
		filter.UserID = claims.UserID
	}

	requests, pagination, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get preference request detail
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	claims := claimsFromContext(c)
	if !isAdmin(claims) && request.UserID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Submit godoc
// @Summary Submit a room preference request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.SubmitRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload service.SubmitRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.requests.Submit(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Review godoc
// @Summary Review a preference request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.ReviewRequestPayload true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/review [post]
func (h *RequestHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload service.ReviewRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	request, err := h.requests.Review(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
