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

// MaintenanceHandler exposes issue ticket endpoints.
type MaintenanceHandler struct {
	maintenance *service.MaintenanceService
}

// NewMaintenanceHandler constructs MaintenanceHandler.
func NewMaintenanceHandler(maintenance *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance}
}

// List godoc
// @Summary List maintenance tickets
// @Tags Maintenance
// @Produce json
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param room query string false "Filter by room"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /maintenance [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	var filter models.MaintenanceFilter
	filter.Status = models.MaintenanceStatus(c.Query("status"))
	filter.Priority = models.MaintenancePriority(c.Query("priority"))
	filter.RoomID = c.Query("room")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	claims := claimsFromContext(c)
	if !isAdmin(claims) {
		filter.UserID = claims.UserID
	}

	tickets, pagination, err := h.maintenance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tickets, pagination)
}

// Get godoc
// @Summary Get maintenance ticket detail
// @Tags Maintenance
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
	ticket, err := h.maintenance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	claims := claimsFromContext(c)
	if !isAdmin(claims) && ticket.UserID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, ticket, nil)
}

// Report godoc
// @Summary Report a maintenance issue
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body service.ReportIssuePayload true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance [post]
func (h *MaintenanceHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload service.ReportIssuePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid ticket payload"))
		return
	}

	ticket, err := h.maintenance.Report(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// UpdateStatus godoc
// @Summary Update ticket status
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param payload body service.UpdateTicketPayload true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/{id}/status [put]
func (h *MaintenanceHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload service.UpdateTicketPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	ticket, err := h.maintenance.UpdateStatus(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket, nil)
}
