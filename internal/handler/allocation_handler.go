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

// AllocationHandler exposes the allocation lifecycle endpoints.
type AllocationHandler struct {
	allocations *service.AllocationService
}

// NewAllocationHandler constructs AllocationHandler.
func NewAllocationHandler(allocations *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// List godoc
// @Summary List allocations
// @Tags Allocations
// @Produce json
// @Param status query string false "Filter by status"
// @Param room query string false "Filter by room"
// @Param year query string false "Filter by academic year"
// @Param semester query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	var filter models.AllocationFilter
	filter.Status = models.AllocationStatus(c.Query("status"))
	filter.RoomID = c.Query("room")
	filter.AcademicYear = c.Query("year")
	filter.Semester = c.Query("semester")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	// Students only ever see their own history.
	claims := claimsFromContext(c)
	if !isAdmin(claims) {
		filter.UserID = claims.UserID
	}

	allocations, pagination, err := h.allocations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, pagination)
}

// Get godoc
// @Summary Get allocation detail
// @Tags Allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id} [get]
func (h *AllocationHandler) Get(c *gin.Context) {
	allocation, err := h.allocations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	claims := claimsFromContext(c)
	if !isAdmin(claims) && allocation.UserID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, allocation, nil)
}

// MyRoom godoc
// @Summary Get current room assignment
// @Tags Allocations
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /my-room [get]
func (h *AllocationHandler) MyRoom(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	allocation, err := h.allocations.MyRoom(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// Allocate godoc
// @Summary Allocate a room to a student
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body service.AllocateRequest true "Allocation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req service.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}

	claims := claimsFromContext(c)
	allocation, err := h.allocations.Allocate(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, allocation)
}

// CheckIn godoc
// @Summary Check a student into their room
// @Tags Allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations/{id}/check-in [post]
func (h *AllocationHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	allocation, err := h.allocations.CheckIn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// CheckOut godoc
// @Summary Check a student out of their room
// @Tags Allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations/{id}/check-out [post]
func (h *AllocationHandler) CheckOut(c *gin.Context) {
	claims := claimsFromContext(c)
	allocation, err := h.allocations.CheckOut(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// Cancel godoc
// @Summary Cancel an allocation
// @Tags Allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations/{id}/cancel [post]
func (h *AllocationHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	allocation, err := h.allocations.Cancel(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// ListUnallocated godoc
// @Summary List students without a room for a period
// @Tags Allocations
// @Produce json
// @Param year query string true "Academic year"
// @Param semester query string true "Semester"
// @Success 200 {object} response.Envelope
// @Router /allocations/unallocated [get]
func (h *AllocationHandler) ListUnallocated(c *gin.Context) {
	students, err := h.allocations.ListUnallocated(c.Request.Context(), c.Query("year"), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// RecommendedType godoc
// @Summary Get recommended room type for the caller
// @Tags Allocations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /my-room/recommended-type [get]
func (h *AllocationHandler) RecommendedType(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"year_level":       claims.YearLevel,
		"recommended_type": service.RecommendedType(claims.YearLevel),
	}, nil)
}
