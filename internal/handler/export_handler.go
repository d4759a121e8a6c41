package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	"github.com/dormkeeper/dormkeeper-api/internal/service"
	"github.com/dormkeeper/dormkeeper-api/pkg/response"
)

// ExportHandler exposes synchronous roster export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Allocations godoc
// @Summary Export allocation roster
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Filter by status"
// @Param year query string false "Filter by academic year"
// @Param semester query string false "Filter by semester"
// @Success 200 {file} binary
// @Router /exports/allocations [get]
func (h *ExportHandler) Allocations(c *gin.Context) {
	var filter models.AllocationFilter
	filter.Status = models.AllocationStatus(c.Query("status"))
	filter.AcademicYear = c.Query("year")
	filter.Semester = c.Query("semester")

	result, err := h.exports.AllocationRoster(c.Request.Context(), filter, service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.send(c, result)
}

// Rooms godoc
// @Summary Export room register
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Param building query string false "Filter by building"
// @Success 200 {file} binary
// @Router /exports/rooms [get]
func (h *ExportHandler) Rooms(c *gin.Context) {
	var filter models.RoomFilter
	filter.Building = c.Query("building")

	result, err := h.exports.RoomRegister(c.Request.Context(), filter, service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.send(c, result)
}

func (h *ExportHandler) send(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(200, result.ContentType, result.Data)
}
