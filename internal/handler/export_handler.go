package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nmamani/colegio-api/internal/service"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
	"github.com/nmamani/colegio-api/pkg/response"
)

// ExportHandler serves timetable and attendance downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// CourseTimetable godoc
// @Summary Download the weekly timetable of a course
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param periodId query string true "Period ID"
// @Param format query string true "Format (csv or pdf)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /courses/{id}/timetable/export [get]
func (h *ExportHandler) CourseTimetable(c *gin.Context) {
	doc, err := h.service.CourseTimetable(c.Request.Context(), c.Query("periodId"), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDocument(c, doc)
}

// AttendanceSheet godoc
// @Summary Download the daily attendance sheet of a course
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string true "Format (csv or pdf)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /courses/{id}/attendance/export [get]
func (h *ExportHandler) AttendanceSheet(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	doc, err := h.service.AttendanceSheet(c.Request.Context(), c.Param("id"), date, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDocument(c, doc)
}

func serveDocument(c *gin.Context, doc *service.ExportDocument) {
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
