package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmamani/colegio-api/internal/service"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
	"github.com/nmamani/colegio-api/pkg/response"
)

// TeachingHandler manages teaching assignment endpoints.
type TeachingHandler struct {
	service *service.TeachingService
}

// NewTeachingHandler constructs handler.
func NewTeachingHandler(svc *service.TeachingService) *TeachingHandler {
	return &TeachingHandler{service: svc}
}

// ListByTeacher godoc
// @Summary List teaching assignments of a teacher
// @Tags Teaching
// @Produce json
// @Param id path string true "Teacher ID"
// @Param periodId query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teachers/{id}/assignments [get]
func (h *TeachingHandler) ListByTeacher(c *gin.Context) {
	assignments, err := h.service.ListByTeacher(c.Request.Context(), c.Query("periodId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Assign godoc
// @Summary Assign a subject to a teacher
// @Tags Teaching
// @Accept json
// @Produce json
// @Param payload body service.AssignTeachingRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *TeachingHandler) Assign(c *gin.Context) {
	var req service.AssignTeachingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Remove godoc
// @Summary Remove a teaching assignment
// @Tags Teaching
// @Produce json
// @Param id path string true "Teacher ID"
// @Param aid path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /teachers/{id}/assignments/{aid} [delete]
func (h *TeachingHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), c.Param("aid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
