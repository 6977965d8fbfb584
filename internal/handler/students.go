package handler

import (
	"net/http"

	"stationery/internal/dto"
	"stationery/internal/middleware"
	"stationery/internal/service"

	"github.com/gin-gonic/gin"
)

type StudentsHandler struct {
	svc  service.StudentService
	sync service.StudentSyncService
}

func NewStudentsHandler(svc service.StudentService, sync service.StudentSyncService) *StudentsHandler {
	return &StudentsHandler{svc: svc, sync: sync}
}

// Create godoc
// @Summary      Register a student
// @Tags         students
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateStudentRequest true "Student"
// @Success      201  {object} dto.StudentResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /api/students [post]
func (h *StudentsHandler) Create(c *gin.Context) {
	var req dto.CreateStudentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List students
// @Tags         students
// @Produce      json
// @Security     BearerAuth
// @Param        course query string false "Course"
// @Param        year query int false "Year"
// @Param        search query string false "Name or student number"
// @Param        page query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200  {object} dto.StudentListResponse
// @Failure      400  {object} apierror.APIError
// @Router       /api/students [get]
func (h *StudentsHandler) List(c *gin.Context) {
	var filter dto.StudentFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary      Get a student
// @Tags         students
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Student uuid"
// @Success      200  {object} dto.StudentResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/students/{id} [get]
func (h *StudentsHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewSQL godoc
// @Summary      Preview the external student table
// @Description  Returns the normalised rows of the external student table without writing anything.
// @Tags         students
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.SQLStudentListResponse
// @Failure      404  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /api/students/sql [get]
func (h *StudentsHandler) PreviewSQL(c *gin.Context) {
	resp, err := h.sync.Preview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Sync godoc
// @Summary      Import students from the external table
// @Description  Imports the external student table. With ?async=true the import is queued and 202 is returned immediately.
// @Tags         students
// @Produce      json
// @Security     BearerAuth
// @Param        async query bool false "Queue the import and return 202"
// @Success      200  {object} dto.StudentSyncResponse
// @Failure      409  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /api/students/sync [post]
func (h *StudentsHandler) Sync(c *gin.Context) {
	if c.Query("async") == "true" {
		requestedBy := middleware.Actor(c)
		if requestedBy == "" {
			requestedBy = "api"
		}
		if err := h.sync.EnqueueSync(c.Request.Context(), requestedBy); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Student sync queued"})
		return
	}

	resp, err := h.sync.SyncStudents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
