package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type lessonPlanService interface {
	Create(ctx context.Context, req models.CreateLessonPlanRequest, creator models.UserInfo) (*models.LessonPlan, error)
	ListAll(ctx context.Context) ([]models.LessonPlan, error)
	ListForUser(ctx context.Context, userID string, filter models.LessonPlanUserFilter) ([]models.LessonPlan, error)
	Get(ctx context.Context, id string) (*models.LessonPlan, error)
	Update(ctx context.Context, id string, req models.UpdateLessonPlanRequest) (*models.LessonPlan, error)
	Assign(ctx context.Context, id string, req models.AssignLessonPlanRequest) (*models.LessonPlan, error)
}

type lessonExporter interface {
	ExportLessons(ctx context.Context, format string) (*service.ExportFile, error)
}

// LessonPlanHandler exposes lesson scheduling endpoints.
type LessonPlanHandler struct {
	service  lessonPlanService
	exporter lessonExporter
}

// NewLessonPlanHandler constructs a LessonPlanHandler.
func NewLessonPlanHandler(svc lessonPlanService, exporter lessonExporter) *LessonPlanHandler {
	return &LessonPlanHandler{service: svc, exporter: exporter}
}

// Create godoc
// @Summary Schedule a lesson
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateLessonPlanRequest true "Lesson payload"
// @Success 201 {object} models.LessonPlan
// @Failure 400 {object} appErrors.Error
// @Failure 403 {object} appErrors.Error
// @Router /lesson-plans [post]
func (h *LessonPlanHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateLessonPlanRequest
	if !bindJSON(c, &req, "invalid lesson plan payload") {
		return
	}
	plan, err := h.service.Create(c.Request.Context(), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// List godoc
// @Summary List lessons
// @Description All lessons ordered by date then start time
// @Tags LessonPlans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LessonPlan
// @Router /lesson-plans [get]
func (h *LessonPlanHandler) List(c *gin.Context) {
	plans, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans)
}

// Mine godoc
// @Summary Lessons assigned to the caller
// @Tags LessonPlans
// @Produce json
// @Security BearerAuth
// @Param upcoming query bool false "Only lessons that have not started"
// @Param limit query int false "Maximum number of lessons"
// @Success 200 {array} models.LessonPlan
// @Router /lesson-plans/mine [get]
func (h *LessonPlanHandler) Mine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	filter, ok := lessonFilter(c)
	if !ok {
		return
	}
	plans, err := h.service.ListForUser(c.Request.Context(), user.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans)
}

// Get godoc
// @Summary Get a lesson
// @Tags LessonPlans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 200 {object} models.LessonPlan
// @Failure 404 {object} appErrors.Error
// @Router /lesson-plans/{id} [get]
func (h *LessonPlanHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "lesson plan")
	if !ok {
		return
	}
	plan, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan)
}

// Update godoc
// @Summary Update a lesson
// @Description Partial update; omitted fields keep their value
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param payload body models.UpdateLessonPlanRequest true "Fields to change"
// @Success 200 {object} models.LessonPlan
// @Failure 400 {object} appErrors.Error
// @Failure 404 {object} appErrors.Error
// @Router /lesson-plans/{id} [put]
func (h *LessonPlanHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "lesson plan")
	if !ok {
		return
	}
	var req models.UpdateLessonPlanRequest
	if !bindJSON(c, &req, "invalid lesson plan payload") {
		return
	}
	plan, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan)
}

// Assign godoc
// @Summary Replace lesson assignees
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param payload body models.AssignLessonPlanRequest true "Assigned user ids"
// @Success 200 {object} models.LessonPlan
// @Failure 400 {object} appErrors.Error
// @Failure 404 {object} appErrors.Error
// @Router /lesson-plans/{id}/assignees [put]
func (h *LessonPlanHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "lesson plan")
	if !ok {
		return
	}
	var req models.AssignLessonPlanRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	plan, err := h.service.Assign(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan)
}

// Export godoc
// @Summary Export lessons
// @Tags LessonPlans
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} appErrors.Error
// @Router /lesson-plans/export [get]
func (h *LessonPlanHandler) Export(c *gin.Context) {
	file, err := h.exporter.ExportLessons(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func lessonFilter(c *gin.Context) (models.LessonPlanUserFilter, bool) {
	upcoming, ok := queryBool(c, "upcoming")
	if !ok {
		return models.LessonPlanUserFilter{}, false
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return models.LessonPlanUserFilter{}, false
	}
	return models.LessonPlanUserFilter{UpcomingOnly: upcoming, Limit: limit}, true
}
