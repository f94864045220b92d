package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type userService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, req service.CreateUserRequest, actor models.UserInfo) (*models.User, error)
	Remove(ctx context.Context, id string, actor models.UserInfo) error
}

type userLessonLister interface {
	ListForUser(ctx context.Context, userID string, filter models.LessonPlanUserFilter) ([]models.LessonPlan, error)
}

// UserHandler manages user endpoints.
type UserHandler struct {
	service userService
	lessons userLessonLister
}

// NewUserHandler constructs a user handler.
func NewUserHandler(svc userService, lessons userLessonLister) *UserHandler {
	return &UserHandler{service: svc, lessons: lessons}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 401 {object} appErrors.Error
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateUserRequest true "User payload"
// @Success 201 {object} models.User
// @Failure 400 {object} appErrors.Error
// @Failure 403 {object} appErrors.Error
// @Failure 409 {object} appErrors.Error
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateUserRequest
	if !bindJSON(c, &req, "invalid create user payload") {
		return
	}
	user, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Remove godoc
// @Summary Remove user
// @Description Hard deletes the account; audit history keeps the username.
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 400 {object} appErrors.Error
// @Failure 404 {object} appErrors.Error
// @Router /users/{id} [delete]
func (h *UserHandler) Remove(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	if err := h.service.Remove(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// LessonPlans godoc
// @Summary Lessons assigned to a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param upcoming query bool false "Only lessons that have not started"
// @Param limit query int false "Maximum number of lessons"
// @Success 200 {array} models.LessonPlan
// @Failure 404 {object} appErrors.Error
// @Router /users/{id}/lesson-plans [get]
func (h *UserHandler) LessonPlans(c *gin.Context) {
	filter, ok := lessonFilter(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	plans, err := h.lessons.ListForUser(c.Request.Context(), user.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans)
}
