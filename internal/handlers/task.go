package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/services"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// dateParam parses a "YYYY-MM-DD" query value, defaulting to today.
func dateParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", apperrors.ErrInvalidArgument, name)
	}
	return day, nil
}

func taskIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid task id", apperrors.ErrInvalidArgument)
	}
	return id, nil
}

func (th *TaskHandler) Create(c *gin.Context) {
	var req services.TaskCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := th.taskService.Create(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Get(c *gin.Context) {
	taskID, err := taskIDParam(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	task, err := th.taskService.Get(c.Request.Context(), taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Patch(c *gin.Context) {
	taskID, err := taskIDParam(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	var patch services.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := th.taskService.Update(c.Request.Context(), taskID, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Delete(c *gin.Context) {
	taskID, err := taskIDParam(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := th.taskService.Delete(c.Request.Context(), taskID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": taskID})
}

func (th *TaskHandler) ListDay(c *gin.Context) {
	day, err := dateParam(c, "date")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	tasks, err := th.taskService.ListDay(c.Request.Context(), day)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"date": day.Format("2006-01-02"), "tasks": tasks})
}

func (th *TaskHandler) ListBacklog(c *gin.Context) {
	tasks, err := th.taskService.ListBacklog(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

func (th *TaskHandler) Week(c *gin.Context) {
	start, err := dateParam(c, "start")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	view, err := th.taskService.Week(c.Request.Context(), start)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (th *TaskHandler) Slots(c *gin.Context) {
	taskID, err := taskIDParam(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	day, err := dateParam(c, "date")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	options, err := th.taskService.SlotOptions(c.Request.Context(), taskID, day)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"date": day.Format("2006-01-02"), "slots": options})
}
