package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/services"
)

type RoutineHandler struct {
	routineService services.RoutineService
}

func NewRoutineHandler(routineService services.RoutineService) *RoutineHandler {
	return &RoutineHandler{routineService: routineService}
}

func (rh *RoutineHandler) GetRoutine(c *gin.Context) {
	routine, err := rh.routineService.GetRoutine(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"routine": routine})
}

func (rh *RoutineHandler) PatchRoutine(c *gin.Context) {
	var patch services.RoutinePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	routine, err := rh.routineService.PatchRoutine(c.Request.Context(), patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"routine": routine})
}

func (rh *RoutineHandler) ListSteps(c *gin.Context) {
	steps, err := rh.routineService.ListSteps(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"steps": steps})
}

func (rh *RoutineHandler) AddStep(c *gin.Context) {
	var req services.StepCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	step, err := rh.routineService.AddStep(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"step": step})
}

func (rh *RoutineHandler) DeleteStep(c *gin.Context) {
	stepID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondServiceError(c, fmt.Errorf("%w: invalid step id", apperrors.ErrInvalidArgument))
		return
	}
	if err := rh.routineService.DeleteStep(c.Request.Context(), stepID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": stepID})
}
