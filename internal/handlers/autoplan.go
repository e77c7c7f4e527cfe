package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/services"
)

type AutoplanHandler struct {
	autoplanService services.AutoplanService
}

func NewAutoplanHandler(autoplanService services.AutoplanService) *AutoplanHandler {
	return &AutoplanHandler{autoplanService: autoplanService}
}

func (ah *AutoplanHandler) Autoplan(c *gin.Context) {
	days := 1
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondServiceError(c, fmt.Errorf("%w: days must be a positive integer", apperrors.ErrInvalidArgument))
			return
		}
		days = parsed
	}
	start, err := dateParam(c, "start_date")
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	result, aErr := ah.autoplanService.Autoplan(c.Request.Context(), start, days)
	if aErr != nil {
		RespondServiceError(c, aErr)
		return
	}
	RespondOK(c, result)
}
