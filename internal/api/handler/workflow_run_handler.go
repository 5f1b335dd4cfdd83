package handler

import (
	"errors"
	"net/http"

	"flowdeck/internal/api/dto"
	"flowdeck/internal/domain"
	"flowdeck/internal/service"

	"github.com/gin-gonic/gin"
)

// WorkflowRunHandler exposes the pause/resume lifecycle over HTTP.
// Not-found conditions map to 404, illegal transitions to 409.
type WorkflowRunHandler struct {
	service service.WorkflowRunService
}

func NewWorkflowRunHandler(svc service.WorkflowRunService) *WorkflowRunHandler {
	return &WorkflowRunHandler{service: svc}
}

func (h *WorkflowRunHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(run))
}

func (h *WorkflowRunHandler) PauseRun(c *gin.Context) {
	var req dto.PauseRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reasons := make([]domain.PauseReasonSpec, 0, len(req.Reasons))
	for _, reason := range req.Reasons {
		reasons = append(reasons, domain.PauseReasonSpec{
			Type:    domain.PauseReasonType(reason.Type),
			Message: reason.Message,
		})
	}

	pause, err := h.service.PauseRun(c.Request.Context(), c.Param("run_id"), req.UserID, req.State, reasons)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewPauseResponse(pause))
}

func (h *WorkflowRunHandler) ResumeRun(c *gin.Context) {
	var req dto.ResumeRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pause, err := h.service.GetPause(c.Request.Context(), req.PauseID)
	if err != nil {
		respondError(c, err)
		return
	}
	resumed, err := h.service.ResumeRun(c.Request.Context(), c.Param("run_id"), pause)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPauseResponse(resumed))
}

func (h *WorkflowRunHandler) DeletePause(c *gin.Context) {
	pause, err := h.service.GetPause(c.Request.Context(), c.Param("pause_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.service.DeletePause(c.Request.Context(), pause); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError translates the domain error taxonomy into HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrWorkflowRunNotFound),
		errors.Is(err, domain.ErrWorkflowPauseNotFound),
		errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrAnnotationNotFound),
		errors.Is(err, domain.ErrDatasetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsStateError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
