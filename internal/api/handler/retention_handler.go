package handler

import (
	"net/http"
	"time"

	"flowdeck/internal/api/dto"
	"flowdeck/internal/service/retention"

	"github.com/gin-gonic/gin"
)

// RetentionHandler is the admin surface over the retention engine: manual
// per-run deletion and archive restore.
type RetentionHandler struct {
	deleter  *retention.ArchivedWorkflowRunDeletion
	restorer *retention.WorkflowRunRestore
}

func NewRetentionHandler(deleter *retention.ArchivedWorkflowRunDeletion, restorer *retention.WorkflowRunRestore) *RetentionHandler {
	return &RetentionHandler{deleter: deleter, restorer: restorer}
}

// DeleteRun deletes one archived run. The engine reports failures as data,
// so the outcome decides the status code here.
func (h *RetentionHandler) DeleteRun(c *gin.Context) {
	result := h.deleter.DeleteByRunID(c.Request.Context(), c.Param("run_id"))
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type deleteBatchRequest struct {
	TenantIDs []string  `json:"tenant_ids"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	Limit     int       `json:"limit" binding:"required,min=1"`
}

// DeleteBatch runs one retention pass over the given window. The response
// carries every per-run outcome, successes and failures mixed.
func (h *RetentionHandler) DeleteBatch(c *gin.Context) {
	var req deleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.deleter.DeleteBatch(c.Request.Context(), req.TenantIDs, req.StartDate, req.EndDate, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []retention.DeletionResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *RetentionHandler) RestoreRun(c *gin.Context) {
	var req dto.RestoreRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot := retention.ArchiveSnapshot{
		SchemaVersion: req.SchemaVersion,
		Tables:        req.Tables,
	}
	restored, err := h.restorer.RestoreSnapshot(c.Request.Context(), snapshot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RestoreResponse{
		RestoredRows: restored,
		DryRun:       h.restorer.DryRun(),
	})
}
