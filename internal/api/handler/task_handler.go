package handler

import (
	"net/http"

	"flowdeck/internal/tasks"

	"github.com/gin-gonic/gin"
)

// TaskHandler triggers the background cleanup tasks synchronously over the
// admin API; production deployments normally invoke them from a queue
// worker.
type TaskHandler struct {
	removeApp    *tasks.RemoveAppTask
	cleanDataset *tasks.CleanDatasetTask
}

func NewTaskHandler(removeApp *tasks.RemoveAppTask, cleanDataset *tasks.CleanDatasetTask) *TaskHandler {
	return &TaskHandler{removeApp: removeApp, cleanDataset: cleanDataset}
}

func (h *TaskHandler) RemoveAppData(c *gin.Context) {
	err := h.removeApp.Run(c.Request.Context(), c.Param("tenant_id"), c.Param("app_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cleanDatasetRequest struct {
	DatasetID           string  `json:"dataset_id" binding:"required"`
	IndexingTechnique   string  `json:"indexing_technique"`
	IndexStruct         string  `json:"index_struct"`
	CollectionBindingID string  `json:"collection_binding_id"`
	PipelineID          *string `json:"pipeline_id"`
}

func (h *TaskHandler) CleanDataset(c *gin.Context) {
	var req cleanDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.cleanDataset.Run(c.Request.Context(), c.Param("tenant_id"),
		req.DatasetID, req.IndexingTechnique, req.IndexStruct, req.CollectionBindingID, req.PipelineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
