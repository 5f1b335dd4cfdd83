package handler

import (
	"net/http"
	"strconv"

	"flowdeck/internal/service"

	"github.com/gin-gonic/gin"
)

type DatasetHandler struct {
	datasets *service.DatasetService
}

func NewDatasetHandler(datasets *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

func (h *DatasetHandler) Get(c *gin.Context) {
	dataset, err := h.datasets.Get(c.Request.Context(), c.Param("tenant_id"), c.Param("dataset_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dataset)
}

func (h *DatasetHandler) ListDocuments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	documents, err := h.datasets.ListDocuments(c.Request.Context(), service.DocumentQuery{
		TenantID:      c.Param("tenant_id"),
		DatasetID:     c.Param("dataset_id"),
		DisplayStatus: c.Query("display_status"),
		Keyword:       c.Query("keyword"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, documents)
}

func (h *DatasetHandler) ListSegments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	query := service.SegmentQuery{
		TenantID:   c.Param("tenant_id"),
		DatasetID:  c.Param("dataset_id"),
		DocumentID: c.Param("document_id"),
		Keyword:    c.Query("keyword"),
		Page:       page,
		Limit:      limit,
	}
	if status := c.QueryArray("status"); len(status) > 0 {
		query.Status = status
	}

	segments, err := h.datasets.ListSegments(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, segments)
}

type collectionBindingRequest struct {
	ProviderName   string `json:"provider_name" binding:"required"`
	ModelName      string `json:"model_name" binding:"required"`
	CollectionType string `json:"collection_type"`
}

func (h *DatasetHandler) GetOrCreateCollectionBinding(c *gin.Context) {
	var req collectionBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	binding, err := h.datasets.GetOrCreateCollectionBinding(c.Request.Context(),
		req.ProviderName, req.ModelName, req.CollectionType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, binding)
}
