package handler

import (
	"net/http"

	"flowdeck/internal/api/dto"
	"flowdeck/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves conversation messages and their annotations.
type MessageHandler struct {
	messages *service.MessageService
}

func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) List(c *gin.Context) {
	var req dto.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.messages.Paginate(c.Request.Context(), service.MessageQuery{
		AppID:          c.Param("app_id"),
		ConversationID: c.Param("conversation_id"),
		FirstID:        req.FirstID,
		Limit:          req.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MessageHandler) CreateAnnotation(c *gin.Context) {
	var req dto.CreateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annotation, err := h.messages.CreateAnnotation(c.Request.Context(),
		c.Param("app_id"), c.Param("message_id"), req.AccountID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, annotation)
}

func (h *MessageHandler) ListAnnotations(c *gin.Context) {
	var req dto.ListAnnotationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.messages.ListAnnotations(c.Request.Context(), c.Param("app_id"), req.Page, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MessageHandler) DeleteAnnotation(c *gin.Context) {
	err := h.messages.DeleteAnnotation(c.Request.Context(), c.Param("app_id"), c.Param("annotation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
