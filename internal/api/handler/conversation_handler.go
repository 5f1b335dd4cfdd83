package handler

import (
	"net/http"

	"flowdeck/internal/api/dto"
	"flowdeck/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler serves the end-user conversation history surface.
// The end user is resolved from the `user` query parameter.
type ConversationHandler struct {
	conversations *service.ConversationService
	endUsers      *service.EndUserService
}

func NewConversationHandler(conversations *service.ConversationService, endUsers *service.EndUserService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, endUsers: endUsers}
}

func (h *ConversationHandler) List(c *gin.Context) {
	var req dto.ListConversationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.Param("tenant_id")
	appID := c.Param("app_id")
	endUser, err := h.endUsers.GetOrCreate(c.Request.Context(), tenantID, appID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := h.conversations.Paginate(c.Request.Context(), service.ConversationQuery{
		AppID:     appID,
		EndUserID: endUser.ID,
		LastID:    req.LastID,
		Limit:     req.Limit,
		SortAsc:   req.SortBy == "created_at",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	var req dto.RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.Param("tenant_id")
	appID := c.Param("app_id")
	endUser, err := h.endUsers.GetOrCreate(c.Request.Context(), tenantID, appID, c.Query("user"))
	if err != nil {
		respondError(c, err)
		return
	}

	conversation, err := h.conversations.Rename(c.Request.Context(), appID, endUser.ID, c.Param("conversation_id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	appID := c.Param("app_id")
	endUser, err := h.endUsers.GetOrCreate(c.Request.Context(), tenantID, appID, c.Query("user"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.conversations.Delete(c.Request.Context(), appID, endUser.ID, c.Param("conversation_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
