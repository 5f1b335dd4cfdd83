package dto

import "encoding/json"

type PauseReasonDTO struct {
	Type    string `json:"type" binding:"required"`
	Message string `json:"message"`
}

type PauseRunRequest struct {
	UserID  string           `json:"user_id" binding:"required"`
	State   json.RawMessage  `json:"state" binding:"required"`
	Reasons []PauseReasonDTO `json:"reasons"`
}

type ResumeRunRequest struct {
	PauseID string `json:"pause_id" binding:"required"`
}

type DeleteRunRequest struct {
	RunID string `json:"run_id" binding:"required"`
}

type RestoreRunRequest struct {
	SchemaVersion string                              `json:"schema_version"`
	Tables        map[string][]map[string]interface{} `json:"tables" binding:"required"`
}

type RenameConversationRequest struct {
	Name string `json:"name" binding:"required"`
}

type ListConversationsRequest struct {
	UserID string `form:"user"`
	LastID string `form:"last_id"`
	Limit  int    `form:"limit,default=20"`
	SortBy string `form:"sort_by,default=-created_at"`
}

type ListMessagesRequest struct {
	FirstID string `form:"first_id"`
	Limit   int    `form:"limit,default=20"`
}

type CreateAnnotationRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type ListAnnotationsRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

type ListDocumentsRequest struct {
	DisplayStatus string `form:"display_status"`
	Keyword       string `form:"keyword"`
	Page          int    `form:"page,default=1"`
	Limit         int    `form:"limit,default=20"`
}
