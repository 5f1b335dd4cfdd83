package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flowdeck/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxMessagePageSize caps one page of a conversation's messages.
const maxMessagePageSize = 100

// MessagePage is one page of a conversation's messages, newest first, with
// the total for the conversation.
type MessagePage struct {
	Data    []domain.Message `json:"data"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	HasMore bool             `json:"has_more"`
}

// MessageQuery narrows a message pagination walk within one conversation.
// FirstID resumes before a previously returned message.
type MessageQuery struct {
	AppID          string
	ConversationID string
	FirstID        string
	Limit          int
}

// AnnotationPage is one offset-paged slice of an app's annotations.
type AnnotationPage struct {
	Data  []domain.MessageAnnotation `json:"data"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

// formSubmissionData mirrors the payload the chat frontend renders inline
// for a human-input form.
type formSubmissionData struct {
	NodeID          string `json:"node_id"`
	NodeTitle       string `json:"node_title"`
	RenderedContent string `json:"rendered_content"`
	ActionID        string `json:"action_id"`
	ActionText      string `json:"action_text"`
}

type messageExtraContent struct {
	Type               string             `json:"type"`
	WorkflowRunID      string             `json:"workflow_run_id"`
	Submitted          bool               `json:"submitted"`
	FormSubmissionData formSubmissionData `json:"form_submission_data"`
}

// MessageService serves conversation messages: pagination, human-input
// extra contents, and annotation CRUD.
type MessageService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewMessageService(db *gorm.DB, logger *logrus.Logger) *MessageService {
	return &MessageService{db: db, logger: logger}
}

// Paginate returns one page of a conversation's messages, newest first,
// with human-input extra contents attached. FirstID anchors the walk at the
// oldest message the client already holds.
func (s *MessageService) Paginate(ctx context.Context, query MessageQuery) (*MessagePage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	base := s.db.WithContext(ctx).Model(&domain.Message{}).
		Where("app_id = ?", query.AppID).
		Where("conversation_id = ?", query.ConversationID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	if query.FirstID != "" {
		var anchor domain.Message
		err := base.Session(&gorm.Session{}).Where("id = ?", query.FirstID).First(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		if err != nil {
			return nil, err
		}
		base = base.Where("created_at < ?", anchor.CreatedAt)
	}

	var messages []domain.Message
	if err := base.Order("created_at DESC").Limit(limit + 1).Find(&messages).Error; err != nil {
		return nil, err
	}
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	pointers := make([]*domain.Message, len(messages))
	for i := range messages {
		pointers[i] = &messages[i]
	}
	if err := s.AttachExtraContents(ctx, pointers); err != nil {
		return nil, err
	}

	return &MessagePage{Data: messages, Total: total, Limit: limit, HasMore: hasMore}, nil
}

// Get returns one message of the conversation.
func (s *MessageService) Get(ctx context.Context, appID, conversationID, messageID string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ? AND conversation_id = ?", messageID, appID, conversationID).
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// AttachExtraContents fills each message's extra_contents with the
// human-input forms of its workflow run. Messages without a form get an
// empty list, never null: the frontend iterates the field unconditionally.
func (s *MessageService) AttachExtraContents(ctx context.Context, messages []*domain.Message) error {
	runIDs := make([]string, 0, len(messages))
	for _, message := range messages {
		if message.WorkflowRunID != "" {
			runIDs = append(runIDs, message.WorkflowRunID)
		}
	}

	formsByRun := make(map[string][]domain.HumanInputForm)
	if len(runIDs) > 0 {
		var forms []domain.HumanInputForm
		err := s.db.WithContext(ctx).
			Where("workflow_run_id IN ?", runIDs).
			Order("created_at ASC").
			Find(&forms).Error
		if err != nil {
			return err
		}
		for _, form := range forms {
			formsByRun[form.WorkflowRunID] = append(formsByRun[form.WorkflowRunID], form)
		}
	}

	for _, message := range messages {
		contents := make([]messageExtraContent, 0)
		for _, form := range formsByRun[message.WorkflowRunID] {
			contents = append(contents, messageExtraContent{
				Type:          "human_input",
				WorkflowRunID: message.WorkflowRunID,
				Submitted:     form.Submitted,
				FormSubmissionData: formSubmissionData{
					NodeID:          form.NodeID,
					NodeTitle:       form.NodeTitle,
					RenderedContent: form.RenderedContent,
					ActionID:        form.ActionID,
					ActionText:      form.ActionText,
				},
			})
		}
		serialized, err := json.Marshal(contents)
		if err != nil {
			return err
		}
		message.ExtraContents = serialized
	}
	return nil
}

// CreateAnnotation records a curated answer for a message. A message keeps
// at most one annotation; annotating again replaces the content.
func (s *MessageService) CreateAnnotation(ctx context.Context, appID, messageID, accountID, content string) (*domain.MessageAnnotation, error) {
	var message domain.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ?", messageID, appID).
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	var annotation domain.MessageAnnotation
	err = s.db.WithContext(ctx).
		Where("message_id = ?", message.ID).
		First(&annotation).Error
	if err == nil {
		updates := map[string]any{"content": content, "account_id": accountID, "updated_at": time.Now().UTC()}
		if err := s.db.WithContext(ctx).Model(&annotation).Updates(updates).Error; err != nil {
			return nil, err
		}
		annotation.Content = content
		annotation.AccountID = accountID
		return &annotation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	annotation = domain.MessageAnnotation{
		ID:             uuid.NewString(),
		AppID:          appID,
		ConversationID: message.ConversationID,
		MessageID:      message.ID,
		Question:       message.Query,
		Content:        content,
		AccountID:      accountID,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&annotation).Error; err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"app_id":     appID,
		"message_id": message.ID,
	}).Debug("created message annotation")
	return &annotation, nil
}

// ListAnnotations pages an app's annotations, newest first.
func (s *MessageService) ListAnnotations(ctx context.Context, appID string, page, limit int) (*AnnotationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	base := s.db.WithContext(ctx).Model(&domain.MessageAnnotation{}).
		Where("app_id = ?", appID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var annotations []domain.MessageAnnotation
	err := base.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&annotations).Error
	if err != nil {
		return nil, err
	}
	return &AnnotationPage{Data: annotations, Total: total, Page: page, Limit: limit}, nil
}

// DeleteAnnotation removes one annotation of the app.
func (s *MessageService) DeleteAnnotation(ctx context.Context, appID, annotationID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ?", annotationID, appID).
		Delete(&domain.MessageAnnotation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAnnotationNotFound
	}
	return nil
}
