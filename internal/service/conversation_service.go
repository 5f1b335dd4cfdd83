package service

import (
	"context"
	"errors"

	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxConversationPageSize caps one page of conversation history.
const maxConversationPageSize = 100

// ConversationPage is one page of a user's conversation history plus the
// flag telling the client whether another page exists.
type ConversationPage struct {
	Data    []domain.Conversation `json:"data"`
	Limit   int                   `json:"limit"`
	HasMore bool                  `json:"has_more"`
}

// ConversationQuery narrows a pagination walk. IncludeIDs/ExcludeIDs filter
// by pinned state; LastID resumes after a previously returned conversation.
type ConversationQuery struct {
	AppID      string
	EndUserID  string
	LastID     string
	Limit      int
	IncludeIDs []string
	ExcludeIDs []string
	SortAsc    bool
}

// ConversationService serves the conversation history surface: paginated
// listing, rename, and soft delete.
type ConversationService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewConversationService(db *gorm.DB, logger *logrus.Logger) *ConversationService {
	return &ConversationService{db: db, logger: logger}
}

// Paginate returns one page of the user's non-deleted conversations. The
// page is fetched with one extra row to decide has_more without a count
// query. LastID anchors the walk: rows before (descending) or after
// (ascending) the anchor's created_at are returned.
func (s *ConversationService) Paginate(ctx context.Context, query ConversationQuery) (*ConversationPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxConversationPageSize {
		limit = maxConversationPageSize
	}

	base := s.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("app_id = ?", query.AppID).
		Where("from_end_user_id = ?", query.EndUserID).
		Where("from_source = ?", "api").
		Where("is_deleted = ?", false)
	if len(query.IncludeIDs) > 0 {
		base = base.Where("id IN ?", query.IncludeIDs)
	}
	if len(query.ExcludeIDs) > 0 {
		base = base.Where("id NOT IN ?", query.ExcludeIDs)
	}

	if query.LastID != "" {
		var anchor domain.Conversation
		err := base.Session(&gorm.Session{}).Where("id = ?", query.LastID).First(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		if err != nil {
			return nil, err
		}
		if query.SortAsc {
			base = base.Where("created_at > ?", anchor.CreatedAt)
		} else {
			base = base.Where("created_at < ?", anchor.CreatedAt)
		}
	}

	order := "created_at DESC"
	if query.SortAsc {
		order = "created_at ASC"
	}

	var conversations []domain.Conversation
	if err := base.Order(order).Limit(limit + 1).Find(&conversations).Error; err != nil {
		return nil, err
	}

	hasMore := len(conversations) > limit
	if hasMore {
		conversations = conversations[:limit]
	}
	return &ConversationPage{Data: conversations, Limit: limit, HasMore: hasMore}, nil
}

// Get returns one non-deleted conversation owned by the user.
func (s *ConversationService) Get(ctx context.Context, appID, endUserID, conversationID string) (*domain.Conversation, error) {
	var conversation domain.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ? AND from_end_user_id = ? AND is_deleted = ?",
			conversationID, appID, endUserID, false).
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Rename sets the conversation's display name.
func (s *ConversationService) Rename(ctx context.Context, appID, endUserID, conversationID, name string) (*domain.Conversation, error) {
	conversation, err := s.Get(ctx, appID, endUserID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(conversation).Update("name", name).Error; err != nil {
		return nil, err
	}
	conversation.Name = name
	return conversation, nil
}

// Delete soft-deletes the conversation. History listings stop returning it;
// the rows stay until the app is removed.
func (s *ConversationService) Delete(ctx context.Context, appID, endUserID, conversationID string) error {
	conversation, err := s.Get(ctx, appID, endUserID, conversationID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(conversation).Update("is_deleted", true).Error
}
