package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"flowdeck/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMessage(t *testing.T, db *gorm.DB, appID, conversationID string, createdAt time.Time) *domain.Message {
	t.Helper()
	message := &domain.Message{
		ID:             uuid.NewString(),
		AppID:          appID,
		ConversationID: conversationID,
		Query:          "query",
		Answer:         "answer",
		FromSource:     "api",
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(message).Error)
	return message
}

func TestMessagePaginate(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("pages newest first with total and has_more", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		appID, conversationID := uuid.NewString(), uuid.NewString()
		for i := 0; i < 5; i++ {
			seedMessage(t, db, appID, conversationID, base.Add(time.Duration(i)*time.Minute))
		}

		page, err := svc.Paginate(ctx, MessageQuery{AppID: appID, ConversationID: conversationID, Limit: 3})
		require.NoError(t, err)
		require.Len(t, page.Data, 3)
		assert.EqualValues(t, 5, page.Total)
		assert.True(t, page.HasMore)
		assert.True(t, page.Data[0].CreatedAt.After(page.Data[1].CreatedAt))

		next, err := svc.Paginate(ctx, MessageQuery{
			AppID: appID, ConversationID: conversationID, Limit: 3,
			FirstID: page.Data[2].ID,
		})
		require.NoError(t, err)
		require.Len(t, next.Data, 2)
		assert.False(t, next.HasMore)
	})

	t.Run("unknown first_id is not found", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		_, err := svc.Paginate(ctx, MessageQuery{
			AppID: uuid.NewString(), ConversationID: uuid.NewString(), FirstID: uuid.NewString(),
		})
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("limit is capped", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		page, err := svc.Paginate(ctx, MessageQuery{
			AppID: uuid.NewString(), ConversationID: uuid.NewString(), Limit: 500,
		})
		require.NoError(t, err)
		assert.Equal(t, 100, page.Limit)
	})
}

func TestAttachExtraContents(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("serializes the human-input form of the message's run", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		appID, conversationID := uuid.NewString(), uuid.NewString()

		withForm := seedMessage(t, db, appID, conversationID, base)
		withForm.WorkflowRunID = uuid.NewString()
		require.NoError(t, db.Save(withForm).Error)
		require.NoError(t, db.Create(&domain.HumanInputForm{
			ID:              uuid.NewString(),
			TenantID:        uuid.NewString(),
			AppID:           appID,
			WorkflowRunID:   withForm.WorkflowRunID,
			NodeID:          "human-input-node",
			NodeTitle:       "Review step",
			RenderedContent: "Please approve the draft",
			ActionID:        "approve",
			ActionText:      "Approve",
			Submitted:       true,
		}).Error)
		withoutForm := seedMessage(t, db, appID, conversationID, base.Add(time.Minute))

		messages := []*domain.Message{withForm, withoutForm}
		require.NoError(t, svc.AttachExtraContents(ctx, messages))

		var contents []map[string]any
		require.NoError(t, json.Unmarshal(withForm.ExtraContents, &contents))
		require.Len(t, contents, 1)
		assert.Equal(t, "human_input", contents[0]["type"])
		assert.Equal(t, withForm.WorkflowRunID, contents[0]["workflow_run_id"])
		assert.Equal(t, true, contents[0]["submitted"])
		submission, ok := contents[0]["form_submission_data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "human-input-node", submission["node_id"])
		assert.Equal(t, "Review step", submission["node_title"])
		assert.Equal(t, "Please approve the draft", submission["rendered_content"])
		assert.Equal(t, "approve", submission["action_id"])
		assert.Equal(t, "Approve", submission["action_text"])

		// Messages without a form get an empty list, never null.
		assert.JSONEq(t, `[]`, string(withoutForm.ExtraContents))
	})

	t.Run("pagination attaches extra contents to every row", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		appID, conversationID := uuid.NewString(), uuid.NewString()
		seedMessage(t, db, appID, conversationID, base)

		page, err := svc.Paginate(ctx, MessageQuery{AppID: appID, ConversationID: conversationID})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.JSONEq(t, `[]`, string(page.Data[0].ExtraContents))
	})
}

func TestMessageAnnotations(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("create copies the message question and replaces on re-annotate", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		appID, conversationID := uuid.NewString(), uuid.NewString()
		message := seedMessage(t, db, appID, conversationID, base)
		accountID := uuid.NewString()

		annotation, err := svc.CreateAnnotation(ctx, appID, message.ID, accountID, "curated answer")
		require.NoError(t, err)
		assert.Equal(t, message.Query, annotation.Question)
		assert.Equal(t, conversationID, annotation.ConversationID)

		replaced, err := svc.CreateAnnotation(ctx, appID, message.ID, accountID, "better answer")
		require.NoError(t, err)
		assert.Equal(t, annotation.ID, replaced.ID)
		assert.Equal(t, "better answer", replaced.Content)

		var count int64
		require.NoError(t, db.Model(&domain.MessageAnnotation{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("annotating a missing message is not found", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		_, err := svc.CreateAnnotation(ctx, uuid.NewString(), uuid.NewString(), uuid.NewString(), "content")
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("list pages newest first with total", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		appID, conversationID := uuid.NewString(), uuid.NewString()
		for i := 0; i < 3; i++ {
			message := seedMessage(t, db, appID, conversationID, base.Add(time.Duration(i)*time.Minute))
			_, err := svc.CreateAnnotation(ctx, appID, message.ID, uuid.NewString(), "answer")
			require.NoError(t, err)
		}

		page, err := svc.ListAnnotations(ctx, appID, 1, 2)
		require.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.EqualValues(t, 3, page.Total)

		page, err = svc.ListAnnotations(ctx, appID, 2, 2)
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
	})

	t.Run("delete removes the row and reports missing ids", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewMessageService(db, newTestLogger())
		appID, conversationID := uuid.NewString(), uuid.NewString()
		message := seedMessage(t, db, appID, conversationID, base)
		annotation, err := svc.CreateAnnotation(ctx, appID, message.ID, uuid.NewString(), "answer")
		require.NoError(t, err)

		require.NoError(t, svc.DeleteAnnotation(ctx, appID, annotation.ID))
		err = svc.DeleteAnnotation(ctx, appID, annotation.ID)
		assert.ErrorIs(t, err, domain.ErrAnnotationNotFound)
	})
}
