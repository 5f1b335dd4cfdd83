package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type App struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	TenantID  string `gorm:"type:uuid;index;not null"`
	Name      string `gorm:"type:varchar(255);not null"`
	Mode      string `gorm:"type:varchar(50);not null"`
	Status    string `gorm:"type:varchar(50);default:'normal'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (App) TableName() string {
	return "apps"
}

// EndUser identifies an application consumer. Rows are keyed by the
// tenant+app+session natural key; get-or-create is idempotent on it.
type EndUser struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	TenantID       string `gorm:"type:uuid;index;not null"`
	AppID          string `gorm:"type:uuid;index;not null"`
	Type           string `gorm:"type:varchar(50);not null"`
	ExternalUserID string `gorm:"type:varchar(255)"`
	SessionID      string `gorm:"type:varchar(255);index;not null"`
	IsAnonymous    bool   `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (EndUser) TableName() string {
	return "end_users"
}

type Conversation struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	AppID         string `gorm:"type:uuid;index;not null"`
	Name          string `gorm:"type:varchar(255)"`
	Status        string `gorm:"type:varchar(50);default:'normal'"`
	FromSource    string `gorm:"type:varchar(50);not null"`
	FromEndUserID string `gorm:"type:uuid;index"`
	FromAccountID string `gorm:"type:uuid;index"`
	IsDeleted     bool   `gorm:"default:false"`
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func NewConversation(appID, fromSource, fromEndUserID, fromAccountID string) *Conversation {
	return &Conversation{
		ID:            uuid.NewString(),
		AppID:         appID,
		FromSource:    fromSource,
		FromEndUserID: fromEndUserID,
		FromAccountID: fromAccountID,
		CreatedAt:     time.Now().UTC(),
	}
}

type Message struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	AppID          string         `gorm:"type:uuid;index;not null"`
	ConversationID string         `gorm:"type:uuid;index;not null"`
	WorkflowRunID  string         `gorm:"type:uuid;index"`
	Query          string         `gorm:"type:text"`
	Answer         string         `gorm:"type:text"`
	ExtraContents  datatypes.JSON `gorm:"type:jsonb"`
	FromSource     string         `gorm:"type:varchar(50)"`
	FromEndUserID  string         `gorm:"type:uuid"`
	FromAccountID  string         `gorm:"type:uuid"`
	CreatedAt      time.Time      `gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}

// HumanInputForm is the form rendered for a human-input pause of a
// message's workflow run. Submitted flips once the user completes it;
// ActionID/ActionText record which action the user took.
type HumanInputForm struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	TenantID        string `gorm:"type:uuid;index;not null"`
	AppID           string `gorm:"type:uuid;index"`
	WorkflowRunID   string `gorm:"type:uuid;index;not null"`
	NodeID          string `gorm:"type:varchar(255);not null"`
	NodeTitle       string `gorm:"type:varchar(255)"`
	RenderedContent string `gorm:"type:text"`
	ActionID        string `gorm:"type:varchar(255)"`
	ActionText      string `gorm:"type:varchar(255)"`
	Submitted       bool   `gorm:"default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (HumanInputForm) TableName() string {
	return "human_input_forms"
}

type MessageAnnotation struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	AppID          string `gorm:"type:uuid;index;not null"`
	ConversationID string `gorm:"type:uuid;index"`
	MessageID      string `gorm:"type:uuid;index"`
	Question       string `gorm:"type:text"`
	Content        string `gorm:"type:text;not null"`
	AccountID      string `gorm:"type:uuid;not null"`
	HitCount       int    `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MessageAnnotation) TableName() string {
	return "message_annotations"
}
