package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DraftVariable holds one draft-mode workflow variable. Values above the
// inline threshold are offloaded: the row keeps a DraftVariableFile
// reference and the bytes live in an UploadFile blob.
type DraftVariable struct {
	ID         string         `gorm:"type:uuid;primaryKey"`
	AppID      string         `gorm:"type:uuid;index;not null"`
	NodeID     string         `gorm:"type:varchar(255)"`
	Name       string         `gorm:"type:varchar(255);not null"`
	Value      datatypes.JSON `gorm:"type:jsonb"`
	FileID     *string        `gorm:"type:uuid;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DraftVariable) TableName() string {
	return "workflow_draft_variables"
}

type DraftVariableFile struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	AppID        string `gorm:"type:uuid;index;not null"`
	UploadFileID string `gorm:"type:uuid;not null"`
	Size         int64  `gorm:"default:0"`
	CreatedAt    time.Time
}

func (DraftVariableFile) TableName() string {
	return "workflow_draft_variable_files"
}

type UploadFile struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	TenantID  string `gorm:"type:uuid;index"`
	Key       string `gorm:"type:varchar(255);not null"`
	Name      string `gorm:"type:varchar(255)"`
	Size      int64  `gorm:"default:0"`
	MimeType  string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (UploadFile) TableName() string {
	return "upload_files"
}
