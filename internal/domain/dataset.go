package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Dataset struct {
	ID                  string `gorm:"type:uuid;primaryKey"`
	TenantID            string `gorm:"type:uuid;index;not null"`
	Name                string `gorm:"type:varchar(255);not null"`
	Description         string `gorm:"type:text"`
	Permission          string `gorm:"type:varchar(50);default:'only_me'"`
	IndexingTechnique   string `gorm:"type:varchar(50)"`
	IndexStruct         string `gorm:"type:text"`
	CollectionBindingID string  `gorm:"type:uuid"`
	PipelineID          *string `gorm:"type:uuid"`
	CreatedBy           string  `gorm:"type:uuid"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Dataset) TableName() string {
	return "datasets"
}

type Document struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	TenantID       string         `gorm:"type:uuid;index;not null"`
	DatasetID      string         `gorm:"type:uuid;index;not null"`
	Position       int            `gorm:"default:0"`
	Name           string         `gorm:"type:varchar(255)"`
	DataSourceType string         `gorm:"type:varchar(50)"`
	DataSourceInfo datatypes.JSON `gorm:"type:jsonb"`
	IndexingStatus string         `gorm:"type:varchar(50);default:'waiting'"`
	Enabled        bool           `gorm:"default:true"`
	Archived       bool           `gorm:"default:false"`
	IsPaused       bool           `gorm:"default:false"`
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

func (Document) TableName() string {
	return "documents"
}

type DocumentSegment struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TenantID   string `gorm:"type:uuid;index;not null"`
	DatasetID  string `gorm:"type:uuid;index;not null"`
	DocumentID string `gorm:"type:uuid;index;not null"`
	Position   int    `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
	WordCount  int    `gorm:"default:0"`
	Status     string `gorm:"type:varchar(50);default:'waiting'"`
	Enabled    bool   `gorm:"default:true"`
	CreatedAt  time.Time
}

func (DocumentSegment) TableName() string {
	return "document_segments"
}

// DatasetCollectionBinding maps an embedding provider+model pair to its
// vector collection. One binding exists per provider+model+type triple;
// lookup is get-or-create.
type DatasetCollectionBinding struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	ProviderName   string `gorm:"type:varchar(255);not null"`
	ModelName      string `gorm:"type:varchar(255);not null"`
	Type           string `gorm:"type:varchar(50);not null;default:'dataset'"`
	CollectionName string `gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time
}

func (DatasetCollectionBinding) TableName() string {
	return "dataset_collection_bindings"
}

func NewDatasetCollectionBinding(providerName, modelName, collectionType string) *DatasetCollectionBinding {
	id := uuid.NewString()
	return &DatasetCollectionBinding{
		ID:             id,
		ProviderName:   providerName,
		ModelName:      modelName,
		Type:           collectionType,
		CollectionName: "Vector_index_" + id + "_Node",
		CreatedAt:      time.Now().UTC(),
	}
}

type DatasetProcessRule struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	DatasetID string         `gorm:"type:uuid;index;not null"`
	Mode      string         `gorm:"type:varchar(50);default:'automatic'"`
	Rules     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (DatasetProcessRule) TableName() string {
	return "dataset_process_rules"
}

type DatasetQuery struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	DatasetID     string `gorm:"type:uuid;index;not null"`
	Content       string `gorm:"type:text;not null"`
	Source        string `gorm:"type:varchar(50)"`
	CreatedByRole CreatorRole `gorm:"type:varchar(20)"`
	CreatedBy     string      `gorm:"type:uuid"`
	CreatedAt     time.Time
}

func (DatasetQuery) TableName() string {
	return "dataset_queries"
}

// Pipeline is the RAG ingestion pipeline attached to a dataset; deleting a
// dataset with a pipeline also removes the pipeline's workflow definition.
type Pipeline struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TenantID   string `gorm:"type:uuid;index;not null"`
	WorkflowID string `gorm:"type:uuid"`
	Name       string `gorm:"type:varchar(255)"`
	CreatedAt  time.Time
}

func (Pipeline) TableName() string {
	return "pipelines"
}

// Workflow is the graph definition a run executes against.
type Workflow struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	TenantID  string         `gorm:"type:uuid;index;not null"`
	AppID     string         `gorm:"type:uuid;index"`
	Type      string         `gorm:"type:varchar(50)"`
	Version   string         `gorm:"type:varchar(50)"`
	Graph     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (Workflow) TableName() string {
	return "workflows"
}

// SegmentAttachmentBinding links a document segment to an uploaded
// attachment file; both the binding and the file row cascade with the
// dataset.
type SegmentAttachmentBinding struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	TenantID     string `gorm:"type:uuid;index;not null"`
	DatasetID    string `gorm:"type:uuid;index;not null"`
	SegmentID    string `gorm:"type:uuid;index;not null"`
	AttachmentID string `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

func (SegmentAttachmentBinding) TableName() string {
	return "segment_attachment_bindings"
}
