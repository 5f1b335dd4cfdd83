package service

import (
	"context"
	"errors"
	"strings"

	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxSegmentPageSize caps one page of document segments.
const maxSegmentPageSize = 100

// SegmentQuery filters a segment listing within one document.
type SegmentQuery struct {
	TenantID   string
	DatasetID  string
	DocumentID string
	Status     []string
	Keyword    string
	Page       int
	Limit      int
}

// SegmentPage is one page of segments with the total count for the filter.
type SegmentPage struct {
	Data    []domain.DocumentSegment `json:"data"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	Limit   int                      `json:"limit"`
	HasMore bool                     `json:"has_more"`
}

// DatasetService serves dataset lookups, collection binding resolution, and
// segment listings.
type DatasetService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatasetService(db *gorm.DB, logger *logrus.Logger) *DatasetService {
	return &DatasetService{db: db, logger: logger}
}

func (s *DatasetService) Get(ctx context.Context, tenantID, datasetID string) (*domain.Dataset, error) {
	var dataset domain.Dataset
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", datasetID, tenantID).
		First(&dataset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDatasetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetOrCreateCollectionBinding resolves the vector collection for an
// embedding provider+model pair, creating the binding on first use. One
// binding exists per provider+model+type triple.
func (s *DatasetService) GetOrCreateCollectionBinding(ctx context.Context, providerName, modelName, collectionType string) (*domain.DatasetCollectionBinding, error) {
	if collectionType == "" {
		collectionType = "dataset"
	}

	var binding domain.DatasetCollectionBinding
	err := s.db.WithContext(ctx).
		Where("provider_name = ? AND model_name = ? AND type = ?", providerName, modelName, collectionType).
		Order("created_at ASC").
		First(&binding).Error
	if err == nil {
		return &binding, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := domain.NewDatasetCollectionBinding(providerName, modelName, collectionType)
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"provider": providerName,
		"model":    modelName,
	}).Debug("created dataset collection binding")
	return created, nil
}

// displayStatusAliases maps the legacy console values onto canonical
// display statuses. Canonical values map onto themselves.
var displayStatusAliases = map[string]string{
	"queuing":   "queuing",
	"indexing":  "indexing",
	"paused":    "paused",
	"error":     "error",
	"available": "available",
	"active":    "available",
	"enabled":   "available",
	"disabled":  "disabled",
	"archived":  "archived",
}

// NormalizeDisplayStatus resolves a display status or one of its aliases,
// case-insensitively. Unknown values normalize to "".
func NormalizeDisplayStatus(status string) string {
	return displayStatusAliases[strings.ToLower(status)]
}

// DocumentFilter is one SQL condition of a display-status filter.
type DocumentFilter struct {
	Query string
	Args  []any
}

// BuildDisplayStatusFilters returns the conditions selecting documents in
// the given canonical display status, nil for an unknown status. A display
// status is a projection over (indexing_status, enabled, archived,
// is_paused): "available" for example needs all three of completed, enabled
// and not archived.
func BuildDisplayStatusFilters(status string) []DocumentFilter {
	switch status {
	case "queuing":
		return []DocumentFilter{{Query: "indexing_status = ?", Args: []any{"waiting"}}}
	case "indexing":
		return []DocumentFilter{{Query: "indexing_status IN ?", Args: []any{[]string{"parsing", "cleaning", "splitting", "indexing"}}}}
	case "paused":
		return []DocumentFilter{{Query: "is_paused = ?", Args: []any{true}}}
	case "error":
		return []DocumentFilter{{Query: "indexing_status = ?", Args: []any{"error"}}}
	case "available":
		return []DocumentFilter{
			{Query: "indexing_status = ?", Args: []any{"completed"}},
			{Query: "enabled = ?", Args: []any{true}},
			{Query: "archived = ?", Args: []any{false}},
		}
	case "disabled":
		return []DocumentFilter{
			{Query: "indexing_status = ?", Args: []any{"completed"}},
			{Query: "enabled = ?", Args: []any{false}},
		}
	case "archived":
		return []DocumentFilter{{Query: "archived = ?", Args: []any{true}}}
	default:
		return nil
	}
}

// ApplyDisplayStatusFilter narrows a document query to the given display
// status or alias. Unknown statuses leave the query untouched.
func ApplyDisplayStatusFilter(query *gorm.DB, status string) *gorm.DB {
	for _, filter := range BuildDisplayStatusFilters(NormalizeDisplayStatus(status)) {
		query = query.Where(filter.Query, filter.Args...)
	}
	return query
}

// DocumentQuery filters a document listing within one dataset.
type DocumentQuery struct {
	TenantID      string
	DatasetID     string
	DisplayStatus string
	Keyword       string
	Page          int
	Limit         int
}

// DocumentPage is one page of documents with the total count for the filter.
type DocumentPage struct {
	Data    []domain.Document `json:"data"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	HasMore bool              `json:"has_more"`
}

// ListDocuments pages a dataset's documents ordered by (position, id), with
// optional display-status and keyword filters.
func (s *DatasetService) ListDocuments(ctx context.Context, query DocumentQuery) (*DocumentPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxSegmentPageSize {
		limit = maxSegmentPageSize
	}

	base := s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("tenant_id = ?", query.TenantID).
		Where("dataset_id = ?", query.DatasetID)
	if query.DisplayStatus != "" {
		base = ApplyDisplayStatusFilter(base, query.DisplayStatus)
	}
	if query.Keyword != "" {
		base = base.Where("name LIKE ?", "%"+query.Keyword+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var documents []domain.Document
	err := base.Order("position ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&documents).Error
	if err != nil {
		return nil, err
	}

	return &DocumentPage{
		Data:    documents,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(page*limit) < total,
	}, nil
}

// ListSegments pages a document's segments ordered by (position, id), with
// optional status and keyword filters.
func (s *DatasetService) ListSegments(ctx context.Context, query SegmentQuery) (*SegmentPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxSegmentPageSize {
		limit = maxSegmentPageSize
	}

	base := s.db.WithContext(ctx).Model(&domain.DocumentSegment{}).
		Where("tenant_id = ?", query.TenantID).
		Where("dataset_id = ?", query.DatasetID).
		Where("document_id = ?", query.DocumentID)
	if len(query.Status) > 0 {
		base = base.Where("status IN ?", query.Status)
	}
	if query.Keyword != "" {
		base = base.Where("content LIKE ?", "%"+query.Keyword+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var segments []domain.DocumentSegment
	err := base.Order("position ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&segments).Error
	if err != nil {
		return nil, err
	}

	return &SegmentPage{
		Data:    segments,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(page*limit) < total,
	}, nil
}
