package service

import (
	"context"
	"errors"
	"time"

	"flowdeck/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// anonymousSessionID is assigned when the caller provides no user
// identifier, so all anonymous traffic for an app shares one end user row.
const anonymousSessionID = "DEFAULT-USER"

// EndUserService resolves API callers to end user rows by the
// tenant+app+session natural key.
type EndUserService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewEndUserService(db *gorm.DB, logger *logrus.Logger) *EndUserService {
	return &EndUserService{db: db, logger: logger}
}

// GetOrCreate returns the end user for the given session, creating the row
// on first sight. An empty userID maps to the shared anonymous session.
// Rows created by older releases under the legacy "browser" type are
// upgraded to "service_api" in place.
func (s *EndUserService) GetOrCreate(ctx context.Context, tenantID, appID, userID string) (*domain.EndUser, error) {
	sessionID := userID
	isAnonymous := false
	if sessionID == "" {
		sessionID = anonymousSessionID
		isAnonymous = true
	}

	var endUser domain.EndUser
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND app_id = ? AND session_id = ?", tenantID, appID, sessionID).
		First(&endUser).Error
	if err == nil {
		if endUser.Type == "browser" {
			if err := s.db.WithContext(ctx).Model(&endUser).Update("type", "service_api").Error; err != nil {
				return nil, err
			}
			endUser.Type = "service_api"
		}
		return &endUser, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	endUser = domain.EndUser{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		AppID:          appID,
		Type:           "service_api",
		ExternalUserID: userID,
		SessionID:      sessionID,
		IsAnonymous:    isAnonymous,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&endUser).Error; err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"app_id":     appID,
		"session_id": sessionID,
	}).Debug("created end user")
	return &endUser, nil
}
