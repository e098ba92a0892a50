package services

import (
	"context"

	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

const (
	// UserActivityLimit is the history length shown on a user's profile
	UserActivityLimit = 20
	// RecentActivityLimit is the history length shown to administrators
	RecentActivityLimit = 50
)

// ActivityLogService reads the activity history written by the backing store
type ActivityLogService struct {
	DB       *gorm.DB
	Profiles *ProfileService
}

func NewActivityLogService(db *gorm.DB, profiles *ProfileService) *ActivityLogService {
	if profiles == nil {
		profiles = NewProfileService(db)
	}
	return &ActivityLogService{DB: db, Profiles: profiles}
}

// ListForUser returns one user's most recent entries, newest first
func (s *ActivityLogService) ListForUser(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = UserActivityLimit
	}

	var logs []models.ActivityLog
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	observeOp("activity_log", "list", err)
	if err != nil {
		return nil, storeErr("fetch activity logs", err)
	}
	return logs, nil
}

// ListRecent returns the most recent entries across all users, each joined
// with the acting user's name and email
func (s *ActivityLogService) ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = RecentActivityLimit
	}

	var logs []models.ActivityLog
	err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	observeOp("activity_log", "list", err)
	if err != nil {
		return nil, storeErr("fetch activity logs", err)
	}

	if len(logs) == 0 {
		return logs, nil
	}

	ids := make([]string, 0, len(logs))
	for _, l := range logs {
		ids = append(ids, l.UserID)
	}
	refs, err := s.Profiles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range logs {
		if ref, ok := refs[logs[i].UserID]; ok {
			r := ref
			logs[i].Profile = &r
		}
	}
	return logs, nil
}
