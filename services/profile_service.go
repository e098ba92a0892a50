package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm_dashboard_go/models"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const (
	profileCacheTTL     = time.Minute
	profileCacheCleanup = 5 * time.Minute
)

// ProfileService reads and updates user profiles. Batch lookups used for
// joins go through a short-lived in-process cache.
type ProfileService struct {
	DB    *gorm.DB
	cache *gocache.Cache
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		DB:    db,
		cache: gocache.New(profileCacheTTL, profileCacheCleanup),
	}
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func (u ProfileUpdate) Validate() error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if len(name) < models.ClientNameMinLength || len(name) > models.ClientNameMaxLength {
			return newValidationError("name", "name must be between 2 and 100 characters")
		}
	}
	if u.Phone != nil && len(*u.Phone) > 50 {
		return newValidationError("phone", "phone must be at most 50 characters")
	}
	return nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.WithContext(ctx).First(&profile, "id = ?", id).Error
	observeOp("profile", "get", ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch profile", err)
	}
	return &profile, nil
}

// List returns every profile ordered by name
func (s *ProfileService) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&profiles).Error
	observeOp("profile", "list", err)
	if err != nil {
		return nil, storeErr("fetch profiles", err)
	}
	return profiles, nil
}

func (s *ProfileService) Update(ctx context.Context, id string, upd ProfileUpdate) (*models.Profile, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		if phone == "" {
			updates["phone"] = nil
		} else {
			updates["phone"] = phone
		}
	}

	if len(updates) > 0 {
		result := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
		observeOp("profile", "update", result.Error)
		if result.Error != nil {
			return nil, storeErr("update profile", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
		s.cache.Delete(id)
	}

	return s.Get(ctx, id)
}

// FindByIDs resolves profile references for the given ids. Cached refs are
// served directly; the rest are fetched in a single query. Unknown ids are
// absent from the result. No query is issued when nothing is missing.
func (s *ProfileService) FindByIDs(ctx context.Context, ids []string) (map[string]models.ProfileRef, error) {
	refs := make(map[string]models.ProfileRef, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if cached, ok := s.cache.Get(id); ok {
			refs[id] = cached.(models.ProfileRef)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return refs, nil
	}

	var profiles []models.Profile
	err := s.DB.WithContext(ctx).
		Select("id", "name", "email").
		Where("id IN ?", missing).
		Find(&profiles).Error
	observeOp("profile", "batch", err)
	if err != nil {
		return nil, storeErr("fetch profiles", err)
	}

	for _, p := range profiles {
		ref := models.ProfileRef{ID: p.ID, Name: p.Name, Email: p.Email}
		refs[p.ID] = ref
		s.cache.SetDefault(p.ID, ref)
	}
	return refs, nil
}

// Invalidate drops a cached profile reference
func (s *ProfileService) Invalidate(id string) {
	s.cache.Delete(id)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
