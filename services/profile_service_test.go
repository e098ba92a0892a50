package services

import (
	"context"
	"testing"

	"crm_dashboard_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_FindByIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewProfileService(db)

	ada := createProfile(t, db, "Ada")
	bob := createProfile(t, db, "Bob")

	refs, err := svc.FindByIDs(ctx, []string{ada.ID, bob.ID, ada.ID, "", "ghost"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, "Ada", refs[ada.ID].Name)
	assert.Equal(t, bob.Email, refs[bob.ID].Email)

	// Cached refs are served without touching the store
	require.NoError(t, db.Exec("DELETE FROM profiles").Error)
	refs, err = svc.FindByIDs(ctx, []string{ada.ID, bob.ID})
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	svc.Invalidate(ada.ID)
	refs, err = svc.FindByIDs(ctx, []string{ada.ID, bob.ID})
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	_, ok := refs[ada.ID]
	assert.False(t, ok)

	refs, err = svc.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestProfileService_Update(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewProfileService(db)

	p := createProfile(t, db, "Margaret")

	// Warm the cache
	_, err := svc.FindByIDs(ctx, []string{p.ID})
	require.NoError(t, err)

	name := "Margaret Hamilton"
	phone := "+34 600 000 000"
	updated, err := svc.Update(ctx, p.ID, ProfileUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)

	// Updates drop the cached reference
	refs, err := svc.FindByIDs(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, name, refs[p.ID].Name)

	empty := ""
	updated, err = svc.Update(ctx, p.ID, ProfileUpdate{Phone: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Phone)

	short := "M"
	_, err = svc.Update(ctx, p.ID, ProfileUpdate{Name: &short})
	assert.True(t, IsValidationError(err))

	_, err = svc.Update(ctx, "missing", ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileService_List(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(db)

	createProfile(t, db, "Zed")
	createProfile(t, db, "Amy")

	profiles, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Amy", profiles[0].Name)
}

func TestActivityLogService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewActivityLogService(db, nil)

	ada := createProfile(t, db, "Ada")
	bob := createProfile(t, db, "Bob")

	for i := 0; i < 25; i++ {
		require.NoError(t, db.Create(&models.ActivityLog{
			UserID:     ada.ID,
			Action:     models.ActivityActionCreated,
			EntityType: "client",
		}).Error)
	}
	require.NoError(t, db.Create(&models.ActivityLog{
		UserID:     bob.ID,
		Action:     models.ActivityActionDeleted,
		EntityType: "task",
	}).Error)

	own, err := svc.ListForUser(ctx, ada.ID, 0)
	require.NoError(t, err)
	assert.Len(t, own, UserActivityLimit)
	for _, l := range own {
		assert.Equal(t, ada.ID, l.UserID)
	}

	recent, err := svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 26)
	for _, l := range recent {
		require.NotNil(t, l.Profile)
	}

	limited, err := svc.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	// Activity logs are written by the store only
	err = db.Model(&own[0]).Update("action", "tampered").Error
	assert.ErrorIs(t, err, models.ErrActivityLogImmutable)
}
