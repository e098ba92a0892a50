package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crm_dashboard_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n InteractionNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestInteractionService_Create(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createProfile(t, db, "Grace")
	client := createClient(t, db, models.Client{Name: "Acme Corp", Email: "hello@acme.com"})

	t.Run("notifies with client and author details", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.Anything, InteractionNotification{
			ClientName:      "Acme Corp",
			ClientEmail:     "hello@acme.com",
			InteractionType: models.InteractionTypeMeeting,
			InteractionNote: "Quarterly review",
			UserName:        "Grace",
		}).Return(nil).Once()

		dispatcher := NewDispatcher(notifier)
		svc := NewInteractionService(db, nil, dispatcher)

		interaction, err := svc.Create(ctx, InteractionInput{
			ClientID: client.ID,
			Type:     models.InteractionTypeMeeting,
			Note:     "  Quarterly review  ",
			UserID:   author.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "Quarterly review", interaction.Note)
		require.NotNil(t, interaction.Author)
		assert.Equal(t, "Grace", interaction.Author.Name)

		dispatcher.Wait()
		notifier.AssertExpectations(t)
	})

	t.Run("notification failure keeps the interaction", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		dispatcher := NewDispatcher(notifier)
		svc := NewInteractionService(db, nil, dispatcher)

		interaction, err := svc.Create(ctx, InteractionInput{
			ClientID: client.ID,
			Type:     models.InteractionTypeCall,
			Note:     "Follow-up call",
			UserID:   author.ID,
		})
		require.NoError(t, err)
		dispatcher.Wait()
		notifier.AssertExpectations(t)

		list, err := svc.ListByClient(ctx, client.ID)
		require.NoError(t, err)
		found := false
		for _, i := range list {
			if i.ID == interaction.ID {
				found = true
			}
		}
		assert.True(t, found, "interaction must be listed after a failed notification")
	})

	t.Run("unknown author is reported by name fallback", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n InteractionNotification) bool {
			return n.UserName == UnknownUserName
		})).Return(nil).Once()

		dispatcher := NewDispatcher(notifier)
		svc := NewInteractionService(db, nil, dispatcher)

		_, err := svc.Create(ctx, InteractionInput{
			ClientID: client.ID,
			Type:     models.InteractionTypeNote,
			Note:     "Left a note",
			UserID:   "no-such-profile",
		})
		require.NoError(t, err)
		dispatcher.Wait()
		notifier.AssertExpectations(t)
	})

	t.Run("works without a dispatcher", func(t *testing.T) {
		svc := NewInteractionService(db, nil, nil)
		_, err := svc.Create(ctx, InteractionInput{
			ClientID: client.ID,
			Type:     models.InteractionTypeEmail,
			Note:     "Sent proposal",
			UserID:   author.ID,
		})
		assert.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewInteractionService(db, nil, nil)

		_, err := svc.Create(ctx, InteractionInput{ClientID: client.ID, Type: "Fax", Note: "x", UserID: author.ID})
		assert.True(t, IsValidationError(err))

		_, err = svc.Create(ctx, InteractionInput{ClientID: client.ID, Type: models.InteractionTypeCall, Note: "   ", UserID: author.ID})
		assert.True(t, IsValidationError(err))

		_, err = svc.Create(ctx, InteractionInput{
			ClientID: client.ID,
			Type:     models.InteractionTypeCall,
			Note:     strings.Repeat("a", InteractionNoteMaxLength+1),
			UserID:   author.ID,
		})
		assert.True(t, IsValidationError(err))

		_, err = svc.Create(ctx, InteractionInput{ClientID: "missing", Type: models.InteractionTypeCall, Note: "x", UserID: author.ID})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInteractionService_ListUpdateDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	ada := createProfile(t, db, "Ada")
	bob := createProfile(t, db, "Bob")
	client := createClient(t, db, models.Client{Name: "Globex"})
	other := createClient(t, db, models.Client{Name: "Initech"})

	svc := NewInteractionService(db, nil, nil)

	first, err := svc.Create(ctx, InteractionInput{ClientID: client.ID, Type: models.InteractionTypeCall, Note: "first", UserID: ada.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, InteractionInput{ClientID: client.ID, Type: models.InteractionTypeEmail, Note: "second", UserID: bob.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, InteractionInput{ClientID: other.ID, Type: models.InteractionTypeNote, Note: "elsewhere", UserID: ada.ID})
	require.NoError(t, err)

	list, err := svc.ListByClient(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, i := range list {
		assert.Equal(t, client.ID, i.ClientID)
		require.NotNil(t, i.Author)
	}
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt), "newest first")

	empty, err := svc.ListByClient(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	updated, err := svc.Update(ctx, first.ID, InteractionUpdate{Type: models.InteractionTypeMeeting, Note: "moved to a meeting"})
	require.NoError(t, err)
	assert.Equal(t, models.InteractionTypeMeeting, updated.Type)
	assert.Equal(t, "moved to a meeting", updated.Note)

	_, err = svc.Update(ctx, "missing", InteractionUpdate{Type: models.InteractionTypeCall, Note: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing interaction succeeds
	assert.NoError(t, svc.Delete(ctx, first.ID))
	assert.NoError(t, svc.Delete(ctx, "never-existed"))
}
