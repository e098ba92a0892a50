package handlers

import (
	"net/http"
	"testing"
	"time"

	"crm_dashboard_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionHandlers(t *testing.T) {
	s := setupServer(t)
	client := s.createClient(t, models.Client{Name: "Acme Corp"})
	base := "/api/clients/" + client.ID + "/interactions"

	rec := s.doJSON(http.MethodPost, base, `{"type":"Call","note":"Intro call"}`)
	requireStatus(t, rec, http.StatusCreated)
	var created models.Interaction
	decode(t, rec, &created)
	assert.Equal(t, client.ID, created.ClientID)
	assert.Equal(t, s.user.ID, created.UserID)
	require.NotNil(t, created.Author)
	assert.Equal(t, "Ada Lovelace", created.Author.Name)

	rec = s.doJSON(http.MethodPost, base, `{"type":"Email","note":"Sent pricing"}`)
	requireStatus(t, rec, http.StatusCreated)

	t.Run("validation", func(t *testing.T) {
		rec := s.doJSON(http.MethodPost, base, `{"type":"Fax","note":"x"}`)
		requireStatus(t, rec, http.StatusBadRequest)

		rec = s.doJSON(http.MethodPost, "/api/clients/missing/interactions", `{"type":"Call","note":"x"}`)
		requireStatus(t, rec, http.StatusNotFound)
	})

	t.Run("list and filter", func(t *testing.T) {
		rec := s.doJSON(http.MethodGet, base, "")
		requireStatus(t, rec, http.StatusOK)
		var list []models.Interaction
		decode(t, rec, &list)
		assert.Len(t, list, 2)

		rec = s.doJSON(http.MethodGet, base+"?type=Call", "")
		requireStatus(t, rec, http.StatusOK)
		decode(t, rec, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "Intro call", list[0].Note)

		today := time.Now().UTC().Format("2006-01-02")
		rec = s.doJSON(http.MethodGet, base+"?date_from="+today+"&date_to="+today, "")
		requireStatus(t, rec, http.StatusOK)
		decode(t, rec, &list)
		assert.Len(t, list, 2)

		rec = s.doJSON(http.MethodGet, base+"?date_from=yesterday", "")
		requireStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("update and delete", func(t *testing.T) {
		rec := s.doJSON(http.MethodPut, "/api/interactions/"+created.ID, `{"type":"Meeting","note":"Moved to meeting"}`)
		requireStatus(t, rec, http.StatusOK)
		var updated models.Interaction
		decode(t, rec, &updated)
		assert.Equal(t, models.InteractionTypeMeeting, updated.Type)

		rec = s.doJSON(http.MethodDelete, "/api/interactions/"+created.ID, "")
		requireStatus(t, rec, http.StatusOK)

		// Deleting a missing interaction succeeds
		rec = s.doJSON(http.MethodDelete, "/api/interactions/"+created.ID, "")
		requireStatus(t, rec, http.StatusOK)

		rec = s.doJSON(http.MethodPut, "/api/interactions/"+created.ID, `{"type":"Call","note":"x"}`)
		requireStatus(t, rec, http.StatusNotFound)
	})
}
