package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

// InteractionNoteMaxLength caps the note text of an interaction
const InteractionNoteMaxLength = 5000

// InteractionInput is the payload for logging an interaction
type InteractionInput struct {
	ClientID string `json:"client_id"`
	Type     string `json:"type"`
	Note     string `json:"note"`
	UserID   string `json:"-"`
}

func (in InteractionInput) Validate() error {
	if in.ClientID == "" {
		return newValidationError("client_id", "client is required")
	}
	if in.UserID == "" {
		return newValidationError("user_id", "acting user is required")
	}
	return validateInteractionFields(in.Type, in.Note)
}

// InteractionUpdate changes the type and note of an interaction
type InteractionUpdate struct {
	Type string `json:"type"`
	Note string `json:"note"`
}

func (u InteractionUpdate) Validate() error {
	return validateInteractionFields(u.Type, u.Note)
}

func validateInteractionFields(typ, note string) error {
	if !models.IsValidInteractionType(typ) {
		return newValidationError("type", "type must be one of Email, Call, Meeting, Note")
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return newValidationError("note", "note is required")
	}
	if len(note) > InteractionNoteMaxLength {
		return newValidationError("note", "note must be at most 5000 characters")
	}
	return nil
}

// InteractionService is the repository for client interactions
type InteractionService struct {
	DB         *gorm.DB
	Profiles   *ProfileService
	Dispatcher *Dispatcher
}

func NewInteractionService(db *gorm.DB, profiles *ProfileService, dispatcher *Dispatcher) *InteractionService {
	if profiles == nil {
		profiles = NewProfileService(db)
	}
	return &InteractionService{DB: db, Profiles: profiles, Dispatcher: dispatcher}
}

// ListByClient returns a client's interactions, newest first, each joined with
// its author's profile in one batched lookup
func (s *InteractionService) ListByClient(ctx context.Context, clientID string) ([]models.Interaction, error) {
	var interactions []models.Interaction
	err := s.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&interactions).Error
	observeOp("interaction", "list", err)
	if err != nil {
		return nil, storeErr("fetch interactions", err)
	}

	if err := s.enrich(ctx, interactions); err != nil {
		return nil, err
	}
	return interactions, nil
}

func (s *InteractionService) Get(ctx context.Context, id string) (*models.Interaction, error) {
	var interaction models.Interaction
	err := s.DB.WithContext(ctx).First(&interaction, "id = ?", id).Error
	observeOp("interaction", "get", ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch interaction", err)
	}

	list := []models.Interaction{interaction}
	if err := s.enrich(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create stores an interaction and then dispatches the notification.
// The notification outcome never affects the returned interaction.
func (s *InteractionService) Create(ctx context.Context, in InteractionInput) (*models.Interaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var client models.Client
	err := s.DB.WithContext(ctx).Select("id", "name", "email").First(&client, "id = ?", in.ClientID).Error
	if err != nil {
		observeOp("interaction", "create", ignoreNotFound(err))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch client", err)
	}

	interaction := &models.Interaction{
		ClientID: in.ClientID,
		Type:     in.Type,
		Note:     strings.TrimSpace(in.Note),
		UserID:   in.UserID,
	}
	err = s.DB.WithContext(ctx).Create(interaction).Error
	observeOp("interaction", "create", err)
	if err != nil {
		return nil, storeErr("create interaction", err)
	}

	refs, err := s.Profiles.FindByIDs(ctx, []string{in.UserID})
	if err != nil {
		log.Printf("[WARNING] Failed to resolve author %s for interaction %s: %v", in.UserID, interaction.ID, err)
	} else if ref, ok := refs[in.UserID]; ok {
		r := ref
		interaction.Author = &r
	}

	s.Dispatcher.Dispatch(InteractionNotification{
		ClientName:      client.Name,
		ClientEmail:     client.Email,
		InteractionType: interaction.Type,
		InteractionNote: interaction.Note,
		UserName:        interaction.Author.DisplayName(UnknownUserName),
	})

	return interaction, nil
}

// Update changes the type and note of an interaction
func (s *InteractionService) Update(ctx context.Context, id string, upd InteractionUpdate) (*models.Interaction, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	result := s.DB.WithContext(ctx).Model(&models.Interaction{}).Where("id = ?", id).Updates(map[string]interface{}{
		"type": upd.Type,
		"note": strings.TrimSpace(upd.Note),
	})
	observeOp("interaction", "update", result.Error)
	if result.Error != nil {
		return nil, storeErr("update interaction", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes an interaction. Deleting a missing interaction succeeds.
func (s *InteractionService) Delete(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Delete(&models.Interaction{}, "id = ?", id).Error
	observeOp("interaction", "delete", err)
	if err != nil {
		return storeErr("delete interaction", err)
	}
	return nil
}

func (s *InteractionService) enrich(ctx context.Context, interactions []models.Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(interactions))
	for _, i := range interactions {
		ids = append(ids, i.UserID)
	}

	refs, err := s.Profiles.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range interactions {
		if ref, ok := refs[interactions[i].UserID]; ok {
			r := ref
			interactions[i].Author = &r
		}
	}
	return nil
}
