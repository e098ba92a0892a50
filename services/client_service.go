package services

import (
	"context"
	"errors"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

// ClientInput is the payload for creating a client
type ClientInput struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          *string  `json:"phone"`
	Country        string   `json:"country"`
	Industry       string   `json:"industry"`
	Status         string   `json:"status"`
	Revenue        *float64 `json:"revenue"`
	Notes          *string  `json:"notes"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AssignedUserID *string  `json:"assigned_user_id"`

	// LastContact overrides the creation stamp; set by imports only
	LastContact *time.Time `json:"-"`
}

// Validate checks the input against the client field rules
func (in ClientInput) Validate() error {
	if err := validateClientName(in.Name); err != nil {
		return err
	}
	if err := validateClientEmail(in.Email); err != nil {
		return err
	}
	if err := validateCategory("country", in.Country); err != nil {
		return err
	}
	if err := validateCategory("industry", in.Industry); err != nil {
		return err
	}
	if in.Status != "" && !models.IsValidClientStatus(in.Status) {
		return newValidationError("status", "invalid status")
	}
	if in.Revenue != nil {
		if err := validateRevenue(*in.Revenue); err != nil {
			return err
		}
	}
	if err := validateNotes(in.Notes); err != nil {
		return err
	}
	return validateCoordinates(in.Latitude, in.Longitude)
}

// ClientUpdate is a partial client update. Nil fields are left unchanged.
type ClientUpdate struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Phone          *string  `json:"phone"`
	Country        *string  `json:"country"`
	Industry       *string  `json:"industry"`
	Status         *string  `json:"status"`
	Revenue        *float64 `json:"revenue"`
	Notes          *string  `json:"notes"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AssignedUserID *string  `json:"assigned_user_id"`
}

func (u ClientUpdate) Validate() error {
	if u.Name != nil {
		if err := validateClientName(*u.Name); err != nil {
			return err
		}
	}
	if u.Email != nil {
		if err := validateClientEmail(*u.Email); err != nil {
			return err
		}
	}
	if u.Country != nil {
		if err := validateCategory("country", *u.Country); err != nil {
			return err
		}
	}
	if u.Industry != nil {
		if err := validateCategory("industry", *u.Industry); err != nil {
			return err
		}
	}
	if u.Status != nil && !models.IsValidClientStatus(*u.Status) {
		return newValidationError("status", "invalid status")
	}
	if u.Revenue != nil {
		if err := validateRevenue(*u.Revenue); err != nil {
			return err
		}
	}
	if err := validateNotes(u.Notes); err != nil {
		return err
	}
	return validateCoordinates(u.Latitude, u.Longitude)
}

func (u ClientUpdate) apply(c *models.Client) {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		c.Email = strings.TrimSpace(*u.Email)
	}
	if u.Phone != nil {
		c.Phone = emptyToNil(*u.Phone)
	}
	if u.Country != nil {
		c.Country = strings.TrimSpace(*u.Country)
	}
	if u.Industry != nil {
		c.Industry = strings.TrimSpace(*u.Industry)
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.Revenue != nil {
		c.Revenue = *u.Revenue
	}
	if u.Notes != nil {
		c.Notes = emptyToNil(*u.Notes)
	}
	if u.Latitude != nil {
		c.Latitude = u.Latitude
	}
	if u.Longitude != nil {
		c.Longitude = u.Longitude
	}
	if u.AssignedUserID != nil {
		c.AssignedUserID = emptyToNil(*u.AssignedUserID)
	}
}

// ClientQuery narrows a client list
type ClientQuery struct {
	// Limit caps the rows returned, most recent first. Zero means no cap.
	Limit int
	// SkipEnrich leaves AssignedUser unset, avoiding the profile lookup
	SkipEnrich bool
}

// ClientService is the repository for clients. Successful writes are
// forwarded to the change publisher when one is set.
type ClientService struct {
	DB        *gorm.DB
	Profiles  *ProfileService
	Publisher ChangePublisher
	now       func() time.Time
}

func NewClientService(db *gorm.DB, profiles *ProfileService, publisher ChangePublisher) *ClientService {
	if profiles == nil {
		profiles = NewProfileService(db)
	}
	return &ClientService{DB: db, Profiles: profiles, Publisher: publisher, now: time.Now}
}

// List returns clients ordered by creation time, newest first
func (s *ClientService) List(ctx context.Context, q ClientQuery) ([]models.Client, error) {
	var clients []models.Client
	query := s.DB.WithContext(ctx).Order("created_at DESC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	err := query.Find(&clients).Error
	observeOp("client", "list", err)
	if err != nil {
		return nil, storeErr("fetch clients", err)
	}

	if !q.SkipEnrich {
		if err := s.enrich(ctx, clients); err != nil {
			return nil, err
		}
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	err := s.DB.WithContext(ctx).First(&client, "id = ?", id).Error
	observeOp("client", "get", ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch client", err)
	}

	list := []models.Client{client}
	if err := s.enrich(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create validates and stores a new client. Without an explicit assignee the
// client is assigned to the acting user. LastContact is stamped with now
// unless the input carries one.
func (s *ClientService) Create(ctx context.Context, in ClientInput, actingUserID string) (*models.Client, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	client := &models.Client{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Country:     strings.TrimSpace(in.Country),
		Industry:    strings.TrimSpace(in.Industry),
		Status:      in.Status,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		LastContact: &now,
	}
	if in.LastContact != nil {
		lastContact := *in.LastContact
		client.LastContact = &lastContact
	}
	if in.Phone != nil {
		client.Phone = emptyToNil(*in.Phone)
	}
	if in.Notes != nil {
		client.Notes = emptyToNil(*in.Notes)
	}
	if in.Revenue != nil {
		client.Revenue = *in.Revenue
	}
	if in.AssignedUserID != nil {
		client.AssignedUserID = emptyToNil(*in.AssignedUserID)
	} else if actingUserID != "" {
		assignee := actingUserID
		client.AssignedUserID = &assignee
	}

	err := s.DB.WithContext(ctx).Create(client).Error
	observeOp("client", "create", err)
	if err != nil {
		return nil, storeErr("create client", err)
	}

	publishChange(ctx, s.Publisher, models.ChangeEvent{
		Type:  models.ChangeInsert,
		Table: ClientsTable,
		New:   copyClient(client),
	})
	return client, nil
}

// Update applies a partial update and returns the stored client
func (s *ClientService) Update(ctx context.Context, id string, upd ClientUpdate) (*models.Client, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	var old models.Client
	err := s.DB.WithContext(ctx).First(&old, "id = ?", id).Error
	if err != nil {
		observeOp("client", "update", ignoreNotFound(err))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch client", err)
	}

	updated := old
	upd.apply(&updated)

	err = s.DB.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":             updated.Name,
		"email":            updated.Email,
		"phone":            updated.Phone,
		"country":          updated.Country,
		"industry":         updated.Industry,
		"status":           updated.Status,
		"revenue":          updated.Revenue,
		"notes":            updated.Notes,
		"latitude":         updated.Latitude,
		"longitude":        updated.Longitude,
		"assigned_user_id": updated.AssignedUserID,
	}).Error
	observeOp("client", "update", err)
	if err != nil {
		return nil, storeErr("update client", err)
	}

	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	publishChange(ctx, s.Publisher, models.ChangeEvent{
		Type:  models.ChangeUpdate,
		Table: ClientsTable,
		New:   copyClient(client),
		Old:   &old,
	})
	return client, nil
}

// UpdateStatus changes only the status of a client
func (s *ClientService) UpdateStatus(ctx context.Context, id, status string) (*models.Client, error) {
	return s.Update(ctx, id, ClientUpdate{Status: &status})
}

// Delete removes a client. The store cascades its interactions.
// Deleting a missing client succeeds.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	var old models.Client
	err := s.DB.WithContext(ctx).First(&old, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observeOp("client", "delete", nil)
		return nil
	}
	if err != nil {
		observeOp("client", "delete", err)
		return storeErr("fetch client", err)
	}

	err = s.DB.WithContext(ctx).Delete(&models.Client{}, "id = ?", id).Error
	observeOp("client", "delete", err)
	if err != nil {
		return storeErr("delete client", err)
	}

	publishChange(ctx, s.Publisher, models.ChangeEvent{
		Type:  models.ChangeDelete,
		Table: ClientsTable,
		Old:   &old,
	})
	return nil
}

// Options returns the distinct countries and industries in use, sorted
func (s *ClientService) Options(ctx context.Context) (countries, industries []string, err error) {
	db := s.DB.WithContext(ctx).Model(&models.Client{})
	if err = db.Distinct().Order("country ASC").Pluck("country", &countries).Error; err != nil {
		observeOp("client", "options", err)
		return nil, nil, storeErr("fetch countries", err)
	}
	db = s.DB.WithContext(ctx).Model(&models.Client{})
	if err = db.Distinct().Order("industry ASC").Pluck("industry", &industries).Error; err != nil {
		observeOp("client", "options", err)
		return nil, nil, storeErr("fetch industries", err)
	}
	observeOp("client", "options", nil)
	return dropEmpty(countries), dropEmpty(industries), nil
}

// enrich attaches the assigned user reference to each client with one
// batched profile lookup. A failed lookup fails the whole list.
func (s *ClientService) enrich(ctx context.Context, clients []models.Client) error {
	var ids []string
	for _, c := range clients {
		if c.IsAssigned() {
			ids = append(ids, *c.AssignedUserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	refs, err := s.Profiles.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range clients {
		if !clients[i].IsAssigned() {
			continue
		}
		if ref, ok := refs[*clients[i].AssignedUserID]; ok {
			r := ref
			clients[i].AssignedUser = &r
		}
	}
	return nil
}

func validateClientName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < models.ClientNameMinLength || n > models.ClientNameMaxLength {
		return newValidationError("name", "name must be between 2 and 100 characters")
	}
	return nil
}

func validateClientEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return newValidationError("email", "email is required")
	}
	if len(email) > models.ClientEmailMaxLength {
		return newValidationError("email", "email must be at most 255 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return newValidationError("email", "invalid email address")
	}
	return nil
}

func validateCategory(field, value string) error {
	n := len(strings.TrimSpace(value))
	if n < models.ClientCategoryMinLength || n > models.ClientCategoryMaxLength {
		return newValidationError(field, field+" must be between 2 and 100 characters")
	}
	return nil
}

func validateNotes(notes *string) error {
	if notes != nil && len(*notes) > models.ClientNotesMaxLength {
		return newValidationError("notes", "notes must be at most 1000 characters")
	}
	return nil
}

// validateRevenue accepts finite, non-negative amounts only
func validateRevenue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return newValidationError("revenue", "revenue must be zero or positive")
	}
	return nil
}

// NaN fails every comparison, so ranges are checked inclusively
func validateCoordinates(lat, lng *float64) error {
	if lat != nil && !(*lat >= -90 && *lat <= 90) {
		return newValidationError("latitude", "latitude must be between -90 and 90")
	}
	if lng != nil && !(*lng >= -180 && *lng <= 180) {
		return newValidationError("longitude", "longitude must be between -180 and 180")
	}
	return nil
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func dropEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func copyClient(c *models.Client) *models.Client {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
