package services

import (
	"context"
	"io"
	"log"
	"sync"

	"crm_dashboard_go/models"
)

// Resource is one fetched value together with its loading and error state
type Resource[T any] struct {
	Data    T
	Loading bool
	Err     error
}

// Ready reports whether the resource holds data from a successful fetch
func (r Resource[T]) Ready() bool {
	return !r.Loading && r.Err == nil
}

// view holds the state shared by every view container. Results of calls
// that finish after Dispose are dropped.
type view struct {
	mu        sync.Mutex
	disposed  bool
	lastError string
}

// Dispose ends the view's lifetime
func (v *view) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disposed = true
}

func (v *view) Disposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}

// LastError returns the message of the most recent failed operation
func (v *view) LastError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastError
}

// fail records a failure; callers hold v.mu. A disposed view keeps no error.
func (v *view) fail(action string, err error) bool {
	log.Printf("[WARNING] Failed to %s: %v", action, err)
	if !v.disposed {
		v.lastError = UserMessage(err, "Failed to "+action)
	}
	return false
}

// ClientsView is the state of the client list: every client, the users
// available for assignment and the search, filter and page selection.
type ClientsView struct {
	view
	clients  *ClientService
	profiles *ProfileService

	list   Resource[[]models.Client]
	users  []models.Profile
	search string
	filter ClientFilter
	pager  *Pager
}

func NewClientsView(clients *ClientService, profiles *ProfileService, pageSize int) *ClientsView {
	return &ClientsView{
		clients:  clients,
		profiles: profiles,
		list:     Resource[[]models.Client]{Data: []models.Client{}, Loading: true},
		users:    []models.Profile{},
		filter:   DefaultClientFilter(),
		pager:    NewPager(pageSize),
	}
}

// Load fetches clients and users
func (v *ClientsView) Load(ctx context.Context) bool {
	clients, err := v.clients.List(ctx, ClientQuery{})
	var users []models.Profile
	if err == nil {
		users, err = v.profiles.List(ctx)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return false
	}
	v.list.Loading = false
	if err != nil {
		v.list.Err = err
		return v.fail("fetch clients", err)
	}
	v.list = Resource[[]models.Client]{Data: clients}
	v.users = users
	return true
}

// SetSearch changes the search term, returning to page 1 when it differs
func (v *ClientsView) SetSearch(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = term
	v.pager.SetQuery(v.search, v.filter)
}

// SetFilter replaces the filter, returning to page 1 when it differs
func (v *ClientsView) SetFilter(f ClientFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	v.pager.SetQuery(v.search, v.filter)
}

// ClearFilters restores every filter field to "all"
func (v *ClientsView) ClearFilters() {
	v.SetFilter(DefaultClientFilter())
}

func (v *ClientsView) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pager.SetPage(page)
}

func (v *ClientsView) Filter() ClientFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Clients returns the unfiltered list resource
func (v *ClientsView) Clients() Resource[[]models.Client] {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := v.list
	r.Data = append([]models.Client{}, v.list.Data...)
	return r
}

func (v *ClientsView) Users() []models.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Profile{}, v.users...)
}

// Matching returns every client passing the search and filter
func (v *ClientsView) Matching() []models.Client {
	v.mu.Lock()
	defer v.mu.Unlock()
	return FilterClients(SearchClients(v.list.Data, v.search), v.filter)
}

// Visible returns the current page of matching clients
func (v *ClientsView) Visible() Page[models.Client] {
	v.mu.Lock()
	defer v.mu.Unlock()
	matching := FilterClients(SearchClients(v.list.Data, v.search), v.filter)
	return PageOf(v.pager, matching)
}

// Options returns the countries and industries of the loaded clients
func (v *ClientsView) Options() (countries, industries []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return DistinctCountries(v.list.Data), DistinctIndustries(v.list.Data)
}

// Create adds a client and reloads the list so joins are current
func (v *ClientsView) Create(ctx context.Context, in ClientInput, actingUserID string) bool {
	if _, err := v.clients.Create(ctx, in, actingUserID); err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.fail("create client", err)
	}
	return v.Load(ctx)
}

// Delete removes a client and drops it from the local list
func (v *ClientsView) Delete(ctx context.Context, id string) bool {
	err := v.clients.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("delete client", err)
	}
	if v.disposed {
		return true
	}
	kept := make([]models.Client, 0, len(v.list.Data))
	for _, c := range v.list.Data {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	v.list.Data = kept
	return true
}

// ClientDetailView is the state of one client's page: the client, its
// interactions and its attachments.
type ClientDetailView struct {
	view
	clientID     string
	clients      *ClientService
	interactions *InteractionService
	attachments  *AttachmentService

	client            Resource[*models.Client]
	interactionList   Resource[[]models.Interaction]
	attachmentList    Resource[[]models.Attachment]
	interactionFilter InteractionFilter
}

func NewClientDetailView(clientID string, clients *ClientService, interactions *InteractionService, attachments *AttachmentService) *ClientDetailView {
	return &ClientDetailView{
		clientID:          clientID,
		clients:           clients,
		interactions:      interactions,
		attachments:       attachments,
		client:            Resource[*models.Client]{Loading: true},
		interactionList:   Resource[[]models.Interaction]{Data: []models.Interaction{}, Loading: true},
		attachmentList:    Resource[[]models.Attachment]{Data: []models.Attachment{}, Loading: true},
		interactionFilter: InteractionFilter{Type: FilterAll},
	}
}

// Load fetches the client, its interactions and its attachments
func (v *ClientDetailView) Load(ctx context.Context) bool {
	client, clientErr := v.clients.Get(ctx, v.clientID)
	var interactions []models.Interaction
	var attachments []models.Attachment
	var listErr, attErr error
	if clientErr == nil {
		interactions, listErr = v.interactions.ListByClient(ctx, v.clientID)
		attachments, attErr = v.attachments.ListByClient(ctx, v.clientID)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return false
	}

	v.client = Resource[*models.Client]{Data: client, Err: clientErr}
	if clientErr != nil {
		v.interactionList.Loading = false
		v.attachmentList.Loading = false
		return v.fail("fetch client", clientErr)
	}
	v.interactionList = Resource[[]models.Interaction]{Data: interactions, Err: listErr}
	v.attachmentList = Resource[[]models.Attachment]{Data: attachments, Err: attErr}
	if listErr != nil {
		v.interactionList.Data = []models.Interaction{}
		return v.fail("fetch interactions", listErr)
	}
	if attErr != nil {
		v.attachmentList.Data = []models.Attachment{}
		return v.fail("fetch attachments", attErr)
	}
	return true
}

func (v *ClientDetailView) Client() Resource[*models.Client] {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := v.client
	if r.Data != nil {
		r.Data = copyClient(r.Data)
	}
	return r
}

// Interactions returns the loaded interactions passing the interaction filter
func (v *ClientDetailView) Interactions() []models.Interaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	return FilterInteractions(v.interactionList.Data, v.interactionFilter)
}

func (v *ClientDetailView) Attachments() []models.Attachment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Attachment{}, v.attachmentList.Data...)
}

func (v *ClientDetailView) SetInteractionFilter(f InteractionFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.interactionFilter = f
}

// UpdateStatus changes the client's status and patches the local copy
func (v *ClientDetailView) UpdateStatus(ctx context.Context, status string) bool {
	updated, err := v.clients.UpdateStatus(ctx, v.clientID, status)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("update status", err)
	}
	if !v.disposed {
		v.client.Data = updated
	}
	return true
}

// AddInteraction logs an interaction and prepends it to the local list
func (v *ClientDetailView) AddInteraction(ctx context.Context, typ, note, userID string) bool {
	interaction, err := v.interactions.Create(ctx, InteractionInput{
		ClientID: v.clientID,
		Type:     typ,
		Note:     note,
		UserID:   userID,
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("add interaction", err)
	}
	if !v.disposed {
		v.interactionList.Data = append([]models.Interaction{*interaction}, v.interactionList.Data...)
	}
	return true
}

// UpdateInteraction edits an interaction and reloads the list
func (v *ClientDetailView) UpdateInteraction(ctx context.Context, id string, upd InteractionUpdate) bool {
	if _, err := v.interactions.Update(ctx, id, upd); err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.fail("update interaction", err)
	}

	interactions, err := v.interactions.ListByClient(ctx, v.clientID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("fetch interactions", err)
	}
	if !v.disposed {
		v.interactionList = Resource[[]models.Interaction]{Data: interactions}
	}
	return true
}

// DeleteInteraction removes an interaction and drops it from the local list
func (v *ClientDetailView) DeleteInteraction(ctx context.Context, id string) bool {
	err := v.interactions.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("delete interaction", err)
	}
	if !v.disposed {
		kept := make([]models.Interaction, 0, len(v.interactionList.Data))
		for _, i := range v.interactionList.Data {
			if i.ID != id {
				kept = append(kept, i)
			}
		}
		v.interactionList.Data = kept
	}
	return true
}

// Upload attaches a file to the client and prepends it to the local list
func (v *ClientDetailView) Upload(ctx context.Context, in UploadInput) bool {
	in.ClientID = v.clientID
	attachment, err := v.attachments.Upload(ctx, in)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("upload file", err)
	}
	if !v.disposed {
		v.attachmentList.Data = append([]models.Attachment{*attachment}, v.attachmentList.Data...)
	}
	return true
}

// Download passes an attachment's content to fn
func (v *ClientDetailView) Download(ctx context.Context, id string, fn func(r io.Reader, a *models.Attachment) error) bool {
	err := v.attachments.Download(ctx, id, fn)
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.fail("download file", err)
	}
	return true
}

// DeleteAttachment removes an attachment and drops it from the local list
func (v *ClientDetailView) DeleteAttachment(ctx context.Context, id string) bool {
	err := v.attachments.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("delete file", err)
	}
	if !v.disposed {
		kept := make([]models.Attachment, 0, len(v.attachmentList.Data))
		for _, a := range v.attachmentList.Data {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		v.attachmentList.Data = kept
	}
	return true
}

// RemindersView is the state of the task list of one user
type RemindersView struct {
	view
	userID  string
	tasks   *TaskService
	clients *ClientService

	list    Resource[[]models.Task]
	options []models.Client
}

func NewRemindersView(userID string, tasks *TaskService, clients *ClientService) *RemindersView {
	return &RemindersView{
		userID:  userID,
		tasks:   tasks,
		clients: clients,
		list:    Resource[[]models.Task]{Data: []models.Task{}, Loading: true},
		options: []models.Client{},
	}
}

// Load fetches the user's tasks and the clients a task can refer to
func (v *RemindersView) Load(ctx context.Context) bool {
	tasks, err := v.tasks.List(ctx, TaskQuery{UserID: v.userID})
	var clients []models.Client
	if err == nil {
		clients, err = v.clients.List(ctx, ClientQuery{SkipEnrich: true})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return false
	}
	v.list.Loading = false
	if err != nil {
		v.list.Err = err
		return v.fail("fetch tasks", err)
	}
	v.list = Resource[[]models.Task]{Data: tasks}
	v.options = clients
	return true
}

func (v *RemindersView) Tasks() Resource[[]models.Task] {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := v.list
	r.Data = append([]models.Task{}, v.list.Data...)
	return r
}

// Split returns pending and completed tasks
func (v *RemindersView) Split() (pending, completed []models.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return SplitTasks(v.list.Data)
}

// ClientOptions returns the clients a new task can refer to
func (v *RemindersView) ClientOptions() []models.Client {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Client{}, v.options...)
}

// AddTask creates a task and reloads the list to keep due date order
func (v *RemindersView) AddTask(ctx context.Context, in TaskInput) bool {
	if _, err := v.tasks.Create(ctx, in, v.userID); err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.fail("create reminder", err)
	}
	return v.Load(ctx)
}

// MarkDone completes a task and patches the local copy
func (v *RemindersView) MarkDone(ctx context.Context, id string) bool {
	_, err := v.tasks.MarkDone(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("update reminder", err)
	}
	if !v.disposed {
		for i := range v.list.Data {
			if v.list.Data[i].ID == id {
				v.list.Data[i].Status = models.TaskStatusCompleted
			}
		}
	}
	return true
}

// DeleteTask removes a task and drops it from the local list
func (v *RemindersView) DeleteTask(ctx context.Context, id string) bool {
	err := v.tasks.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("delete reminder", err)
	}
	if !v.disposed {
		kept := make([]models.Task, 0, len(v.list.Data))
		for _, t := range v.list.Data {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		v.list.Data = kept
	}
	return true
}

// ActivityView is the state of the profile page and the admin activity feed
type ActivityView struct {
	view
	userID   string
	profiles *ProfileService
	logs     *ActivityLogService

	profile Resource[*models.Profile]
	own     Resource[[]models.ActivityLog]
	recent  Resource[[]models.ActivityLog]
	users   Resource[[]models.Profile]
}

func NewActivityView(userID string, profiles *ProfileService, logs *ActivityLogService) *ActivityView {
	return &ActivityView{
		userID:   userID,
		profiles: profiles,
		logs:     logs,
		profile:  Resource[*models.Profile]{Loading: true},
		own:      Resource[[]models.ActivityLog]{Data: []models.ActivityLog{}, Loading: true},
		recent:   Resource[[]models.ActivityLog]{Data: []models.ActivityLog{}, Loading: true},
		users:    Resource[[]models.Profile]{Data: []models.Profile{}, Loading: true},
	}
}

// Load fetches the user's profile and own activity
func (v *ActivityView) Load(ctx context.Context) bool {
	profile, err := v.profiles.Get(ctx, v.userID)
	var logs []models.ActivityLog
	if err == nil {
		logs, err = v.logs.ListForUser(ctx, v.userID, UserActivityLimit)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return false
	}
	v.profile.Loading = false
	v.own.Loading = false
	if err != nil {
		v.profile.Err = err
		return v.fail("fetch profile", err)
	}
	v.profile = Resource[*models.Profile]{Data: profile}
	v.own = Resource[[]models.ActivityLog]{Data: logs}
	return true
}

// LoadAdmin fetches every user and the recent activity of all users
func (v *ActivityView) LoadAdmin(ctx context.Context) bool {
	users, err := v.profiles.List(ctx)
	var logs []models.ActivityLog
	if err == nil {
		logs, err = v.logs.ListRecent(ctx, RecentActivityLimit)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return false
	}
	v.users.Loading = false
	v.recent.Loading = false
	if err != nil {
		v.recent.Err = err
		return v.fail("fetch activity", err)
	}
	v.users = Resource[[]models.Profile]{Data: users}
	v.recent = Resource[[]models.ActivityLog]{Data: logs}
	return true
}

func (v *ActivityView) Profile() Resource[*models.Profile] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile
}

func (v *ActivityView) OwnActivity() []models.ActivityLog {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.ActivityLog{}, v.own.Data...)
}

func (v *ActivityView) RecentActivity() []models.ActivityLog {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.ActivityLog{}, v.recent.Data...)
}

func (v *ActivityView) Users() []models.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Profile{}, v.users.Data...)
}

// UpdateProfile saves the user's name and phone
func (v *ActivityView) UpdateProfile(ctx context.Context, upd ProfileUpdate) bool {
	profile, err := v.profiles.Update(ctx, v.userID, upd)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		return v.fail("update profile", err)
	}
	if !v.disposed {
		v.profile = Resource[*models.Profile]{Data: profile}
	}
	return true
}
